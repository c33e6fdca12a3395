package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/insubria-survive/survive/internal/flagx"
	"github.com/insubria-survive/survive/internal/timex"
	"gopkg.in/yaml.v3"
)

// JsonConfig is a DTO used exclusively for file unmarshalling.
// It relies on timex.Duration so intervals can be strings like "3s" or
// integer nanoseconds. After parsing, values are copied into the runtime
// Config (which uses time.Duration).
type JsonConfig struct {
	ServerEndpointAddr  string         `json:"server_endpoint_addr" yaml:"server_endpoint_addr"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval" yaml:"online_check_interval"`
	Remote              string         `json:"remote" yaml:"remote"`
	DataDir             string         `json:"data_dir" yaml:"data_dir"`
	NatsURL             string         `json:"nats_url" yaml:"nats_url"`
	DBPath              string         `json:"db_path" yaml:"db_path"`
	LogFile             string         `json:"log_file" yaml:"log_file"`
	TimeZone            string         `json:"time_zone" yaml:"time_zone"`
	SyncWorkers         int            `json:"sync_workers" yaml:"sync_workers"`
	S3                  struct {
		Region    string `json:"region" yaml:"region"`
		Endpoint  string `json:"endpoint" yaml:"endpoint"`
		AccessKey string `json:"access_key" yaml:"access_key"`
		SecretKey string `json:"secret_key" yaml:"secret_key"`
		Bucket    string `json:"bucket" yaml:"bucket"`
	} `json:"s3" yaml:"s3"`
}

func set(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// parseJson overlays Config with values loaded from a config file.
//
// The path comes from -c or -config via flagx.JsonConfigFlags(); without
// it nothing is loaded. Read or unmarshal errors panic (caller should
// recover if desired).
func parseJson(cfg *Config) {
	configFile := flagx.JsonConfigFlags()
	if configFile == "" {
		return
	}

	data, err := os.ReadFile(configFile)
	if err != nil {
		panic(err)
	}

	var jc JsonConfig
	switch strings.ToLower(filepath.Ext(configFile)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &jc)
	default:
		err = json.Unmarshal(data, &jc)
	}
	if err != nil {
		panic(err)
	}

	set(&cfg.ServerEndpointAddr, jc.ServerEndpointAddr)
	if jc.OnlineCheckInterval.Duration > 0 {
		cfg.OnlineCheckInterval = time.Duration(jc.OnlineCheckInterval.Duration)
	}
	set(&cfg.Remote, jc.Remote)
	set(&cfg.DataDir, jc.DataDir)
	set(&cfg.NatsURL, jc.NatsURL)
	set(&cfg.DBPath, jc.DBPath)
	set(&cfg.LogFile, jc.LogFile)
	set(&cfg.TimeZone, jc.TimeZone)
	if jc.SyncWorkers > 0 {
		cfg.SyncWorkers = jc.SyncWorkers
	}
	set(&cfg.S3.Region, jc.S3.Region)
	set(&cfg.S3.Endpoint, jc.S3.Endpoint)
	set(&cfg.S3.AccessKey, jc.S3.AccessKey)
	set(&cfg.S3.SecretKey, jc.S3.SecretKey)
	set(&cfg.S3.Bucket, jc.S3.Bucket)
}
