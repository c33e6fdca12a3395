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

// JsonConfig is the file representation of Config. Durations use
// timex.Duration so both "15m" and integer nanoseconds are accepted.
type JsonConfig struct {
	EndpointAddrGRPC             string         `json:"endpoint_addr_grpc" yaml:"endpoint_addr_grpc"`
	MetricsAddr                  string         `json:"metrics_addr" yaml:"metrics_addr"`
	DatabaseDSN                  string         `json:"database_dsn" yaml:"database_dsn"`
	SecretKey                    string         `json:"secret_key" yaml:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration" yaml:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration" yaml:"refresh_token_validity_duration"`
	NatsURL                      string         `json:"nats_url" yaml:"nats_url"`
	AccountsFile                 string         `json:"accounts_file" yaml:"accounts_file"`
}

// parseJson loads the file named by -c/-config into config. Only values
// present in the file replace what config already holds. Files ending in
// .yaml or .yml are read as YAML. Read or decode failures panic.
func parseJson(config *Config) {
	configFile := flagx.JsonConfigFlags()
	if configFile == "" {
		return
	}

	file, err := os.ReadFile(configFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	switch strings.ToLower(filepath.Ext(configFile)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(file, c)
	default:
		err = json.Unmarshal(file, c)
	}
	if err != nil {
		panic(err)
	}

	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	set(&config.MetricsAddr, c.MetricsAddr)
	set(&config.DatabaseDSN, c.DatabaseDSN)
	set(&config.SecretKey, c.SecretKey)
	set(&config.NatsURL, c.NatsURL)
	set(&config.AccountsFile, c.AccountsFile)
	if c.AccessTokenValidityDuration.Duration > 0 {
		config.AccessTokenValidityDuration = time.Duration(c.AccessTokenValidityDuration.Duration)
	}
	if c.RefreshTokenValidityDuration.Duration > 0 {
		config.RefreshTokenValidityDuration = time.Duration(c.RefreshTokenValidityDuration.Duration)
	}
}
