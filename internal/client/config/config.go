package config

import (
	"path/filepath"
	"time"
)

// Remote kinds accepted by Config.Remote.
const (
	RemoteGRPC = "grpc"
	RemoteDir  = "dir"
	RemoteNATS = "nats"
)

// S3 holds the calendar export bucket settings.
type S3 struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
}

// Config holds runtime settings for the Insubria Survive CLI.
//
// Fields:
//   - ServerEndpointAddr: host:port of the campus gRPC endpoint.
//   - OnlineCheckInterval: how often the client probes server reachability.
//   - Remote: where collections come from (grpc, dir or nats).
//   - DataDir: directory watched when Remote is "dir".
//   - NatsURL: NATS server when Remote is "nats".
//   - DBPath: SQLite file of the local store.
//   - LogFile: rotating log file; the REPL owns stdout.
//   - TimeZone: IANA zone used to read legacy timestamps and to show dates.
//   - SyncWorkers: concurrent upserts per synchronizer.
type Config struct {
	ServerEndpointAddr  string
	OnlineCheckInterval time.Duration
	Remote              string
	DataDir             string
	NatsURL             string
	DBPath              string
	LogFile             string
	TimeZone            string
	SyncWorkers         int
	S3                  S3
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.OnlineCheckInterval = 3 * time.Second
	c.Remote = RemoteGRPC
	c.DataDir = "data"
	c.NatsURL = "nats://127.0.0.1:4222"
	c.DBPath = "survive.db"
	c.LogFile = filepath.Join("logs", "client.log")
	c.TimeZone = "Europe/Rome"
	c.SyncWorkers = 4
	c.S3 = S3{
		Region:   "us-east-1",
		Endpoint: "http://127.0.0.1:9000",
		Bucket:   "survive",
	}
}

// Location resolves TimeZone, falling back to time.Local.
func (c *Config) Location() *time.Location {
	if c.TimeZone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.Local
	}
	return loc
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// a config file (if present) and command-line flags (if present). Later
// sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
