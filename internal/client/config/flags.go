package config

import (
	"flag"
	"os"
	"time"

	"github.com/insubria-survive/survive/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Only the flags listed in doc.go are considered; os.Args is filtered with
// flagx.FilterArgs so -c/-config and unknown flags do not interfere.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-i", "-r", "-d", "-n", "-db", "-l", "-tz", "-w"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	fs.StringVar(&cfg.Remote, "r", cfg.Remote, "remote source: grpc, dir or nats")
	fs.StringVar(&cfg.DataDir, "d", cfg.DataDir, "directory with collection files")
	fs.StringVar(&cfg.NatsURL, "n", cfg.NatsURL, "NATS server URL")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "local database path")
	fs.StringVar(&cfg.LogFile, "l", cfg.LogFile, "log file path")
	fs.StringVar(&cfg.TimeZone, "tz", cfg.TimeZone, "time zone")
	fs.IntVar(&cfg.SyncWorkers, "w", cfg.SyncWorkers, "concurrent upserts per collection")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
}
