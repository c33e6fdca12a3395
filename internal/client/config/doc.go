// Package config loads runtime configuration for the Insubria Survive CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional config file (see parseJson) selected via flags: -c or -config.
//     Files ending in .yaml or .yml are read as YAML, anything else as JSON.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   address:port of the campus gRPC endpoint
//	-i int      online status check interval (seconds)
//	-r string   remote source: grpc, dir or nats
//	-d string   directory watched by the dir remote
//	-n string   NATS server URL
//	-db string  local SQLite database path
//	-l string   log file path
//	-tz string  IANA time zone
//	-w int      concurrent upserts per collection
//
// # File schema
//
// Intervals use timex.Duration, so values can be strings like "3s" or
// integer nanoseconds:
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "online_check_interval": "3s",
//	  "remote": "grpc",
//	  "db_path": "survive.db",
//	  "time_zone": "Europe/Rome",
//	  "s3": {"bucket": "survive", "endpoint": "http://127.0.0.1:9000"}
//	}
//
// Empty fields in the file leave the current value alone.
package config
