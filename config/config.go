// Package config loads the server/renderer settings tuvokd runs with
// (tuvokctl does not read a config file): cache capacity, the remote server's listen address and
// worker-rank count, the default ROTATION batch size, and log rotation,
// the runtime knobs a renderer's command-line flags and TOML config file
// cover in the teacher's own tooling.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/natefinch/lumberjack"

	"github.com/gogpu/tuvok"
)

// Config is the top-level TOML document. Every field has a zero value
// that is a valid, conservative default (see Default), so a partial or
// absent config file never leaves a field uninitialized.
type Config struct {
	Server Server `toml:"server"`
	Cache  Cache  `toml:"cache"`
	Log    Log    `toml:"log"`
}

// Server covers the remote brick server's (C6) listen-side settings.
type Server struct {
	// ListenAddress is the TCP address tuvokd's remote.Server accepts
	// connections on, e.g. "0.0.0.0:8080".
	ListenAddress string `toml:"listen_address"`

	// WorkerRanks is the number of remote.WorkerGroupBroadcaster ranks to
	// start. 1 means single-ranked (remote.LocalBroadcaster), the default
	// spec.md §9 sanctions.
	WorkerRanks int `toml:"worker_ranks"`

	// BatchSize is a default ROTATION batch size. tuvokd decodes it but
	// does not pass it on: remote.NewServer always starts at 64, and only
	// a client's BATCHSIZE request changes that.
	BatchSize uint32 `toml:"batch_size"`
}

// Cache covers the GPU brick cache's (C4) budget.
type Cache struct {
	// CapacityBytes is a budget for resident brick texture memory. Neither
	// tuvokd nor tuvokctl reads it; scheduler.New takes its cache budget
	// as an argument.
	CapacityBytes uint64 `toml:"capacity_bytes"`
}

// Log covers structured logging and optional rotation to a file.
type Log struct {
	// Level is one of "debug", "info", "warn", "error". Empty means "info".
	Level string `toml:"level"`

	// Filename, if set, routes log output through a rotating lumberjack.Logger
	// instead of stderr. Long-running tuvokd daemons should set this.
	Filename string `toml:"filename"`
	MaxSizeMB int `toml:"max_size_mb"`
	MaxAgeDays int `toml:"max_age_days"`
	MaxBackups int `toml:"max_backups"`
}

// Default returns the configuration tuvokd runs with absent a config
// file: single-ranked, loopback-only, a 512 MiB cache, info logging
// to stderr.
func Default() Config {
	return Config{
		Server: Server{
			ListenAddress: "127.0.0.1:8080",
			WorkerRanks:   1,
			BatchSize:     64,
		},
		Cache: Cache{
			CapacityBytes: 512 << 20,
		},
		Log: Log{
			Level: "info",
		},
	}
}

// Load reads and decodes a TOML config file at path, falling back to
// Default's zero-value fields for anything the file omits.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decoding %s: %w", path, err)
	}
	return cfg, nil
}

// parseLevel maps the config's string level to a slog.Level, defaulting to
// Info for an empty or unrecognized value.
func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ApplyLogger builds a *slog.Logger from cfg.Log and installs it via
// tuvok.SetLogger: JSON-structured, written to a rotating lumberjack.Logger
// when cfg.Log.Filename is set, to stderr otherwise.
func ApplyLogger(cfg Config) {
	var writer io.Writer = os.Stderr
	if cfg.Log.Filename != "" {
		writer = &lumberjack.Logger{
			Filename:   cfg.Log.Filename,
			MaxSize:    cfg.Log.MaxSizeMB,
			MaxAge:     cfg.Log.MaxAgeDays,
			MaxBackups: cfg.Log.MaxBackups,
		}
	}
	handler := slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: parseLevel(cfg.Log.Level)})
	tuvok.SetLogger(slog.New(handler))
}
