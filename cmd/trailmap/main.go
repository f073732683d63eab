// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

//go:build linux

// Package main implements the trailmap service.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/wneessen/trailmap/internal/config"
	"github.com/wneessen/trailmap/internal/i18n"
	"github.com/wneessen/trailmap/internal/logger"
	"github.com/wneessen/trailmap/internal/service"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGABRT, os.Interrupt)
	defer cancel()

	// Initialize Logger
	log := logger.New(slog.LevelError)

	flags := pflag.NewFlagSet("trailmap", pflag.ContinueOnError)
	confPath := flags.StringP("config", "c", "", "path to the config file")
	envFile := flags.String("env-file", ".env", "dotenv file with TRAILMAP_* settings")
	showVersion := flags.BoolP("version", "v", false, "print version information and exit")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		log.Error("failed to parse command line flags", logger.Err(err))
		os.Exit(1)
	}
	if *showVersion {
		fmt.Printf("trailmap %s (commit: %s, built: %s)\n", version, commit, date)
		return
	}

	// Environment variables that are already set take precedence over the dotenv file
	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Error("failed to load dotenv file", logger.Err(err), slog.String("file", *envFile))
		os.Exit(1)
	}

	conf, err := loadConfig(*confPath)
	if err != nil {
		log.Error("failed to load config", logger.Err(err))
		os.Exit(1)
	}

	log = logger.New(conf.LogLevel)
	t, err := i18n.New(conf.Locale)
	if err != nil {
		log.Error("failed to initialize localizer", logger.Err(err))
		os.Exit(1)
	}

	// Initialize the service
	serv, err := service.New(conf, log, t)
	if err != nil {
		log.Error("failed to initialize trailmap service", logger.Err(err))
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	serv.SignalSrc.Notify(sigChan, syscall.SIGUSR1, syscall.SIGUSR2)
	defer serv.SignalSrc.Stop(sigChan)
	go serv.HandleSignals(ctx, sigChan)

	// Start the service loop
	log.Info(t.Get("starting trailmap service"), slog.String("version", version),
		slog.String("commit", commit), slog.String("date", date))
	if err = serv.Run(ctx); err != nil {
		log.Error(t.Get("failed to start trailmap service"), logger.Err(err))
	}
	log.Info(t.Get("shutting down trailmap service"))
}

// loadConfig reads the config file given on the command line, falls back to the default location
// and finally to the built-in defaults.
func loadConfig(confPath string) (*config.Config, error) {
	if confPath != "" {
		conf, err := config.NewFromFile(filepath.Dir(confPath), filepath.Base(confPath))
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		return conf, nil
	}

	if path, file := findConfigFile(); path != "" && file != "" {
		conf, err := config.NewFromFile(path, file)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		return conf, nil
	}

	return config.New()
}

func findConfigFile() (string, string) {
	homedir, err := os.UserHomeDir()
	if err != nil {
		return "", ""
	}
	exts := []string{"toml", "yaml", "yml", "json"}
	for _, ext := range exts {
		path := filepath.Join(homedir, ".config", "trailmap", "config."+ext)
		if _, err = os.Stat(path); err == nil {
			return filepath.Dir(path), filepath.Base(path)
		}
	}
	return "", ""
}
