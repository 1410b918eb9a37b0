// Copyright 2026 Heusala Group Oy
// SPDX-License-Identifier: MIT

// hgmatrix-tail logs in to the configured homeserver, runs the sync
// loop, and prints every decoded event as a structured log line until
// interrupted. Useful for watching what a record deployment actually
// receives over /sync.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/heusalagroup/hgmatrix/lib/config"
	"github.com/heusalagroup/hgmatrix/messaging"
	"github.com/heusalagroup/hgmatrix/service"
	"github.com/heusalagroup/hgmatrix/syncer"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	var verbose bool

	flagSet := pflag.NewFlagSet("hgmatrix-tail", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to the YAML configuration file (required)")
	flagSet.BoolVar(&verbose, "verbose", false, "log at debug level")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if configPath == "" {
		return fmt.Errorf("--config is required")
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gate := service.NewGate(service.Options{Logger: logger})
	defer gate.Close()
	session, err := gate.Initialize(ctx, cfg.HomeserverURL)
	if err != nil {
		return fmt.Errorf("initializing session: %w", err)
	}

	loop := syncer.New(session, syncer.Config{
		Timeout:      cfg.SyncTimeout(),
		WaitInterval: cfg.PollInterval(),
		Logger:       logger,
	})
	defer loop.Close()

	cancel := loop.OnEvent(func(event messaging.Event) {
		logger.Info("event",
			"event_id", event.EventID,
			"type", event.Type,
			"room_id", event.RoomID,
			"sender", event.Sender,
			"state", event.IsState(),
		)
	})
	defer cancel()

	if err := loop.Start(ctx); err != nil {
		return fmt.Errorf("starting sync loop: %w", err)
	}
	logger.Info("tailing events", "user_id", session.UserID(), "cursor", loop.Cursor())

	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}
