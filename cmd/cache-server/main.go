package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/leonardcser/ghpanel/internal/cache"
	"github.com/leonardcser/ghpanel/internal/config"
	"github.com/leonardcser/ghpanel/internal/logger"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "ghpanel-cache: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := config.Flags("ghpanel-cache")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	cfg, err := config.NewConfig(flags)
	if err != nil {
		return err
	}
	logPath := cfg.Log.Path
	if logPath == "" {
		logPath = logger.DefaultPath()
	}
	if err := logger.Init(logPath, cfg.Log.Level); err != nil {
		return err
	}
	defer logger.Close()

	store, err := cache.Open(cfg.Cache.DBPath, cache.Options{Bucket: cfg.Cache.Bucket})
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	l, err := cache.Listen(cfg.Cache.Socket)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", cfg.Cache.Socket, err)
	}
	logger.Infof("cache daemon serving %s on %s", cfg.Cache.DBPath, cfg.Cache.Socket)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		s := <-sig
		logger.Infof("cache daemon: %s, shutting down", s)
		_ = l.Close()
	}()

	if err := cache.Serve(l, store); err != nil {
		return err
	}
	_ = os.Remove(cfg.Cache.Socket)
	return nil
}
