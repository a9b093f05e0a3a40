package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/pflag"

	"github.com/leonardcser/ghpanel/internal/cache"
	"github.com/leonardcser/ghpanel/internal/config"
	"github.com/leonardcser/ghpanel/internal/dashboard"
	"github.com/leonardcser/ghpanel/internal/github"
	"github.com/leonardcser/ghpanel/internal/logger"
	"github.com/leonardcser/ghpanel/internal/orchestrator"
	"github.com/leonardcser/ghpanel/internal/retry"
	"github.com/leonardcser/ghpanel/internal/settings"
	"github.com/leonardcser/ghpanel/internal/tools"
	"github.com/leonardcser/ghpanel/internal/transport"
)

const (
	version    = "0.1.0"
	daemonName = "ghpanel-cache"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "ghpanel: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := config.Flags("ghpanel")
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
	logger.Infof("Starting ghpanel MCP server %s", version)

	kv := connectOrStartCache(cfg.Cache.Socket)

	tr, err := transport.New(transport.Options{
		Timeout:     cfg.API.Timeout,
		Parallelism: cfg.API.Parallelism,
		UserAgent:   cfg.API.UserAgent,
	})
	if err != nil {
		return err
	}

	store := settings.NewStore(kv)
	token := cfg.API.Token
	if saved, err := store.Token(); err == nil {
		token = saved
	} else if !errors.Is(err, settings.ErrNotConfigured) {
		logger.Warnf("Reading saved token: %v", err)
	}
	if token == "" {
		logger.Infof("No GitHub token configured; data requests fail until save-token")
	}

	client, err := github.NewClient(github.Config{
		BaseURL: cfg.API.BaseURL,
		Token:   token,
		Doer:    tr,
		Policy:  retry.New(cfg.Retry.MaxRetries, cfg.Retry.InitialDelay),
	})
	if err != nil {
		return err
	}

	c := cache.New(kv, cache.WithNamespace(cfg.Cache.Namespace))
	ttl := cfg.Cache.TTL
	if s, err := store.Load(); err == nil && s.CacheTTLSeconds > 0 {
		ttl = time.Duration(s.CacheTTLSeconds) * time.Second
	}
	data := dashboard.New(client, c, ttl)
	o := orchestrator.New(orchestrator.Deps{
		Settings:    store,
		Dashboard:   data,
		Cache:       c,
		Credentials: client,
	})
	logger.Infof("Initialized dashboard service (ttl %s, base %s)", data.TTL(), cfg.API.BaseURL)

	s := server.NewMCPServer(
		"ghpanel",
		version,
		server.WithRecovery(),
		server.WithToolCapabilities(false),
	)
	tools.Register(s, o)
	logger.Infof("Registered tools")

	logger.Infof("Starting MCP server on stdio")
	if err := server.ServeStdio(s); err != nil {
		logger.Errorf("server error: %v", err)
		return err
	}
	return nil
}

// connectOrStartCache returns a client of the cache daemon, starting the
// daemon when nothing listens on sock. Without a daemon it falls back to an
// in-process store that lives as long as the server.
func connectOrStartCache(sock string) cache.KV {
	client := cache.NewClient(sock)
	if err := client.Ping(); err == nil {
		logger.Infof("Connected to cache daemon at %s", sock)
		return client
	}

	logger.Warnf("No cache daemon at %s, attempting to start one", sock)
	if err := startCacheDaemon(sock); err != nil {
		logger.Warnf("Failed to start cache daemon: %v; using in-memory cache", err)
		return cache.NewMemory()
	}
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if err := client.Ping(); err == nil {
			logger.Infof("Cache daemon started at %s", sock)
			return client
		}
		time.Sleep(200 * time.Millisecond)
	}
	logger.Warnf("Cache daemon did not come up; using in-memory cache")
	return cache.NewMemory()
}

// startCacheDaemon looks for the daemon next to this executable, then on
// PATH.
func startCacheDaemon(sock string) error {
	var candidates []string
	if exePath, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(exePath), daemonName))
	}
	if path, err := exec.LookPath(daemonName); err == nil {
		candidates = append(candidates, path)
	}
	for _, bin := range candidates {
		if _, err := os.Stat(bin); err != nil {
			continue
		}
		cmd := exec.Command(bin, "--cache.socket", sock)
		cmd.Env = os.Environ()
		logger.Debugf("Starting %s", strings.Join(cmd.Args, " "))
		return cmd.Start()
	}
	return exec.ErrNotFound
}
