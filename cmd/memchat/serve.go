package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kadirpekel/memchat"
	"github.com/kadirpekel/memchat/pkg/config"
	"github.com/kadirpekel/memchat/pkg/server"
)

// ServeCmd starts the HTTP server.
type ServeCmd struct {
	Port  int  `help:"Port to listen on (overrides config)."`
	Watch bool `help:"Watch the config file and hot-reload memory settings."`
}

func (c *ServeCmd) Run(cli *CLI, ctx context.Context) error {
	var a *app
	cfg, loader, err := cli.loadConfig(ctx, config.WithOnChange(func(next *config.Config) {
		if a == nil {
			return
		}
		if err := a.svc.SetMemoryConfig(next.Memory); err != nil {
			slog.Error("Rejected reloaded memory settings", "error", err)
			return
		}
		slog.Info("Memory settings reloaded", "strategy", next.Memory.Strategy)
	}))
	if err != nil {
		return err
	}
	defer loader.Close()

	if c.Port != 0 {
		cfg.Server.Port = c.Port
		if err := cfg.Server.Validate(); err != nil {
			return err
		}
	}

	a, err = newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			slog.Warn("Shutdown finished with errors", "error", err)
		}
	}()

	if c.Watch {
		go func() {
			if err := loader.Watch(ctx); err != nil && ctx.Err() == nil {
				slog.Error("Config watch error", "error", err)
			}
		}()
	}

	fmt.Printf("memchat %s\n", memchat.Version)
	fmt.Printf("  Provider: %s\n", cfg.Providers.Default)
	fmt.Printf("  Memory:   %s\n", cfg.Memory.Strategy)
	fmt.Printf("  Store:    %s\n", cfg.Store.Backend)
	fmt.Printf("  Listen:   http://%s\n", cfg.Server.Address())
	if cfg.Observability.Metrics.Enabled {
		fmt.Printf("  Metrics:  %s\n", cfg.Observability.Metrics.Endpoint)
	}

	srv := server.New(cfg.Server, a.svc,
		server.WithObservability(a.obs, cfg.Observability.Metrics.Endpoint))
	return srv.Start(ctx)
}
