// Command memchat is the CLI for the memchat chat gateway.
//
// Usage:
//
//	memchat serve --config memchat.yaml
//	memchat ask "What is a goroutine?" --provider local
//	memchat chat --session s1 --memory window
//	memchat validate --config memchat.yaml
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/kadirpekel/memchat/pkg/config"
)

// CLI defines the command-line interface.
type CLI struct {
	Serve    ServeCmd    `cmd:"" help:"Start the HTTP server."`
	Ask      AskCmd      `cmd:"" help:"Ask a single question."`
	Chat     ChatCmd     `cmd:"" help:"Start an interactive chat."`
	Validate ValidateCmd `cmd:"" help:"Validate configuration."`
	Schema   SchemaCmd   `cmd:"" help:"Print the JSON Schema of the configuration."`
	Version  VersionCmd  `cmd:"" help:"Show version information."`

	Config    string   `short:"c" help:"Path to config file." type:"path" env:"MEMCHAT_CONFIG"`
	EnvFile   []string `name:"env-file" help:"Additional .env files to load." type:"path" placeholder:"PATH"`
	LogLevel  string   `help:"Log level (debug, info, warn, error)."`
	LogFile   string   `help:"Log file path (empty = stderr)."`
	LogFormat string   `help:"Log format (simple, verbose, or text)."`

	logCleanup func()
}

// loadConfig reads the configuration and re-initializes logging with the
// config file's logger section as the lowest-priority layer.
func (cli *CLI) loadConfig(ctx context.Context, opts ...config.LoaderOption) (*config.Config, *config.Loader, error) {
	loader, err := config.NewLoader(cli.Config, opts...)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := loader.Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err := cli.initLogger(&cfg.Logger); err != nil {
		return nil, nil, err
	}
	return cfg, loader, nil
}

func (cli *CLI) initLogger(cfg *config.LoggerConfig) error {
	settings := resolveLogSettings(cli.LogLevel, cli.LogFile, cli.LogFormat, os.Getenv, cfg)
	cleanup, err := initLogger(settings)
	if err != nil {
		return err
	}
	cli.closeLog()
	cli.logCleanup = cleanup
	return nil
}

func (cli *CLI) closeLog() {
	if cli.logCleanup != nil {
		cli.logCleanup()
		cli.logCleanup = nil
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("memchat"),
		kong.Description("Chat gateway with bounded conversational memory."),
		kong.UsageOnError(),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	config.LoadDotEnv(cli.Config, cli.EnvFile...)

	if err := cli.initLogger(nil); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	err := kctx.Run(&cli)
	cli.closeLog()
	kctx.FatalIfErrorf(err)
}
