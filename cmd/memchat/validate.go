package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kadirpekel/memchat/pkg/config"
)

// ValidateCmd loads the configuration and reports problems.
type ValidateCmd struct {
	Format      string `short:"f" help:"Output format: compact, json." default:"compact" enum:"compact,json"`
	PrintConfig bool   `short:"p" name:"print-config" help:"Print the expanded configuration (defaults applied, env vars resolved)."`
}

type validateResult struct {
	Valid bool   `json:"valid"`
	File  string `json:"file"`
	Error string `json:"error,omitempty"`
}

func (c *ValidateCmd) Run(cli *CLI, ctx context.Context) error {
	file := cli.Config
	if file == "" {
		file = "(defaults + environment)"
	}

	cfg, loader, err := config.LoadConfigFile(ctx, cli.Config)
	if err != nil {
		if c.Format == "json" {
			printJSON(validateResult{File: file, Error: err.Error()})
		} else {
			fmt.Fprintf(os.Stderr, "%s: %v\n", file, err)
		}
		return fmt.Errorf("config validation failed")
	}
	defer loader.Close()

	if c.PrintConfig {
		return printConfig(c.Format, cfg)
	}

	if c.Format == "json" {
		printJSON(validateResult{Valid: true, File: file})
	} else {
		fmt.Fprintf(os.Stdout, "%s: valid\n", file)
	}
	return nil
}

func printConfig(format string, cfg *config.Config) error {
	if format == "json" {
		return printJSON(cfg)
	}

	encoder := yaml.NewEncoder(os.Stdout)
	encoder.SetIndent(2)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config as YAML: %w", err)
	}
	return encoder.Close()
}

func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
