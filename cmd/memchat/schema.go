package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/kadirpekel/memchat"
	"github.com/kadirpekel/memchat/pkg/config"
)

// SchemaCmd prints the configuration JSON Schema.
type SchemaCmd struct {
	Compact bool `help:"Compact JSON output (no indentation)."`
}

func (c *SchemaCmd) Run() error {
	return writeSchema(os.Stdout, c.Compact)
}

func writeSchema(w io.Writer, compact bool) error {
	encoder := json.NewEncoder(w)
	if !compact {
		encoder.SetIndent("", "  ")
	}
	if err := encoder.Encode(config.Schema()); err != nil {
		return fmt.Errorf("failed to encode schema: %w", err)
	}
	return nil
}

// VersionCmd shows version information.
type VersionCmd struct {
	JSON bool `help:"Print as JSON."`
}

func (c *VersionCmd) Run() error {
	info := memchat.GetVersion()
	if c.JSON {
		return printJSON(info)
	}
	fmt.Println(info.String())
	return nil
}
