package main

import (
	"context"
	"fmt"
	"os"

	"github.com/adrg/xdg"

	"github.com/elee1766/procurebot/src/config"
)

// ConfigCmd inspects and creates configuration files
type ConfigCmd struct {
	Show ConfigShowCmd `cmd:"" help:"Print the effective configuration"`
	Info ConfigInfoCmd `cmd:"" help:"Show where configuration is loaded from"`
	Init ConfigInitCmd `cmd:"" help:"Write a default configuration file"`
}

// ConfigShowCmd prints the merged configuration
type ConfigShowCmd struct {
	Format  string `short:"f" enum:"yaml,json" default:"yaml" help:"Output format"`
	Secrets bool   `help:"Print secrets instead of masking them"`
}

func (c *ConfigShowCmd) Run(ctx context.Context, cli *CLI) error {
	manager, err := loadConfig(cli)
	if err != nil {
		return err
	}
	data, err := manager.ExportConfig("config."+c.Format, c.Secrets)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}

// ConfigInfoCmd lists the configuration sources and problems
type ConfigInfoCmd struct{}

func (c *ConfigInfoCmd) Run(ctx context.Context, cli *CLI) error {
	manager, err := loadConfig(cli)
	if err != nil {
		return err
	}
	info := manager.GetInfo()

	active := info.ActiveConfig
	if active == "" {
		active = "(defaults)"
	}
	fmt.Printf("active:   %s\nprovider: %s\nmodel:    %s\n", active, info.Provider, info.Model)
	if len(info.Locations) > 0 {
		fmt.Println("\nloaded, lowest precedence first:")
		for _, loc := range info.Locations {
			fmt.Printf("  %-8s %s\n", loc.Source, loc.Path)
		}
	}
	for _, w := range info.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
	for _, e := range info.Errors {
		fmt.Printf("error:   %s\n", e)
	}
	return nil
}

// ConfigInitCmd writes a default configuration
type ConfigInitCmd struct {
	Path string `arg:"" optional:"" type:"path" help:"Destination (defaults to the user config file)"`
}

func (c *ConfigInitCmd) Run(ctx context.Context, cli *CLI) error {
	path := c.Path
	if path == "" {
		var err error
		path, err = xdg.ConfigFile("procurebot/config.yaml")
		if err != nil {
			return fmt.Errorf("failed to resolve config path: %w", err)
		}
	}
	if err := config.CreateDefaultConfig(path); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}
