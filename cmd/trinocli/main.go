package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kong"
)

func main() {
	var cli CLI

	kctx := kong.Parse(&cli,
		kong.Name("trinocli"),
		kong.Description("Trino coordinator command-line client"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
		kong.Vars{"version": version},
	)

	fileConfig, err := LoadConfig()
	if err != nil {
		fileConfig = DefaultConfig()
	}

	if cli.Host == "" {
		cli.Host = fileConfig.Host
	}
	if cli.Port == 0 {
		cli.Port = fileConfig.Port
	}
	if cli.User == "" {
		cli.User = fileConfig.User
	}
	if cli.Catalog == "" {
		cli.Catalog = fileConfig.Catalog
	}
	if cli.Schema == "" {
		cli.Schema = fileConfig.Schema
	}
	if cli.Format == "" {
		cli.Format = fileConfig.Format
	}

	resolved := &Config{
		Host:    cli.Host,
		Port:    cli.Port,
		User:    cli.User,
		Catalog: cli.Catalog,
		Schema:  cli.Schema,
		Format:  cli.Format,
	}

	cliContext := &CLIContext{
		Context: context.Background(),
		Config:  resolved,
	}

	if err := kctx.Run(cliContext); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
