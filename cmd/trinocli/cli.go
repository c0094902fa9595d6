package main

import (
	"context"
	"fmt"

	trino "github.com/mickeey2525/trinocore"
)

// CLI is the top-level kong command tree.
type CLI struct {
	Host    string `kong:"help='Coordinator host',env='TRINO_HOST'"`
	Port    int    `kong:"help='Coordinator port',env='TRINO_PORT'"`
	User    string `kong:"help='Trino user',env='TRINO_USER'"`
	Catalog string `kong:"help='Default catalog',env='TRINO_CATALOG'"`
	Schema  string `kong:"help='Default schema',env='TRINO_SCHEMA'"`
	Format  string `kong:"help='Output format (table, json)',default='table',enum='table,json'"`
	Verbose bool   `kong:"short='v',help='Verbose debug logging'"`

	Version VersionCmd `kong:"cmd,help='Show version'"`
	Query   QueryCmd   `kong:"cmd,aliases='q,run',help='Run a SQL statement and print its results'"`
	Config  ConfigCmd  `kong:"cmd,help='Configuration management'"`
}

// CLIContext carries the resolved configuration (config file values with
// the parsed global flags applied on top) into every command's Run.
type CLIContext struct {
	Context context.Context
	Config  *Config
}

// VersionCmd prints the CLI's version.
type VersionCmd struct{}

var version = "dev"

func (v *VersionCmd) Run(ctx *CLIContext) error {
	fmt.Printf("trinocli version %s\n", version)
	return nil
}

// QueryCmd submits a SQL statement and streams its result rows.
type QueryCmd struct {
	SQL         string `kong:"arg,help='SQL statement to run'"`
	MaxAttempts int    `kong:"help='HTTP retry attempts',default='3'"`
}

func (q *QueryCmd) Run(ctx *CLIContext) error {
	requests, err := trino.NewRequestLayer(trino.RequestConfig{
		Host:        ctx.Config.Host,
		Port:        ctx.Config.Port,
		User:        ctx.Config.User,
		Catalog:     ctx.Config.Catalog,
		Schema:      ctx.Config.Schema,
		MaxAttempts: q.MaxAttempts,
		DebugLogger: trino.StdDebugLogger,
	})
	if err != nil {
		return fmt.Errorf("configuring coordinator connection: %w", err)
	}

	query := trino.NewQuery(requests, q.SQL)
	result := trino.NewResult(ctx.Context, query, trino.WithTypeMapping())
	defer result.Close()

	printed := false
	for result.Next() {
		if !printed {
			printHeader(query.Columns())
			printed = true
		}
		row, err := result.Row()
		if err != nil {
			return fmt.Errorf("converting row %d: %w", result.RowNumber(), err)
		}
		printRow(row)
	}
	if err := result.Err(); err != nil {
		return fmt.Errorf("running query: %w", err)
	}
	return nil
}

func printHeader(columns []trino.Column) {
	for i, col := range columns {
		if i > 0 {
			fmt.Print("\t")
		}
		fmt.Print(col.Name)
	}
	fmt.Println()
}

func printRow(row []any) {
	for i, v := range row {
		if i > 0 {
			fmt.Print("\t")
		}
		fmt.Print(v)
	}
	fmt.Println()
}

// ConfigCmd shows the resolved configuration.
type ConfigCmd struct {
	Show ConfigShowCmd `kong:"cmd,help='Show the resolved configuration'"`
}

type ConfigShowCmd struct{}

func (c *ConfigShowCmd) Run(ctx *CLIContext) error {
	fmt.Printf("host: %s\n", ctx.Config.Host)
	fmt.Printf("port: %d\n", ctx.Config.Port)
	fmt.Printf("user: %s\n", ctx.Config.User)
	fmt.Printf("catalog: %s\n", ctx.Config.Catalog)
	fmt.Printf("schema: %s\n", ctx.Config.Schema)
	fmt.Printf("format: %s\n", ctx.Config.Format)
	return nil
}
