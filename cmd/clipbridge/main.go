// Command clipbridge runs the clipboard endpoint and drives clipboard
// sessions from the command line.
//
//	clipbridge serve  [--config file] [--listen addr]
//	clipbridge relay  --to <endpoint URL> (--from <fingerprint> | --text <s>)
//	clipbridge probe  --url <page> [--exec copy|cut|paste]
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/hazyhaar/clipbridge/config"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, args []string) error
}

var commands = []command{
	{"serve", "run the clipboard endpoint", runServe},
	{"relay", "paste into a session from a fingerprint or plain text", runRelay},
	{"probe", "detect the clipboard capabilities of a page", runProbe},
}

func run(args []string) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printUsage()
		return nil
	}
	for _, c := range commands {
		if c.name == args[0] {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return c.run(ctx, args[1:])
		}
	}
	printUsage()
	return fmt.Errorf("unknown command %q", args[0])
}

// common holds the flags every command accepts.
type common struct {
	fs         *pflag.FlagSet
	configPath string
	logLevel   string
	help       bool
}

func newFlagSet(name string) *common {
	c := &common{fs: pflag.NewFlagSet(name, pflag.ContinueOnError)}
	c.fs.StringVar(&c.configPath, "config", "", "YAML configuration file")
	c.fs.StringVar(&c.logLevel, "log-level", "", "debug | info | warn | error (overrides config)")
	c.fs.BoolVarP(&c.help, "help", "h", false, "show help")
	return c
}

// parse parses args and loads the configuration. A nil config means help
// was printed.
func (c *common) parse(args []string) (*config.Config, *slog.Logger, error) {
	if err := c.fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			c.usage()
			return nil, nil, nil
		}
		return nil, nil, err
	}
	if c.help {
		c.usage()
		return nil, nil, nil
	}
	if c.fs.NArg() > 0 {
		return nil, nil, fmt.Errorf("%s: unexpected argument %q", c.fs.Name(), c.fs.Arg(0))
	}

	cfg := config.Default()
	if c.configPath != "" {
		var err error
		if cfg, err = config.LoadFile(c.configPath); err != nil {
			return nil, nil, err
		}
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func (c *common) usage() {
	fmt.Fprintf(os.Stderr, "Usage: clipbridge %s [flags]\n\nFlags:\n", c.fs.Name())
	c.fs.SetOutput(os.Stderr)
	c.fs.PrintDefaults()
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "clipbridge: clipboard endpoint and session tooling\n\nUsage:\n  clipbridge <command> [flags]\n\nCommands:\n")
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  %-6s %s\n", c.name, c.summary)
	}
	fmt.Fprintf(os.Stderr, "\nEvery command accepts --config and --log-level.\n")
}

// printJSON writes v to stdout, indented.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
