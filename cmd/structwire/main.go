// structwire inspects schema files and moves records between YAML
// documents, wire bytes, S3 objects and the structural id registry.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/hengadev/structwire"
	"github.com/hengadev/structwire/internal/monitoring"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		var coder interface{ ExitCode() int }
		if errors.As(err, &coder) {
			os.Exit(coder.ExitCode())
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	var (
		configPath   string
		envFile      string
		schemaPath   string
		protocolName string
		stats        bool
	)

	flagSet := pflag.NewFlagSet("structwire", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.SetInterspersed(false)
	flagSet.StringVarP(&configPath, "config", "c", structwire.DefaultConfigFile, "path to configuration file")
	flagSet.StringVar(&envFile, "env-file", ".env", "environment file loaded before reading STRUCTWIRE_* variables")
	flagSet.StringVarP(&schemaPath, "schema", "s", "", "schema file (overrides the configuration)")
	flagSet.StringVarP(&protocolName, "protocol", "p", "", "wire protocol: binary or compact")
	flagSet.BoolVar(&stats, "stats", false, "print engine counters to stderr after the command")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(stderr, flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help || flagSet.NArg() == 0 {
		printHelp(stderr, flagSet)
		return nil
	}

	command, rest := flagSet.Arg(0), flagSet.Args()[1:]
	if command == "version" {
		fmt.Fprintln(stdout, structwire.VersionInfo())
		return nil
	}

	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	cfg, err := loadConfig(configPath, flagSet.Changed("config"))
	if err != nil {
		return err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return err
	}
	if schemaPath != "" {
		cfg.Schema = schemaPath
	}
	if protocolName != "" {
		cfg.Protocol = protocolName
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	a, err := newApp(cfg, stats, stdin, stdout, stderr)
	if err != nil {
		return err
	}
	if a.metrics != nil {
		defer a.printStats()
	}

	switch command {
	case "inspect":
		return a.inspect(rest)
	case "hash":
		return a.hash(rest)
	case "encode":
		return a.encode(ctx, rest)
	case "decode":
		return a.decode(ctx, rest)
	case "register":
		return a.register(ctx, rest)
	case "check":
		return a.check(ctx, rest)
	default:
		printHelp(stderr, flagSet)
		return fmt.Errorf("unknown command: %s", command)
	}
}

// loadConfig reads path when it exists. A missing file is only an error
// when the path was given explicitly.
func loadConfig(path string, explicit bool) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return DefaultConfig(), nil
	}
	return LoadConfig(path)
}

func newLogger(cfg *Config, output io.Writer) *slog.Logger {
	level, _ := monitoring.ParseLogLevel(cfg.Log.Level)
	format, _ := monitoring.ParseLogFormat(cfg.Log.Format)
	return monitoring.NewLogger(monitoring.LoggerConfig{
		Level:     level,
		Format:    format,
		Output:    output,
		Component: "structwire",
	})
}

func printHelp(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(w, `structwire: schema driven record serialization.

Usage:
  structwire [flags] <command> [command flags] [types...]

Commands:
  inspect   Print the declaration and structural id of schema types
  hash      Print structural ids only
  encode    Encode a YAML document into wire bytes or an S3 object
  decode    Decode wire bytes or an S3 object into YAML or CBOR
  register  Record structural ids in the registry
  check     Compare schema types against the registry
  version   Show version information

Examples:
  structwire inspect Foo
  structwire encode Foo --in foo.yaml --out foo.bin
  structwire -p binary decode Foo --in foo.bin --format diag
  structwire check

Flags:
`)
	flagSet.SetOutput(w)
	flagSet.PrintDefaults()
}
