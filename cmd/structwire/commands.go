package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/spf13/pflag"

	"github.com/hengadev/structwire"
	"github.com/hengadev/structwire/dump"
	s3bucket "github.com/hengadev/structwire/providers/s3"
	"github.com/hengadev/structwire/registry"
	"github.com/hengadev/structwire/schemafile"
)

// openStore builds the S3 record store; tests replace it.
var openStore = s3bucket.New

type app struct {
	cfg      *Config
	logger   *slog.Logger
	engine   *structwire.Engine
	metrics  *structwire.InMemoryMetricsCollector
	protocol structwire.Protocol
	stdin    io.Reader
	stdout   io.Writer
	stderr   io.Writer
}

func newApp(cfg *Config, stats bool, stdin io.Reader, stdout, stderr io.Writer) (*app, error) {
	logger := newLogger(cfg, stderr)
	opts := []structwire.EngineOption{
		structwire.WithMaxDepth(cfg.MaxDepth),
		structwire.WithLogger(logger),
	}
	var metrics *structwire.InMemoryMetricsCollector
	if stats {
		metrics = structwire.NewInMemoryMetricsCollector()
		opts = append(opts, structwire.WithMetricsCollector(metrics))
	}
	engine, err := structwire.NewEngine(opts...)
	if err != nil {
		return nil, err
	}
	proto, err := cfg.WireProtocol()
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:      cfg,
		logger:   logger,
		engine:   engine,
		metrics:  metrics,
		protocol: proto,
		stdin:    stdin,
		stdout:   stdout,
		stderr:   stderr,
	}, nil
}

// printStats writes one "key value" line per counter, sorted by key.
func (a *app) printStats() {
	counters := a.metrics.Counters()
	for _, key := range slices.Sorted(maps.Keys(counters)) {
		fmt.Fprintf(a.stderr, "%s %d\n", key, counters[key])
	}
}

// driftError reports types whose shape changed since registration.
type driftError struct {
	types []string
}

func (e *driftError) Error() string {
	return fmt.Sprintf("schema drift detected in: %s", strings.Join(e.types, ", "))
}

func (e *driftError) ExitCode() int { return 2 }

func (a *app) loadSchema() (*schemafile.Schema, error) {
	schema, err := schemafile.Load(a.cfg.Schema)
	if err != nil {
		return nil, fmt.Errorf("load schema %s: %w", a.cfg.Schema, err)
	}
	return schema, nil
}

// specs resolves names, or every struct in declaration order when names
// is empty.
func (a *app) specs(names []string) ([]*structwire.StructSpec, error) {
	schema, err := a.loadSchema()
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		names = schema.StructNames()
	}
	specs := make([]*structwire.StructSpec, 0, len(names))
	for _, name := range names {
		spec, ok := schema.Struct(name)
		if !ok {
			return nil, fmt.Errorf("schema %s declares no struct '%s'", a.cfg.Schema, name)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func (a *app) spec(name string) (*structwire.StructSpec, error) {
	specs, err := a.specs([]string{name})
	if err != nil {
		return nil, err
	}
	return specs[0], nil
}

func (a *app) inspect(args []string) error {
	specs, err := a.specs(args)
	if err != nil {
		return err
	}
	for i, spec := range specs {
		if i > 0 {
			fmt.Fprintln(a.stdout)
		}
		fmt.Fprintln(a.stdout, spec.IDL())
		fmt.Fprintf(a.stdout, "// structural id %016x\n", spec.StructuralID())
	}
	return nil
}

func (a *app) hash(args []string) error {
	specs, err := a.specs(args)
	if err != nil {
		return err
	}
	for _, spec := range specs {
		fmt.Fprintf(a.stdout, "%016x  %s\n", spec.StructuralID(), spec.Name())
	}
	return nil
}

func (a *app) encode(ctx context.Context, args []string) error {
	var in, out string
	var toS3 bool
	flagSet := pflag.NewFlagSet("encode", pflag.ContinueOnError)
	flagSet.SetOutput(a.stderr)
	flagSet.StringVar(&in, "in", "-", "YAML document to encode (- for stdin)")
	flagSet.StringVar(&out, "out", "-", "file receiving the wire bytes (- for stdout)")
	flagSet.BoolVar(&toS3, "s3", false, "upload to the configured bucket instead of writing bytes")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if flagSet.NArg() != 1 {
		return fmt.Errorf("encode takes exactly one type name")
	}

	spec, err := a.spec(flagSet.Arg(0))
	if err != nil {
		return err
	}
	doc, err := a.readInput(in)
	if err != nil {
		return err
	}
	rec, err := schemafile.DecodeRecord(spec, doc)
	if err != nil {
		return err
	}

	if toS3 {
		store, err := a.store(ctx)
		if err != nil {
			return err
		}
		defer store.Close()
		key, err := store.Put(ctx, rec)
		if err != nil {
			return err
		}
		a.logger.Info("record uploaded", "struct", spec.Name(), "bucket", a.cfg.S3.Bucket, "key", key)
		fmt.Fprintln(a.stdout, key)
		return nil
	}

	data, err := a.engine.Marshal(ctx, a.protocol, rec)
	if err != nil {
		return err
	}
	return a.writeOutput(out, data)
}

func (a *app) decode(ctx context.Context, args []string) error {
	var in, key, format string
	flagSet := pflag.NewFlagSet("decode", pflag.ContinueOnError)
	flagSet.SetOutput(a.stderr)
	flagSet.StringVar(&in, "in", "-", "wire bytes to decode (- for stdin)")
	flagSet.StringVar(&key, "s3-key", "", "download this object from the configured bucket instead")
	flagSet.StringVarP(&format, "format", "f", "yaml", "output format: yaml, cbor or diag")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if flagSet.NArg() != 1 {
		return fmt.Errorf("decode takes exactly one type name")
	}
	switch format {
	case "yaml", "cbor", "diag":
	default:
		return fmt.Errorf("format must be one of: yaml, cbor, diag")
	}

	spec, err := a.spec(flagSet.Arg(0))
	if err != nil {
		return err
	}

	var rec *structwire.Record
	if key != "" {
		store, err := a.store(ctx)
		if err != nil {
			return err
		}
		defer store.Close()
		stored, err := store.Get(ctx, spec, key)
		if err != nil {
			return err
		}
		if !stored.Compatible {
			a.logger.Warn("stored record was written with a different shape",
				"struct", spec.Name(),
				"key", key,
				"stored_id", fmt.Sprintf("%016x", stored.StructuralID),
				"reader_id", fmt.Sprintf("%016x", spec.StructuralID()))
		}
		rec = stored.Record
	} else {
		data, err := a.readInput(in)
		if err != nil {
			return err
		}
		rec, err = a.engine.Unmarshal(ctx, a.protocol, spec, data)
		if err != nil {
			return err
		}
	}

	var output []byte
	switch format {
	case "yaml":
		output, err = schemafile.MarshalRecord(rec)
	case "cbor":
		output, err = dump.Marshal(rec)
	case "diag":
		var notation string
		notation, err = dump.Diagnose(rec)
		output = []byte(notation + "\n")
	}
	if err != nil {
		return err
	}
	_, err = a.stdout.Write(output)
	return err
}

func (a *app) register(ctx context.Context, args []string) error {
	specs, err := a.specs(args)
	if err != nil {
		return err
	}
	reg, err := registry.Open(a.cfg.Registry.Path)
	if err != nil {
		return err
	}
	defer reg.Close()

	for _, spec := range specs {
		entry, created, err := reg.Record(ctx, spec)
		if err != nil {
			return err
		}
		state := "unchanged"
		if created {
			state = "recorded"
		}
		fmt.Fprintf(a.stdout, "%-9s %s %016x %s\n", state, entry.TypeName, entry.StructuralID, entry.SnapshotID)
	}
	return nil
}

func (a *app) check(ctx context.Context, args []string) error {
	specs, err := a.specs(args)
	if err != nil {
		return err
	}
	reg, err := registry.Open(a.cfg.Registry.Path)
	if err != nil {
		return err
	}
	defer reg.Close()

	var drifted []string
	for _, spec := range specs {
		result, err := reg.Check(ctx, spec)
		if err != nil {
			return err
		}
		switch result.Status {
		case registry.Drifted:
			drifted = append(drifted, spec.Name())
			fmt.Fprintf(a.stdout, "%-10s %s recorded %016x, now %016x\n",
				result.Status, spec.Name(), result.Recorded.StructuralID, result.Current)
		default:
			fmt.Fprintf(a.stdout, "%-10s %s %016x\n", result.Status, spec.Name(), result.Current)
		}
	}
	if len(drifted) > 0 {
		return &driftError{types: drifted}
	}
	return nil
}

func (a *app) store(ctx context.Context) (*s3bucket.RecordStore, error) {
	if a.cfg.S3.Bucket == "" {
		return nil, fmt.Errorf("no S3 bucket configured (set s3.bucket or %s)", structwire.EnvS3Bucket)
	}
	return openStore(ctx, s3bucket.Config{
		Bucket:   a.cfg.S3.Bucket,
		Prefix:   a.cfg.S3.Prefix,
		Region:   a.cfg.S3.Region,
		Protocol: a.protocol,
		Engine:   a.engine,
		Encoding: s3bucket.Encoding(a.cfg.S3.Encoding),
	})
}

func (a *app) readInput(path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(a.stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func (a *app) writeOutput(path string, data []byte) error {
	if path == "-" {
		_, err := a.stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
