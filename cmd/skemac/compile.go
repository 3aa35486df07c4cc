package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/reoring/skemac"
	"github.com/reoring/skemac/config"
	"github.com/reoring/skemac/dsl"
	"github.com/reoring/skemac/emit"
	"github.com/reoring/skemac/fetch"
	"github.com/reoring/skemac/importer"
	"github.com/reoring/skemac/internal/discover"
	"github.com/reoring/skemac/jsonschema"
	"github.com/reoring/skemac/schema"
	"github.com/reoring/skemac/validator"
)

func compileCmd(args []string, stdout, stderr io.Writer) error {
	fs, verbose := newFlags("compile", stderr)
	cfgPath := fs.String("config", ".", "config file or directory holding skemac.yaml")
	out := fs.String("out", "", "output directory (overrides config)")
	dialect := fs.String("dialect", "", "jsonschema or openapi (overrides config)")
	validators := fs.String("validators", "", "none or source (overrides config)")
	if err := parse(fs, args); err != nil {
		return err
	}
	logger := newLogger(stderr, *verbose)

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	if *out != "" {
		cfg.Out = *out
	}
	if *dialect != "" {
		cfg.Dialect = *dialect
	}
	if *validators != "" {
		cfg.Validators = *validators
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	inputs := fs.Args()
	root := cfg.Root
	if len(inputs) == 0 {
		inputs, err = discover.Files(root, discover.Options{
			Include: cfg.Include,
			Exclude: append(append([]string(nil), cfg.Exclude...), filepath.ToSlash(cfg.Out)+"/"),
		})
		if err != nil {
			return err
		}
	} else {
		root = ""
	}
	if len(inputs) == 0 {
		return fmt.Errorf("no inputs matched %v", cfg.Include)
	}

	res, err := compile(context.Background(), cfg, root, inputs, logger)
	if res != nil {
		for _, f := range res.Files {
			fmt.Fprintln(stdout, filepath.Join(cfg.Path(cfg.Out), filepath.FromSlash(f.Path)))
		}
	}
	return err
}

// compile imports every input into one graph and runs the JSON Schema
// backend over them. Inputs that fail to import are reported and skipped.
func compile(ctx context.Context, cfg *config.Config, root string, inputs []string, logger *slog.Logger) (*emit.Result, error) {
	g := schema.New()
	b := dsl.On(g)
	var fetcher fetch.Fetcher
	if !cfg.Fetch.Disabled {
		fetcher = fetch.Default(cfg.FetchRoot())
	}
	var errs []error
	var pipelineInputs []emit.Input
	for _, in := range inputs {
		p := in
		if root != "" {
			p = filepath.Join(root, filepath.FromSlash(in))
		}
		res, err := importer.ImportFile(ctx, p, importer.Options{
			Graph:                g,
			Fetcher:              fetcher,
			Unknown:              cfg.UnknownBehavior(),
			EnableCEL:            cfg.Import.CEL,
			EnableEmbeddedChecks: cfg.Import.EmbeddedChecks,
			Logger:               logger.With("file", in),
		})
		if err != nil {
			errs = append(errs, err)
			logger.Warn("import failed", "file", in, "error", err)
			continue
		}
		input := res.Input(inputPath(in))
		if cfg.Validators == config.ValidatorsSource {
			for i, ex := range input.Exports {
				input.Exports[i].Node = b.Validator(ex.Node, schema.ValidatorOptions{
					Mode:    skemac.ModeSource,
					Formats: cfg.Validator.Formats,
					Coerce:  cfg.Validator.Coerce,
					Assert:  cfg.Validator.Assert,
				})
			}
		}
		pipelineInputs = append(pipelineInputs, input)
	}

	var w emit.Writer = emit.DirWriter{Root: cfg.Path(cfg.Out)}
	if !cfg.Clean {
		w = keepWriter{w}
	}
	backend := &jsonschema.Backend{
		Dialect:    cfg.SchemaDialect(),
		SchemaURI:  cfg.SchemaURI,
		Strict:     cfg.Strict,
		Pretty:     cfg.Pretty,
		Fetcher:    fetcher,
		Compiler:   validator.New(logger),
		Validators: cfg.Validators == config.ValidatorsSource,
	}
	p := emit.New(backend,
		emit.WithWriter(w),
		emit.WithFormatter(emit.SourceFormatter{}),
		emit.WithLogger(logger),
	)
	res, err := p.Run(ctx, g, pipelineInputs)
	if err != nil {
		errs = append(errs, err)
	}
	return res, errors.Join(errs...)
}

// inputPath keeps output paths below the output directory for inputs given
// outside the working tree.
func inputPath(in string) string {
	clean := filepath.Clean(in)
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return filepath.Base(clean)
	}
	return filepath.ToSlash(clean)
}

// keepWriter never removes previously generated folders.
type keepWriter struct{ emit.Writer }

func (keepWriter) Clean(context.Context, string) error { return nil }
