package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/reoring/skemac"
	"github.com/reoring/skemac/emit"
	"github.com/reoring/skemac/fetch"
	"github.com/reoring/skemac/importer"
	"github.com/reoring/skemac/jsonschema"
	"github.com/reoring/skemac/sample"
	"github.com/reoring/skemac/validator"
)

// checkCmd validates data files against an imported schema with an
// in-process predicate.
func checkCmd(args []string, stdout, stderr io.Writer) error {
	fs, verbose := newFlags("check", stderr)
	schemaPath := fs.String("schema", "", "schema document (JSON Schema, OpenAPI or CRD)")
	export := fs.String("export", "", "export to check against (default: the first)")
	dialect := fs.String("dialect", "", "jsonschema or openapi (default: from the input format)")
	coerce := fs.Bool("coerce", false, "accept numeric and boolean strings")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *schemaPath == "" || fs.NArg() == 0 {
		fs.Usage()
		return errUsage
	}
	logger := newLogger(stderr, *verbose)
	ctx := context.Background()

	res, ex, err := load(ctx, *schemaPath, *export)
	if err != nil {
		return err
	}
	d := res.Dialect()
	if *dialect != "" {
		var ok bool
		if d, ok = skemac.ParseDialect(*dialect); !ok {
			return fmt.Errorf("unknown dialect %q", *dialect)
		}
	}
	pred, err := jsonschema.CompileValidator(ctx, res.Graph, ex.Node, validator.New(logger),
		jsonschema.Options{Dialect: d, Fetcher: fetch.Default(".")},
		jsonschema.CompileOptions{Formats: true, Coerce: *coerce})
	if err != nil {
		return err
	}

	failed := 0
	for _, p := range fs.Args() {
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		v, err := validator.DecodeValue(data)
		if err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
		err = pred(v)
		if err == nil {
			fmt.Fprintf(stdout, "%s: ok\n", p)
			continue
		}
		failed++
		iss, ok := skemac.AsIssues(err)
		if !ok {
			return fmt.Errorf("%s: %w", p, err)
		}
		for _, it := range iss {
			fmt.Fprintf(stdout, "%s: %s %s: %s\n", p, it.Path, it.Code, it.Message)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files invalid", failed, fs.NArg())
	}
	return nil
}

// sampleCmd prints a minimal valid value for an export.
func sampleCmd(args []string, stdout, stderr io.Writer) error {
	fs, _ := newFlags("sample", stderr)
	export := fs.String("export", "", "export to sample (default: the first)")
	depth := fs.Int("depth", sample.DefaultMaxDepth, "maximum recursion depth through references")
	defaults := fs.Bool("defaults", false, "prefer declared defaults")
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errUsage
	}
	res, ex, err := load(context.Background(), fs.Arg(0), *export)
	if err != nil {
		return err
	}
	out, err := sample.JSON(res.Graph, ex.Node, sample.Options{MaxDepth: *depth, UseDefaults: *defaults})
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s\n", out)
	return nil
}

func load(ctx context.Context, p, name string) (*importer.Result, emit.Export, error) {
	res, err := importer.ImportFile(ctx, p, importer.Options{
		Fetcher:   fetch.Default("."),
		EnableCEL: true,
	})
	if err != nil {
		return nil, emit.Export{}, err
	}
	if name == "" {
		return res, res.Exports[0], nil
	}
	for _, ex := range res.Exports {
		if ex.Name == name {
			return res, ex, nil
		}
	}
	return nil, emit.Export{}, errors.New("no export named " + name)
}
