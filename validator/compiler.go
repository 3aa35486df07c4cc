package validator

import (
	"context"
	"io"
	"log/slog"

	"github.com/goccy/go-json"

	"github.com/reoring/skemac"
	"github.com/reoring/skemac/internal/gen"
	"github.com/reoring/skemac/jsonschema"
)

// Compiler compiles schema documents into validators. The zero value is
// ready to use.
type Compiler struct {
	Logger *slog.Logger
}

var _ jsonschema.Compiler = (*Compiler)(nil)

// New returns a compiler logging to logger (nil discards).
func New(logger *slog.Logger) *Compiler { return &Compiler{Logger: logger} }

func (c *Compiler) logger() *slog.Logger {
	if c == nil || c.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c.Logger
}

// Compile lowers doc and returns a predicate or Go source depending on
// opts.Mode.
func (c *Compiler) Compile(ctx context.Context, doc []byte, opts jsonschema.CompileOptions) (*jsonschema.Compiled, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s, err := jsonschema.Decode(doc)
	if err != nil {
		return nil, &skemac.Error{Err: skemac.ErrUnsupportedConstruct, Detail: "decode document", Cause: err}
	}
	prog, err := Lower(s, opts)
	if err != nil {
		return nil, err
	}
	out := &jsonschema.Compiled{UsedFormats: UsedFormats(prog)}
	switch opts.Mode {
	case skemac.ModePredicate:
		check, err := Build(prog, opts.Coerce)
		if err != nil {
			return nil, err
		}
		out.Predicate = PredicateOf(check)
	default:
		src, err := gen.Render(prog, gen.Options{
			Package:  opts.Package,
			FuncName: opts.FuncName,
			Coerce:   opts.Coerce,
			Assert:   opts.Assert,
		})
		if err != nil {
			return nil, &skemac.Error{Err: skemac.ErrUnsupportedConstruct, Cause: err}
		}
		out.Source = src
	}
	c.logger().Debug("validator compiled",
		"mode", opts.Mode.String(),
		"definitions", len(prog.Order),
		"formats", out.UsedFormats,
	)
	return out, nil
}

// PredicateOf adapts a check to a func returning skemac.Issues or nil.
func PredicateOf(check Check) func(v any) error {
	return func(v any) error {
		var iss skemac.Issues
		check(v, skemac.Root(), &iss)
		return skemac.AsError(iss)
	}
}

// DecodeValue decodes JSON into the generic shape validators expect.
func DecodeValue(data []byte) (any, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// Normalize converts an arbitrary Go value (structs, typed maps) into the
// generic JSON shape by a round trip through its JSON encoding.
func Normalize(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return DecodeValue(b)
}
