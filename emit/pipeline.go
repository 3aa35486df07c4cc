// Package emit runs the two-phase emission pipeline.
//
// Phase 1 scans every input with a backend, producing templates that carry
// placeholders and registry declarations. Phase 2 starts only after every
// input has been scanned: registries are finalized, placeholders resolved,
// pretty files formatted, requested directories cleaned and files written.
package emit

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/reoring/skemac"
	"github.com/reoring/skemac/registry"
	"github.com/reoring/skemac/schema"
)

const tracerName = "github.com/reoring/skemac/emit"

// Pipeline drives one backend over a set of inputs.
type Pipeline struct {
	backend   Backend
	writer    Writer
	formatter Formatter
	logger    *slog.Logger
	tracer    trace.Tracer
	regOpts   []registry.Option
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithWriter sets the file writer. Without one nothing is persisted and the
// Result carries the resolved text only.
func WithWriter(w Writer) Option { return func(p *Pipeline) { p.writer = w } }

// WithFormatter sets the pretty-printer applied to files that request it.
func WithFormatter(f Formatter) Option { return func(p *Pipeline) { p.formatter = f } }

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option { return func(p *Pipeline) { p.logger = l } }

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) Option { return func(p *Pipeline) { p.tracer = t } }

// WithRegistryOptions configures every registry the run creates.
func WithRegistryOptions(opts ...registry.Option) Option {
	return func(p *Pipeline) { p.regOpts = append(p.regOpts, opts...) }
}

// New returns a pipeline for b.
func New(b Backend, opts ...Option) *Pipeline {
	p := &Pipeline{backend: b, logger: slog.Default()}
	for _, o := range opts {
		o(p)
	}
	if p.tracer == nil {
		p.tracer = otel.Tracer(tracerName)
	}
	return p
}

// Result reports one pipeline run.
type Result struct {
	RunID string
	// Files holds every file that survived both phases, artifacts flattened,
	// in emission order.
	Files []*OutputFile
	// Failed lists input paths whose output was dropped.
	Failed []string
}

// File returns the output with path p or nil.
func (r *Result) File(p string) *OutputFile {
	for _, f := range r.Files {
		if f.Path == p {
			return f
		}
	}
	return nil
}

type scanned struct {
	input string
	files []*OutputFile
}

// Run compiles inputs. A failure inside one input drops that input's output
// and is reported in the joined error; other inputs are still emitted.
func (p *Pipeline) Run(ctx context.Context, g *schema.Graph, inputs []Input) (*Result, error) {
	run := NewRun(g, p.backend.Target(), p.logger, p.regOpts...)
	log := run.Logger
	res := &Result{RunID: run.ID}
	var errs []error
	fail := func(input string, err error) {
		errs = append(errs, skemac.WithPath(err, input))
		res.Failed = append(res.Failed, input)
		log.Warn("input dropped", "file", input, "error", err)
	}

	// Phase 1.
	var batches []scanned
	for _, in := range inputs {
		files, err := p.scan(ctx, run, in)
		if err != nil {
			fail(in.Path, err)
			continue
		}
		batches = append(batches, scanned{input: in.Path, files: files})
	}

	// Phase 2.
	_, span := p.tracer.Start(ctx, "emit.finalize", trace.WithAttributes(attribute.String("backend", string(run.Target()))))
	run.finalize()
	span.End()

	var ready []*OutputFile
	for _, b := range batches {
		files, err := p.resolve(ctx, run, b)
		if err != nil {
			fail(b.input, err)
			continue
		}
		ready = append(ready, files...)
	}

	if p.writer != nil {
		ready = p.write(ctx, ready, func(path string, err error) {
			errs = append(errs, skemac.WithPath(err, path))
			log.Warn("write failed", "file", path, "error", err)
		})
	}
	res.Files = ready
	log.Info("emission finished", "inputs", len(inputs), "files", len(ready), "failed", len(res.Failed))
	return res, errors.Join(errs...)
}

func (p *Pipeline) scan(ctx context.Context, run *Run, in Input) (_ []*OutputFile, err error) {
	ctx, span := p.tracer.Start(ctx, "emit.scan", trace.WithAttributes(
		attribute.String("backend", string(run.Target())),
		attribute.String("file", in.Path),
		attribute.Int("exports", len(in.Exports)),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	for _, ex := range in.Exports {
		if ex.Node == nil {
			return nil, &skemac.Error{Err: skemac.ErrUnsupportedConstruct, Detail: "export " + ex.Name + " has no node"}
		}
		if err := run.Graph.Load(ex.Node); err != nil {
			return nil, err
		}
	}
	cp := run.checkpoint()
	files, err := p.backend.Scan(ctx, run, in)
	if err != nil {
		run.rollback(cp)
		return nil, err
	}
	run.Logger.Debug("scanned", "file", in.Path, "outputs", len(files))
	return files, nil
}

func (p *Pipeline) resolve(ctx context.Context, run *Run, b scanned) (_ []*OutputFile, err error) {
	_, span := p.tracer.Start(ctx, "emit.resolve", trace.WithAttributes(
		attribute.String("backend", string(run.Target())),
		attribute.String("file", b.input),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	var out []*OutputFile
	for _, top := range b.files {
		for _, f := range top.Flatten() {
			reg := run.registryFor(f.Scope)
			if reg == nil {
				return nil, &skemac.Error{Err: skemac.ErrMissingDependency, Path: f.Path, Detail: "unknown registry scope " + f.Scope}
			}
			text, resolved, err := reg.Resolve(f.Template)
			if err != nil {
				return nil, skemac.WithPath(err, f.Path)
			}
			if f.Pretty && p.formatter != nil {
				formatted, err := p.formatter.Format(f.Path, []byte(text))
				if err != nil {
					return nil, err
				}
				text = string(formatted)
			}
			f.Text, f.Resolved = text, resolved
			if f.Symbols == nil {
				f.Symbols = reg.Symbols(f.Path)
			}
			out = append(out, f)
		}
	}
	run.Logger.Debug("resolved", "file", b.input, "outputs", len(out))
	return out, nil
}

func (p *Pipeline) write(ctx context.Context, files []*OutputFile, fail func(string, error)) []*OutputFile {
	cleaned := map[string]bool{}
	for _, f := range files {
		if f.Clean == "" || cleaned[f.Clean] {
			continue
		}
		cleaned[f.Clean] = true
		if err := p.writer.Clean(ctx, f.Clean); err != nil {
			fail(f.Clean, err)
		}
	}
	written := files[:0:0]
	for _, f := range files {
		if err := p.writer.Write(ctx, f.Path, []byte(f.Text)); err != nil {
			fail(f.Path, err)
			continue
		}
		written = append(written, f)
	}
	return written
}
