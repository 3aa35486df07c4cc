package emit

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/reoring/skemac/registry"
	"github.com/reoring/skemac/schema"
)

// Backend renders inputs for one target.
type Backend interface {
	Target() schema.Target
	// Scan renders one input. Placeholders in the returned templates must be
	// resolvable once every input has been scanned.
	Scan(ctx context.Context, run *Run, in Input) ([]*OutputFile, error)
}

// Run is the state of one compilation run for one backend. It is created
// fresh per Pipeline.Run and never shared.
type Run struct {
	ID     string
	Graph  *schema.Graph
	Logger *slog.Logger

	target  schema.Target
	regOpts []registry.Option
	shared  *registry.Registry
	scopes  map[string]*registry.Registry
	order   []string
}

// NewRun returns run state for target over g. Pipelines create one per
// Run call; backends used outside a pipeline may create their own.
func NewRun(g *schema.Graph, target schema.Target, logger *slog.Logger, opts ...registry.Option) *Run {
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.NewString()
	return &Run{
		ID:      id,
		Graph:   g,
		Logger:  logger.With("run", id, "backend", string(target)),
		target:  target,
		regOpts: opts,
		shared:  registry.New(g, target, opts...),
		scopes:  map[string]*registry.Registry{},
	}
}

// Target returns the backend target.
func (r *Run) Target() schema.Target { return r.target }

// Registry returns the run-wide registry shared by every file.
func (r *Run) Registry() *registry.Registry { return r.shared }

// Scope returns the registry for a self-contained scope (for example one
// schema document), creating it on first use.
func (r *Run) Scope(name string) *registry.Registry {
	if name == "" {
		return r.shared
	}
	if reg, ok := r.scopes[name]; ok {
		return reg
	}
	reg := registry.New(r.Graph, r.target, r.regOpts...)
	r.scopes[name] = reg
	r.order = append(r.order, name)
	return reg
}

type checkpoint struct {
	mark   int
	scopes int
}

func (r *Run) checkpoint() checkpoint {
	return checkpoint{mark: r.shared.Mark(), scopes: len(r.order)}
}

func (r *Run) rollback(c checkpoint) {
	r.shared.Discard(c.mark)
	for _, name := range r.order[c.scopes:] {
		delete(r.scopes, name)
	}
	r.order = r.order[:c.scopes]
}

func (r *Run) finalize() {
	r.shared.Finalize()
	for _, name := range r.order {
		r.scopes[name].Finalize()
	}
}

func (r *Run) registryFor(scope string) *registry.Registry {
	if scope == "" {
		return r.shared
	}
	if reg, ok := r.scopes[scope]; ok {
		return reg
	}
	return nil
}
