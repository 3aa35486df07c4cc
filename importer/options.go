package importer

import (
	"fmt"
	"log/slog"

	"github.com/reoring/skemac/fetch"
	"github.com/reoring/skemac/schema"
)

// UnknownBehavior configures how keys outside the declared properties are
// treated when the document does not say.
type UnknownBehavior int

const (
	// UnknownDefault follows the document: additionalProperties false is
	// strict, everything else passes through. CRDs default to pruning.
	UnknownDefault UnknownBehavior = iota
	UnknownPrune
	UnknownStrict
	UnknownPreserve
)

// Options controls import behavior.
type Options struct {
	// Graph receives the imported nodes; nil creates a fresh graph.
	Graph *schema.Graph
	// Fetcher resolves remote $ref targets. Without one, remote refs fail
	// with ErrMissingDependency.
	Fetcher fetch.Fetcher
	// BaseURI resolves relative remote refs of the top-level document.
	BaseURI string
	// Name names the root export of a plain schema document without title.
	Name string
	// Kind selects a single CRD by spec.names.kind in a bundle.
	Kind    string
	Unknown UnknownBehavior
	// EnableCEL imports x-kubernetes-validations as rules.
	EnableCEL bool
	// EnableEmbeddedChecks requires apiVersion and kind on
	// x-kubernetes-embedded-resource objects.
	EnableEmbeddedChecks bool
	Logger               *slog.Logger
}

// Diag carries non-fatal warnings produced during import.
type Diag interface {
	HasWarnings() bool
	Warnings() []string
}

type simpleDiag struct{ ws []string }

func (d *simpleDiag) HasWarnings() bool        { return len(d.ws) > 0 }
func (d *simpleDiag) Warnings() []string       { return append([]string(nil), d.ws...) }
func (d *simpleDiag) warnf(f string, a ...any) { d.ws = append(d.ws, fmt.Sprintf(f, a...)) }
