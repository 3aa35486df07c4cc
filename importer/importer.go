package importer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/goccy/go-json"

	"github.com/reoring/skemac"
	"github.com/reoring/skemac/dsl"
	"github.com/reoring/skemac/emit"
	"github.com/reoring/skemac/schema"
)

// Format identifies the shape of an imported document.
type Format string

const (
	FormatJSONSchema Format = "jsonschema"
	FormatOpenAPI    Format = "openapi"
	FormatCRD        Format = "crd"
)

// Result is the outcome of one import.
type Result struct {
	Graph   *schema.Graph
	Format  Format
	Exports []emit.Export
	Diag    Diag
}

// Input returns the exports as a pipeline input owned by p.
func (r *Result) Input(p string) emit.Input {
	return emit.Input{Path: p, Exports: append([]emit.Export(nil), r.Exports...)}
}

// Dialect suggests the output dialect matching the input format.
func (r *Result) Dialect() skemac.Dialect {
	if r.Format == FormatJSONSchema {
		return skemac.DialectJSONSchema
	}
	return skemac.DialectOpenAPI
}

type importer struct {
	ctx    context.Context
	b      *dsl.Builder
	opts   Options
	d      *simpleDiag
	crd    bool
	docs   map[string]*document
	logger *slog.Logger
}

// Import decodes data (JSON, or YAML with one or more documents) and adds its
// schemas to a graph. Plain JSON Schema documents export their root; OpenAPI
// documents export every component schema; CRDs export one schema per kind.
func Import(ctx context.Context, data []byte, opts Options) (*Result, error) {
	docs, err := decode(data)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, errors.New("importer: empty input")
	}
	return importDocs(ctx, docs, opts)
}

// ImportFile imports the document at p. Relative remote references resolve
// against p unless opts.BaseURI is set.
func ImportFile(ctx context.Context, p string, opts Options) (*Result, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("importer: %w", err)
	}
	if opts.BaseURI == "" {
		opts.BaseURI = filepath.ToSlash(p)
	}
	if opts.Name == "" {
		opts.Name = baseName(filepath.ToSlash(p))
	}
	res, err := Import(ctx, data, opts)
	if err != nil {
		return nil, skemac.WithPath(err, p)
	}
	return res, nil
}

// ImportValue imports an already decoded document.
func ImportValue(ctx context.Context, doc any, opts Options) (*Result, error) {
	if doc == nil {
		return nil, errors.New("importer: nil schema")
	}
	norm, err := normalize(doc)
	if err != nil {
		return nil, err
	}
	return importDocs(ctx, []any{norm}, opts)
}

func importDocs(ctx context.Context, docs []any, opts Options) (*Result, error) {
	if opts.Graph == nil {
		opts.Graph = schema.New()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	im := &importer{
		ctx:    ctx,
		b:      dsl.On(opts.Graph),
		opts:   opts,
		d:      &simpleDiag{},
		docs:   map[string]*document{},
		logger: logger,
	}
	res := &Result{Graph: opts.Graph, Diag: im.d}
	var err error
	switch {
	case isCRD(docs[0]):
		res.Format = FormatCRD
		res.Exports, err = im.crds(docs)
	case isOpenAPI(docs[0]):
		res.Format = FormatOpenAPI
		res.Exports, err = im.components(docs[0])
	default:
		res.Format = FormatJSONSchema
		if len(docs) > 1 {
			im.d.warnf("ignoring %d trailing documents", len(docs)-1)
		}
		var e emit.Export
		e, err = im.root(docs[0])
		res.Exports = []emit.Export{e}
	}
	if err != nil {
		return nil, err
	}
	for _, w := range im.d.ws {
		logger.Warn("import", "warning", w)
	}
	logger.Debug("imported", "format", res.Format, "exports", len(res.Exports), "nodes", opts.Graph.Len())
	return res, nil
}

func (im *importer) root(v any) (emit.Export, error) {
	doc := newDocument(im.opts.BaseURI, v)
	if doc.uri != "" {
		im.docs[doc.uri] = doc
	}
	n, err := im.def(doc, "")
	if err != nil {
		return emit.Export{}, err
	}
	name, _ := lookup(v, "/title")
	title, _ := name.(string)
	switch {
	case title != "":
	case im.opts.Name != "":
		title = im.opts.Name
	case n.Name() != "":
		title = n.Name()
	default:
		title = "Schema"
	}
	dsl.Apply(n, dsl.Named(title))
	return emit.Export{Name: title, Node: n}, nil
}

// components exports every schema under components.schemas (OpenAPI 3) or
// definitions (Swagger 2), in name order.
func (im *importer) components(v any) ([]emit.Export, error) {
	doc := newDocument(im.opts.BaseURI, v)
	if doc.uri != "" {
		im.docs[doc.uri] = doc
	}
	prefix := "/components/schemas/"
	schemas, ok := lookup(v, "/components/schemas")
	if !ok {
		prefix = "/definitions/"
		schemas, _ = lookup(v, "/definitions")
	}
	m, _ := schemas.(map[string]any)
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	out := make([]emit.Export, 0, len(names))
	for _, name := range names {
		n, err := im.def(doc, prefix+Escape(name))
		if err != nil {
			return nil, err
		}
		out = append(out, emit.Export{Name: name, Node: n})
	}
	return out, nil
}

func isOpenAPI(v any) bool {
	m, _ := v.(map[string]any)
	if m == nil {
		return false
	}
	_, oas := m["openapi"]
	_, swagger := m["swagger"]
	return oas || swagger
}

// decode reads JSON, or a YAML stream, into JSON-shaped values.
func decode(data []byte) ([]any, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		var v any
		if err := json.Unmarshal(trimmed, &v); err != nil {
			return nil, fmt.Errorf("importer: invalid JSON: %w", err)
		}
		if err := checkJSONDuplicateKeys(trimmed); err != nil {
			return nil, fmt.Errorf("importer: %w", err)
		}
		return []any{v}, nil
	}
	docs, err := ReadYAML(data)
	if err != nil {
		return nil, fmt.Errorf("importer: invalid YAML: %w", err)
	}
	out := docs[:0]
	for _, d := range docs {
		if d != nil {
			out = append(out, d)
		}
	}
	return out, nil
}

// normalize converts caller supplied values into the decoded JSON shape.
func normalize(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("importer: cannot marshal input: %w", err)
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("importer: invalid marshaled JSON: %w", err)
	}
	return out, nil
}
