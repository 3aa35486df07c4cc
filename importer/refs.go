package importer

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/reoring/skemac"
	"github.com/reoring/skemac/dsl"
	"github.com/reoring/skemac/schema"
)

// document is one decoded schema document and the definitions built from it,
// keyed by JSON pointer fragment ("" is the document root).
type document struct {
	uri      string
	root     any
	nodes    map[string]*schema.Node
	building map[string]bool
}

func newDocument(uri string, root any) *document {
	return &document{uri: uri, root: root, nodes: map[string]*schema.Node{}, building: map[string]bool{}}
}

// ref returns a lazy reference to the definition behind raw. The definition is
// built at most once per document and fragment, so self and mutual
// references close over the same node.
func (im *importer) ref(doc *document, raw, at string) (*schema.Node, error) {
	target, frag, err := im.locate(doc, raw)
	if err != nil {
		return nil, skemac.WithPath(err, at)
	}
	if _, err := im.def(target, frag); err != nil {
		return nil, err
	}
	return im.b.Lazy(func() *schema.Node { return target.nodes[frag] }), nil
}

// def builds (or returns) the definition node at frag in doc.
func (im *importer) def(doc *document, frag string) (*schema.Node, error) {
	if n, ok := doc.nodes[frag]; ok || doc.building[frag] {
		return n, nil
	}
	v, ok := lookup(doc.root, frag)
	if !ok {
		return nil, &skemac.Error{Err: skemac.ErrReferenceNotFound, Path: doc.uri + "#" + frag, Detail: "no schema at pointer"}
	}
	doc.building[frag] = true
	defer delete(doc.building, frag)
	n, err := im.node(doc, v, frag)
	if err != nil {
		return nil, err
	}
	if name := defName(doc, frag, v); name != "" && n.Name() == "" {
		dsl.Apply(n, dsl.Named(name))
	}
	doc.nodes[frag] = n
	return n, nil
}

// locate splits raw into a target document and a pointer fragment, fetching
// the document when raw leaves the current one.
func (im *importer) locate(doc *document, raw string) (*document, string, error) {
	base, frag, _ := strings.Cut(raw, "#")
	if frag != "" && !strings.HasPrefix(frag, "/") {
		return nil, "", &skemac.Error{Err: skemac.ErrReferenceNotFound, Detail: raw, Cause: fmt.Errorf("only JSON pointer fragments are supported")}
	}
	if base == "" {
		return doc, frag, nil
	}
	uri := resolveURI(doc.uri, base)
	if d, ok := im.docs[uri]; ok {
		return d, frag, nil
	}
	d, err := im.fetch(im.ctx, uri)
	if err != nil {
		return nil, "", err
	}
	return d, frag, nil
}

func (im *importer) fetch(ctx context.Context, uri string) (*document, error) {
	if im.opts.Fetcher == nil {
		return nil, &skemac.Error{Err: skemac.ErrMissingDependency, Detail: "remote reference " + uri + " requires a fetcher"}
	}
	data, err := im.opts.Fetcher.Fetch(ctx, uri)
	if err != nil {
		return nil, err
	}
	docs, err := decode(data)
	if err != nil {
		return nil, &skemac.Error{Err: skemac.ErrFetch, Detail: uri, Cause: err}
	}
	if len(docs) == 0 {
		return nil, &skemac.Error{Err: skemac.ErrFetch, Detail: uri, Cause: fmt.Errorf("empty document")}
	}
	d := newDocument(uri, docs[0])
	im.docs[uri] = d
	im.logger.Debug("fetched remote schema", "uri", uri, "bytes", len(data))
	return d, nil
}

func resolveURI(base, ref string) string {
	if base == "" {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil || r.IsAbs() {
		return ref
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	if b.Scheme == "" {
		// plain file path
		return path.Join(path.Dir(base), ref)
	}
	return b.ResolveReference(r).String()
}

// lookup walks a JSON pointer fragment through decoded JSON.
func lookup(root any, frag string) (any, bool) {
	if frag == "" {
		return root, root != nil
	}
	cur := root
	for _, tok := range strings.Split(frag[1:], "/") {
		tok = unescape(tok)
		switch t := cur.(type) {
		case map[string]any:
			v, ok := t[tok]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(tok)
			if err != nil || i < 0 || i >= len(t) {
				return nil, false
			}
			cur = t[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

func unescape(tok string) string {
	if u, err := url.PathUnescape(tok); err == nil {
		tok = u
	}
	return strings.NewReplacer("~1", "/", "~0", "~").Replace(tok)
}

// Escape encodes a key as a JSON pointer token.
func Escape(key string) string {
	return strings.NewReplacer("~", "~0", "/", "~1").Replace(key)
}

// defName names a definition after its last pointer token, or after the
// document for a root.
func defName(doc *document, frag string, v any) string {
	if frag != "" {
		return unescape(frag[strings.LastIndex(frag, "/")+1:])
	}
	if m, ok := v.(map[string]any); ok {
		if t, _ := m["title"].(string); t != "" {
			return t
		}
	}
	if doc.uri == "" {
		return ""
	}
	return baseName(doc.uri)
}

// baseName strips directories and schema extensions from a path or URI.
func baseName(p string) string {
	if u, err := url.Parse(p); err == nil && u.Path != "" {
		p = u.Path
	}
	name := path.Base(p)
	for _, ext := range []string{".schema.json", ".json", ".yaml", ".yml"} {
		if strings.HasSuffix(name, ext) {
			return strings.TrimSuffix(name, ext)
		}
	}
	return name
}

// hasRef reports whether any $ref appears below v.
func hasRef(v any) bool {
	switch t := v.(type) {
	case map[string]any:
		if _, ok := t["$ref"]; ok {
			return true
		}
		for _, c := range t {
			if hasRef(c) {
				return true
			}
		}
	case []any:
		for _, c := range t {
			if hasRef(c) {
				return true
			}
		}
	}
	return false
}
