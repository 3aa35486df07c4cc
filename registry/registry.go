package registry

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/reoring/skemac"
	"github.com/reoring/skemac/schema"
)

// Attribute keys understood by the registry.
const (
	AttrSymbol = "symbol" // emitted symbol name
	AttrRef    = "ref"    // name used when referring to the symbol
	AttrUnique = "unique" // run-wide unique name
	AttrFile   = "file"   // owning file path
)

// MaxDepth bounds placeholder substitution passes.
const MaxDepth = 3

// Key identifies one lazily computed value.
type Key struct {
	Node   schema.ID
	Attr   string
	Target schema.Target
}

// Placeholder returns the token standing in for (id, attr) until Resolve.
func Placeholder(id schema.ID, attr string) string {
	return "{{" + id.String() + ":" + attr + "}}"
}

var placeholderRE = regexp.MustCompile(`\{\{(\d+):([A-Za-z_][A-Za-z0-9_]*)\}\}`)

// ParsePlaceholder reports the node and attribute of a single token.
func ParsePlaceholder(tok string) (schema.ID, string, bool) {
	m := placeholderRE.FindStringSubmatch(tok)
	if m == nil || m[0] != tok {
		return 0, "", false
	}
	id, err := strconv.ParseUint(m[1], 10, 32)
	if err != nil {
		return 0, "", false
	}
	return schema.ID(id), m[2], true
}

// HasPlaceholders reports whether s still contains a token.
func HasPlaceholders(s string) bool { return placeholderRE.MatchString(s) }

// DeriveFunc computes a derived attribute from a final symbol and its file.
type DeriveFunc func(symbol, file string) string

type entry struct {
	id       schema.ID
	file     string
	base     string
	explicit bool
	seq      int
}

// Registry maps (node, attribute) to a final string for one target.
type Registry struct {
	target  schema.Target
	graph   *schema.Graph
	entries map[schema.ID]*entry
	seq     int
	links   map[schema.ID]string
	values  map[Key]string
	symbols map[string][]string // file -> symbols in first-seen order

	fallback func(pos int) string
	derive   map[string]DeriveFunc

	// undo log for Mark/Discard
	journal []func()
	final   bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithFallback replaces the positional naming used for nodes that have
// neither a name nor a hint.
func WithFallback(fn func(pos int) string) Option {
	return func(r *Registry) { r.fallback = fn }
}

// WithDerive installs fn for attr (for example AttrRef).
func WithDerive(attr string, fn DeriveFunc) Option {
	return func(r *Registry) { r.derive[attr] = fn }
}

// New returns an empty registry for target over g.
func New(g *schema.Graph, target schema.Target, opts ...Option) *Registry {
	r := &Registry{
		target:  target,
		graph:   g,
		entries: map[schema.ID]*entry{},
		links:   map[schema.ID]string{},
		fallback: func(pos int) string {
			return "Schema" + strconv.Itoa(pos)
		},
		derive: map[string]DeriveFunc{
			AttrRef:    func(symbol, _ string) string { return symbol },
			AttrUnique: func(symbol, file string) string { return file + "#" + symbol },
		},
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Target returns the backend target the registry serves.
func (r *Registry) Target() schema.Target { return r.target }

// Graph returns the graph nodes are looked up in.
func (r *Registry) Graph() *schema.Graph { return r.graph }

// Link forces the symbol of id (a hardlink). The value may itself contain
// placeholders; they are resolved like any other text. Literal parts are
// sanitized like derived names, and a symbol left empty is ignored.
func (r *Registry) Link(id schema.ID, symbol string) {
	symbol = sanitizeLink(symbol)
	if symbol == "" {
		return
	}
	prev, had := r.links[id]
	r.links[id] = symbol
	r.record(func() {
		if had {
			r.links[id] = prev
		} else {
			delete(r.links, id)
		}
	})
}

// Declare registers id as a standalone symbol owned by file. hint is used
// when the node has no name of its own. An explicit declaration takes
// ownership from an earlier inline one; otherwise the first declaration wins.
// It reports whether the call changed ownership.
func (r *Registry) Declare(id schema.ID, file, hint string, explicit bool) bool {
	if r.final {
		panic("registry: Declare after Finalize")
	}
	if e, ok := r.entries[id]; ok {
		if !explicit || e.explicit {
			return false
		}
		prev := *e
		e.file, e.explicit = file, true
		if h := r.baseName(id, hint, e.seq); h != "" {
			e.base = h
		}
		r.record(func() { *e = prev })
		return true
	}
	r.seq++
	e := &entry{id: id, file: file, explicit: explicit, seq: r.seq}
	e.base = r.baseName(id, hint, e.seq)
	r.entries[id] = e
	r.record(func() { delete(r.entries, id) })
	return true
}

// Declared reports whether id has been declared.
func (r *Registry) Declared(id schema.ID) bool {
	_, ok := r.entries[id]
	return ok
}

// Owner returns the owning file of a declared node.
func (r *Registry) Owner(id schema.ID) (string, bool) {
	e, ok := r.entries[id]
	if !ok {
		return "", false
	}
	return e.file, true
}

// Reference returns the placeholder for (id, attr). The node need not be
// declared yet; an undeclared node fails at Resolve.
func (r *Registry) Reference(id schema.ID, attr string) string {
	return Placeholder(id, attr)
}

func (r *Registry) baseName(id schema.ID, hint string, pos int) string {
	n := r.graph.Node(id)
	for _, cand := range []string{nodeName(n), hint, nodeHint(n)} {
		if s := Sanitize(cand); s != "" {
			return s
		}
	}
	return r.fallback(pos)
}

func nodeName(n *schema.Node) string {
	if n == nil {
		return ""
	}
	return n.Name()
}

func nodeHint(n *schema.Node) string {
	if n == nil {
		return ""
	}
	return n.Hint()
}

// Sanitize turns s into an identifier: runs of other characters split words,
// each following word is capitalized, and a leading digit gets an underscore.
func Sanitize(s string) string { return sanitize(s, true) }

func sanitize(s string, leading bool) string {
	var b strings.Builder
	upper := false
	for _, r := range s {
		switch {
		case r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r):
			if upper && b.Len() > 0 {
				r = unicode.ToUpper(r)
			}
			upper = false
			b.WriteRune(r)
		default:
			upper = true
		}
	}
	out := b.String()
	if leading && out != "" && unicode.IsDigit(rune(out[0])) {
		out = "_" + out
	}
	return out
}

// sanitizeLink sanitizes the text between placeholders, keeping the
// placeholders themselves.
func sanitizeLink(s string) string {
	locs := placeholderRE.FindAllStringIndex(s, -1)
	if len(locs) == 0 {
		return Sanitize(s)
	}
	var b strings.Builder
	last := 0
	for _, loc := range locs {
		b.WriteString(sanitize(s[last:loc[0]], last == 0))
		b.WriteString(s[loc[0]:loc[1]])
		last = loc[1]
	}
	b.WriteString(sanitize(s[last:], false))
	return b.String()
}

// Mark returns a checkpoint for Discard.
func (r *Registry) Mark() int { return len(r.journal) }

// Discard undoes every Declare and Link made after mark.
func (r *Registry) Discard(mark int) {
	for i := len(r.journal) - 1; i >= mark && i >= 0; i-- {
		r.journal[i]()
	}
	if mark < len(r.journal) {
		r.journal = r.journal[:mark]
	}
}

func (r *Registry) record(undo func()) { r.journal = append(r.journal, undo) }

// Finalize assigns every declared node its final symbol. Within one owning
// file, nodes sharing a base name keep declaration order: the first keeps
// the bare name and later ones get 0, 1, 2, ... skipping names already taken.
// Files are processed in sorted path order. Finalize is idempotent.
func (r *Registry) Finalize() {
	if r.final {
		return
	}
	r.final = true
	r.values = map[Key]string{}
	r.symbols = map[string][]string{}

	byFile := map[string][]*entry{}
	for _, e := range r.entries {
		byFile[e.file] = append(byFile[e.file], e)
	}
	files := make([]string, 0, len(byFile))
	for f := range byFile {
		files = append(files, f)
	}
	sort.Strings(files)

	for _, file := range files {
		group := byFile[file]
		sort.Slice(group, func(i, j int) bool { return group[i].seq < group[j].seq })

		taken := map[string]bool{}
		for _, e := range group {
			if l, ok := r.links[e.id]; ok {
				taken[l] = true
			} else {
				taken[e.base] = true
			}
		}
		used := map[string]bool{}
		next := map[string]int{}
		for _, e := range group {
			sym, linked := r.links[e.id]
			if !linked {
				sym = e.base
				if used[sym] {
					for {
						cand := e.base + strconv.Itoa(next[e.base])
						next[e.base]++
						if !taken[cand] && !used[cand] {
							sym = cand
							break
						}
					}
				}
			}
			used[sym] = true
			r.set(e.id, AttrSymbol, sym)
			r.set(e.id, AttrFile, file)
			for attr, fn := range r.derive {
				r.set(e.id, attr, fn(sym, file))
			}
			r.symbols[file] = append(r.symbols[file], sym)
		}
	}
}

func (r *Registry) set(id schema.ID, attr, v string) {
	r.values[Key{Node: id, Attr: attr, Target: r.target}] = v
}

// Lookup returns the final value of (id, attr). It is valid after Finalize.
func (r *Registry) Lookup(id schema.ID, attr string) (string, bool) {
	v, ok := r.values[Key{Node: id, Attr: attr, Target: r.target}]
	return v, ok
}

// Symbols returns the final symbols owned by file in declaration order.
func (r *Registry) Symbols(file string) []string {
	return append([]string(nil), r.symbols[file]...)
}

// Resolve substitutes every placeholder in text. Substituted values may
// contain placeholders themselves; up to MaxDepth passes are made. It returns
// the final text and the token -> value map that was applied. A token left
// after the last pass fails with ErrReferenceNotFound.
func (r *Registry) Resolve(text string) (string, map[string]string, error) {
	r.Finalize()
	resolved := map[string]string{}
	for i := 0; i < MaxDepth; i++ {
		if !placeholderRE.MatchString(text) {
			break
		}
		text = placeholderRE.ReplaceAllStringFunc(text, func(tok string) string {
			id, attr, _ := ParsePlaceholder(tok)
			v, ok := r.Lookup(id, attr)
			if !ok {
				return tok
			}
			if _, seen := resolved[tok]; !seen {
				resolved[tok] = v
			}
			return v
		})
	}
	if m := placeholderRE.FindString(text); m != "" {
		id, attr, _ := ParsePlaceholder(m)
		return "", nil, &skemac.Error{
			Err:    skemac.ErrReferenceNotFound,
			Node:   uint32(id),
			Attr:   attr,
			Detail: fmt.Sprintf("target %s", r.target),
		}
	}
	return text, resolved, nil
}
