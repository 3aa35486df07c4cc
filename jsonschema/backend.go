package jsonschema

import (
	"context"
	"path"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/reoring/skemac"
	"github.com/reoring/skemac/emit"
	"github.com/reoring/skemac/fetch"
	"github.com/reoring/skemac/schema"
)

// AttrPath is the export attribute holding the document path. OnExport hooks
// may override it to relocate the document.
const AttrPath = "path"

// Backend renders every export of an input into a self-contained schema
// document and, for validator exports in source mode, a compiled validator
// package.
type Backend struct {
	Dialect   skemac.Dialect
	SchemaURI bool
	Strict    bool
	Pretty    bool
	// Dir prefixes every output path.
	Dir      string
	Fetcher  fetch.Fetcher
	Compiler Compiler
	// Validators compiles validator exports in source mode. When false,
	// validator wrappers render as plain documents.
	Validators bool
}

var _ emit.Backend = (*Backend)(nil)

func (b *Backend) Target() schema.Target { return Target }

// Scan renders the exports of in. Every document is its own registry scope,
// so definitions are named per document.
func (b *Backend) Scan(ctx context.Context, run *emit.Run, in emit.Input) ([]*emit.OutputFile, error) {
	var out []*emit.OutputFile
	for _, ex := range in.Exports {
		f, err := b.export(ctx, run, in, ex)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func (b *Backend) export(ctx context.Context, run *emit.Run, in emit.Input, ex emit.Export) (*emit.OutputFile, error) {
	g := run.Graph
	base := path.Join(b.Dir, path.Dir(filepath.ToSlash(in.Path)))
	docPath := path.Join(base, fileStem(ex.Name)+".schema.json")
	x := schema.NewExport(Target, ex.Name, map[string]string{AttrPath: docPath})
	if err := g.Export(ex.Node, x); err != nil {
		return nil, err
	}
	if p, ok := x.Attr(AttrPath); ok && p != "" {
		docPath = p
	}

	reg := run.Scope(docPath)
	reg.Declare(ex.Node.ID(), docPath, ex.Name, true)
	doc, err := Render(ctx, g, ex.Node, reg, Options{
		Dialect:   b.Dialect,
		SchemaURI: b.SchemaURI,
		Strict:    b.Strict,
		Fetcher:   b.Fetcher,
		Path:      docPath,
	})
	if err != nil {
		return nil, err
	}
	tpl, err := doc.Template()
	if err != nil {
		return nil, err
	}
	file := &emit.OutputFile{
		Path:     docPath,
		Type:     emit.TypeSchema,
		Scope:    docPath,
		Template: string(tpl),
		Pretty:   b.Pretty,
	}
	run.Logger.Debug("rendered schema", "file", in.Path, "export", ex.Name, "definitions", len(doc.Definitions))

	vn := ValidatorOf(g, ex.Node)
	if vn == nil || !b.Validators || vn.ValidatorOptions().Mode != skemac.ModeSource {
		return file, nil
	}
	if b.Compiler == nil {
		return nil, &skemac.Error{Err: skemac.ErrMissingDependency, Node: uint32(vn.ID()), Kind: vn.Kind().String(), Detail: "no validator compiler"}
	}
	vo := vn.ValidatorOptions()
	pkg := packageName(ex.Name) + "validator"
	compiled, err := b.Compiler.Compile(ctx, tpl, CompileOptions{
		Dialect:       b.Dialect,
		Mode:          skemac.ModeSource,
		Coerce:        vo.Coerce,
		Formats:       vo.Formats,
		Assert:        vo.Assert,
		Discriminator: doc.Discriminator,
		Package:       pkg,
		FuncName:      "Validate",
	})
	if err != nil {
		return nil, err
	}
	src, deps, err := RewriteDynamicLoads(compiled.Source)
	if err != nil {
		return nil, err
	}
	dir := path.Join(base, fileStem(ex.Name)+"_validator")
	vf := &emit.OutputFile{
		Path:     path.Join(dir, "validator.go"),
		Type:     emit.TypeValidator,
		Scope:    docPath,
		Template: src,
		Pretty:   true,
		Clean:    dir,
	}
	for _, d := range deps {
		vf.AddDep(d, emit.DepValue)
	}
	vf.AddDep(docPath, emit.DepType)
	file.Artifacts = append(file.Artifacts, vf)
	run.Logger.Debug("compiled validator", "export", ex.Name, "formats", compiled.UsedFormats, "imports", len(deps))
	return file, nil
}

// fileStem converts an export name to snake case.
func fileStem(name string) string {
	var b strings.Builder
	prevLower := false
	for _, r := range name {
		switch {
		case unicode.IsUpper(r):
			if prevLower {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			prevLower = false
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			prevLower = true
		default:
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "_") {
				b.WriteByte('_')
			}
			prevLower = false
		}
	}
	s := strings.Trim(b.String(), "_")
	if s == "" {
		return "schema"
	}
	return s
}

// packageName lowercases name and drops non-identifier characters.
func packageName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9' && b.Len() > 0) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
