package emit

import (
	"github.com/reoring/skemac/schema"
)

// FileType tags an output artifact.
type FileType int

const (
	TypeSchema FileType = iota
	TypeValidator
	TypeDeclaration
)

func (t FileType) String() string {
	switch t {
	case TypeSchema:
		return "schema"
	case TypeValidator:
		return "validator"
	case TypeDeclaration:
		return "declaration"
	default:
		return "unknown"
	}
}

// DepKind records how a file uses another.
type DepKind int

const (
	DepType  DepKind = iota // referenced only as a type
	DepValue                // referenced at runtime
)

// OutputFile is one physical artifact produced by a backend. Template holds
// text with placeholders until Phase 2 fills Text and Resolved.
type OutputFile struct {
	Path     string
	Type     FileType
	Scope    string // registry scope the template resolves against; "" is shared
	Template string
	Pretty   bool

	Resolved map[string]string // placeholder -> final value
	Text     string
	Symbols  []string

	Deps      map[string]DepKind // depended-upon path or import path
	Artifacts []*OutputFile      // side files written next to this one
	Clean     string             // directory removed before writing, if set
}

// AddDep records a dependency. A value use subsumes a type use.
func (f *OutputFile) AddDep(path string, k DepKind) {
	if f.Deps == nil {
		f.Deps = map[string]DepKind{}
	}
	if cur, ok := f.Deps[path]; ok && cur >= k {
		return
	}
	f.Deps[path] = k
}

// Flatten returns f followed by its artifacts, depth first.
func (f *OutputFile) Flatten() []*OutputFile {
	out := []*OutputFile{f}
	for _, a := range f.Artifacts {
		out = append(out, a.Flatten()...)
	}
	return out
}

// Export names one node a file exposes.
type Export struct {
	Name string
	Node *schema.Node
}

// Input is one source file and its exports in caller order.
type Input struct {
	Path    string
	Exports []Export
}
