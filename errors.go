package skemac

import (
	"errors"
	"fmt"
	"strings"
)

// Compile-time failure kinds. Every failure produced while rendering wraps one
// of these so callers can branch with errors.Is.
var (
	// ErrUnhandledNodeKind reports a non-commutative kind with no handler in a
	// visitor table.
	ErrUnhandledNodeKind = errors.New("unhandled node kind")
	// ErrUnsupportedConstruct reports a structurally invalid graph (for example
	// a wrapper without a child).
	ErrUnsupportedConstruct = errors.New("unsupported construct")
	// ErrUnsupportedSchemaConstruct reports a node the JSON Schema backend
	// cannot express. It aborts the current file.
	ErrUnsupportedSchemaConstruct = errors.New("unsupported schema construct")
	// ErrReferenceNotFound reports a placeholder that never received a value.
	ErrReferenceNotFound = errors.New("reference not found")
	// ErrFetch reports a terminal remote-schema resolution failure.
	ErrFetch = errors.New("remote schema fetch failed")
	// ErrMissingDependency reports a collaborator that was required but not
	// configured.
	ErrMissingDependency = errors.New("missing dependency")
)

// Category groups compile errors for reporting.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryStructural
	CategoryReference
	CategoryExternal
)

func (c Category) String() string {
	switch c {
	case CategoryStructural:
		return "structural"
	case CategoryReference:
		return "reference"
	case CategoryExternal:
		return "external"
	default:
		return "unknown"
	}
}

// CategoryOf classifies err by the sentinel it wraps.
func CategoryOf(err error) Category {
	switch {
	case err == nil:
		return CategoryUnknown
	case errors.Is(err, ErrUnhandledNodeKind), errors.Is(err, ErrUnsupportedConstruct), errors.Is(err, ErrUnsupportedSchemaConstruct):
		return CategoryStructural
	case errors.Is(err, ErrReferenceNotFound):
		return CategoryReference
	case errors.Is(err, ErrFetch), errors.Is(err, ErrMissingDependency):
		return CategoryExternal
	}
	return CategoryUnknown
}

// Error is a compile failure carrying the offending identity.
type Error struct {
	Err    error  // One of the sentinels above.
	Node   uint32 // Node identity (0 when unknown).
	Kind   string // Node kind name, when known.
	Attr   string // Registry attribute for reference failures.
	Path   string // Output or input path being processed.
	Detail string
	Cause  error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	b := &strings.Builder{}
	b.WriteString(e.Err.Error())
	if e.Node != 0 {
		fmt.Fprintf(b, " node=%d", e.Node)
	}
	if e.Kind != "" {
		fmt.Fprintf(b, " kind=%s", e.Kind)
	}
	if e.Attr != "" {
		fmt.Fprintf(b, " attr=%s", e.Attr)
	}
	if e.Path != "" {
		fmt.Fprintf(b, " path=%s", e.Path)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap exposes both the sentinel and the cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

// WithPath returns a copy of err annotated with path when err is an *Error
// without one; other errors are wrapped.
func WithPath(err error, path string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) && e.Path == "" {
		cp := *e
		cp.Path = path
		return &cp
	}
	if errors.As(err, &e) {
		return err
	}
	return fmt.Errorf("%s: %w", path, err)
}

// Issue codes reported by compiled validators.
const (
	CodeInvalidType          = "invalid_type"
	CodeRequired             = "required"
	CodeUnknownKey           = "unknown_key"
	CodeTooSmall             = "too_small"
	CodeTooBig               = "too_big"
	CodeTooShort             = "too_short"
	CodeTooLong              = "too_long"
	CodePattern              = "pattern"
	CodeInvalidEnum          = "invalid_enum"
	CodeInvalidFormat        = "invalid_format"
	CodeNotMultiple          = "not_multiple"
	CodeNotUnique            = "not_unique"
	CodeDiscriminatorMissing = "discriminator_missing"
	CodeDiscriminatorUnknown = "discriminator_unknown"
	CodeUnionNoMatch         = "union_no_match"
	CodeUnionAmbiguous       = "union_ambiguous"
	CodeRule                 = "rule"
)

// Issue represents a single validation entry.
type Issue struct {
	Path    string // JSON Pointer (for example: /items/2/price).
	Code    string // One of the codes listed above.
	Message string
	Hint    string // Optional: remediation hints, format names, etc.
	// Params carries structured parameters (e.g., {"min":1, "got":0}).
	Params map[string]any
}

// Issues is a collection of validation errors that implements error.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := len(iss)
	lim := min(n, maxShown)
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		it := iss[i]
		// e.g. invalid_type at /path
		fmt.Fprintf(b, "%s at %s", it.Code, it.Path)
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// AppendIssues appends issues to the destination, initializing the slice when
// needed.
func AppendIssues(dst Issues, more ...Issue) Issues {
	if dst == nil {
		dst = Issues{}
	}
	dst = append(dst, more...)
	return dst
}

// AsIssues extracts Issues from an error using errors.As internally.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	return nil, false
}

// AsError converts a non-empty Issues to an error and an empty one to nil.
// Generated validators return through this so callers can compare with nil.
func AsError(iss Issues) error {
	if len(iss) == 0 {
		return nil
	}
	return iss
}
