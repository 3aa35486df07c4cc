package skemac

import (
	"strconv"
	"strings"
)

// Pointer builds JSON Pointer paths in a chain-safe way and creates Issues.
// The zero value is the document root.
type Pointer struct {
	parts []string
}

// Root returns the root pointer.
func Root() Pointer { return Pointer{} }

// Field appends an escaped object key.
func (p Pointer) Field(name string) Pointer {
	// escape '~' -> '~0', '/' -> '~1' per RFC6901
	esc := strings.ReplaceAll(strings.ReplaceAll(name, "~", "~0"), "/", "~1")
	return Pointer{parts: append(append([]string{}, p.parts...), esc)}
}

// Index appends an array index.
func (p Pointer) Index(i int) Pointer {
	return Pointer{parts: append(append([]string{}, p.parts...), strconv.Itoa(i))}
}

// String renders the pointer; the root renders as "/".
func (p Pointer) String() string {
	if len(p.parts) == 0 {
		return "/"
	}
	return "/" + strings.Join(p.parts, "/")
}

// Issue creates an Issue at the pointer. kv is read as alternating key/value
// pairs into Params.
func (p Pointer) Issue(code, msg string, kv ...any) Issue {
	var m map[string]any
	if len(kv) >= 2 {
		m = make(map[string]any, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			k, _ := kv[i].(string)
			m[k] = kv[i+1]
		}
	}
	return Issue{Path: p.String(), Code: code, Message: msg, Params: m}
}
