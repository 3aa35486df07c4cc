// Package formats implements the string format checks used by compiled
// validators. Generated validators import only the checks they use.
package formats

import (
	"net/mail"
	"net/netip"
	"net/url"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ImportPath is the path generated code loads the checks from.
const ImportPath = "github.com/reoring/skemac/formats"

// Checker reports whether s is in the format.
type Checker func(s string) bool

var checkers = map[string]struct {
	fn   Checker
	name string
}{
	"date-time": {DateTime, "DateTime"},
	"date":      {Date, "Date"},
	"time":      {Time, "Time"},
	"email":     {Email, "Email"},
	"hostname":  {Hostname, "Hostname"},
	"ipv4":      {IPv4, "IPv4"},
	"ipv6":      {IPv6, "IPv6"},
	"uri":       {URI, "URI"},
	"uuid":      {UUID, "UUID"},
	"regex":     {Regex, "Regex"},
}

// Lookup returns the checker for a format name.
func Lookup(format string) (Checker, bool) {
	c, ok := checkers[format]
	return c.fn, ok
}

// FuncName returns the exported function implementing format.
func FuncName(format string) (string, bool) {
	c, ok := checkers[format]
	return c.name, ok
}

// Names lists the supported formats in sorted order.
func Names() []string {
	out := make([]string, 0, len(checkers))
	for k := range checkers {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// DateTime checks RFC 3339 date-time.
func DateTime(s string) bool {
	_, err := time.Parse(time.RFC3339Nano, s)
	return err == nil
}

// Date checks RFC 3339 full-date.
func Date(s string) bool {
	_, err := time.Parse(time.DateOnly, s)
	return err == nil
}

// Time checks RFC 3339 full-time.
func Time(s string) bool {
	_, err := time.Parse("15:04:05.999999999Z07:00", s)
	return err == nil
}

// Email checks a bare addr-spec (no display name).
func Email(s string) bool {
	a, err := mail.ParseAddress(s)
	return err == nil && a.Address == s
}

var labelRE = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9-]{0,61}[A-Za-z0-9])?$`)

// Hostname checks an RFC 1123 host name.
func Hostname(s string) bool {
	s = strings.TrimSuffix(s, ".")
	if s == "" || len(s) > 253 {
		return false
	}
	for _, label := range strings.Split(s, ".") {
		if !labelRE.MatchString(label) {
			return false
		}
	}
	return true
}

// IPv4 checks dotted-quad notation.
func IPv4(s string) bool {
	a, err := netip.ParseAddr(s)
	return err == nil && a.Is4()
}

// IPv6 checks RFC 4291 notation without zone.
func IPv6(s string) bool {
	a, err := netip.ParseAddr(s)
	return err == nil && a.Is6() && a.Zone() == ""
}

// URI checks an absolute URI.
func URI(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.IsAbs()
}

// UUID checks the canonical 8-4-4-4-12 form.
func UUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// Regex checks that s compiles as a regular expression.
func Regex(s string) bool {
	_, err := regexp.Compile(s)
	return err == nil
}
