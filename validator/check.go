package validator

import (
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"unicode/utf8"

	"github.com/goccy/go-json"

	"github.com/reoring/skemac"
	"github.com/reoring/skemac/i18n"
	"github.com/reoring/skemac/rules"
)

// The helpers below are the runtime of compiled validators. Closures built by
// Build and source emitted by the generator call the same functions, so both
// paths report identical issues.

// Check validates v located at p and appends problems to iss.
type Check func(v any, p skemac.Pointer, iss *skemac.Issues)

// Report appends an issue with a localized message. kv is read as alternating
// key/value pairs into the issue parameters.
func Report(iss *skemac.Issues, p skemac.Pointer, code string, kv ...any) {
	data := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		k, _ := kv[i].(string)
		data[k] = fmt.Sprint(kv[i+1])
	}
	*iss = skemac.AppendIssues(*iss, p.Issue(code, i18n.T(code, data), kv...))
}

// TypeName returns the JSON type of a decoded value.
func TypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	if _, ok := Num(v); ok {
		return "number"
	}
	return fmt.Sprintf("%T", v)
}

// Num converts any Go numeric value (and json.Number) to float64.
func Num(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func invalidType(iss *skemac.Issues, p skemac.Pointer, expected string, v any) {
	Report(iss, p, skemac.CodeInvalidType, "expected", expected, "got", TypeName(v))
}

// String asserts a string.
func String(v any, p skemac.Pointer, iss *skemac.Issues) (string, bool) {
	s, ok := v.(string)
	if !ok {
		invalidType(iss, p, "string", v)
	}
	return s, ok
}

// Number asserts a number. With coerce, numeric strings are accepted.
func Number(v any, p skemac.Pointer, iss *skemac.Issues, coerce bool) (float64, bool) {
	f, ok := Num(v)
	if !ok && coerce {
		if s, isStr := v.(string); isStr {
			var err error
			f, err = strconv.ParseFloat(s, 64)
			ok = err == nil && !math.IsInf(f, 0) && !math.IsNaN(f)
		}
	}
	if !ok {
		invalidType(iss, p, "number", v)
	}
	return f, ok
}

// Integer asserts a number without a fractional part.
func Integer(v any, p skemac.Pointer, iss *skemac.Issues, coerce bool) (float64, bool) {
	f, ok := Num(v)
	if !ok && coerce {
		if s, isStr := v.(string); isStr {
			var err error
			f, err = strconv.ParseFloat(s, 64)
			ok = err == nil
		}
	}
	if !ok || math.IsInf(f, 0) || f != math.Trunc(f) {
		invalidType(iss, p, "integer", v)
		return f, false
	}
	return f, true
}

// Boolean asserts a boolean. With coerce, "true" and "false" are accepted.
func Boolean(v any, p skemac.Pointer, iss *skemac.Issues, coerce bool) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		if coerce && (b == "true" || b == "false") {
			return b == "true", true
		}
	}
	invalidType(iss, p, "boolean", v)
	return false, false
}

// Null asserts null.
func Null(v any, p skemac.Pointer, iss *skemac.Issues) bool {
	if v != nil {
		invalidType(iss, p, "null", v)
		return false
	}
	return true
}

// Array asserts an array.
func Array(v any, p skemac.Pointer, iss *skemac.Issues) ([]any, bool) {
	a, ok := v.([]any)
	if !ok {
		invalidType(iss, p, "array", v)
	}
	return a, ok
}

// Object asserts an object.
func Object(v any, p skemac.Pointer, iss *skemac.Issues) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		invalidType(iss, p, "object", v)
	}
	return m, ok
}

// MinLength checks the rune count of s.
func MinLength(s string, p skemac.Pointer, iss *skemac.Issues, n int) {
	if got := utf8.RuneCountInString(s); got < n {
		Report(iss, p, skemac.CodeTooShort, "limit", n, "got", got, "unit", "characters")
	}
}

// MaxLength checks the rune count of s.
func MaxLength(s string, p skemac.Pointer, iss *skemac.Issues, n int) {
	if got := utf8.RuneCountInString(s); got > n {
		Report(iss, p, skemac.CodeTooLong, "limit", n, "got", got, "unit", "characters")
	}
}

// MinItems checks the length of a.
func MinItems(a []any, p skemac.Pointer, iss *skemac.Issues, n int) {
	if len(a) < n {
		Report(iss, p, skemac.CodeTooShort, "limit", n, "got", len(a), "unit", "items")
	}
}

// MaxItems checks the length of a.
func MaxItems(a []any, p skemac.Pointer, iss *skemac.Issues, n int) {
	if len(a) > n {
		Report(iss, p, skemac.CodeTooLong, "limit", n, "got", len(a), "unit", "items")
	}
}

// Minimum checks a lower bound.
func Minimum(f float64, p skemac.Pointer, iss *skemac.Issues, limit float64, exclusive bool) {
	switch {
	case exclusive && f <= limit:
		Report(iss, p, skemac.CodeTooSmall, "op", ">", "limit", limit, "got", f)
	case !exclusive && f < limit:
		Report(iss, p, skemac.CodeTooSmall, "op", ">=", "limit", limit, "got", f)
	}
}

// Maximum checks an upper bound.
func Maximum(f float64, p skemac.Pointer, iss *skemac.Issues, limit float64, exclusive bool) {
	switch {
	case exclusive && f >= limit:
		Report(iss, p, skemac.CodeTooBig, "op", "<", "limit", limit, "got", f)
	case !exclusive && f > limit:
		Report(iss, p, skemac.CodeTooBig, "op", "<=", "limit", limit, "got", f)
	}
}

// MultipleOf checks that f/m is integral, tolerating float rounding.
func MultipleOf(f float64, p skemac.Pointer, iss *skemac.Issues, m float64) {
	q := f / m
	if math.Abs(q-math.Round(q)) > 1e-9 {
		Report(iss, p, skemac.CodeNotMultiple, "limit", m, "got", f)
	}
}

// Pattern checks that re matches somewhere in s.
func Pattern(s string, p skemac.Pointer, iss *skemac.Issues, re *regexp.Regexp) {
	if !re.MatchString(s) {
		Report(iss, p, skemac.CodePattern, "pattern", re.String())
	}
}

// Format checks s with a format checker.
func Format(s string, p skemac.Pointer, iss *skemac.Issues, name string, fn func(string) bool) {
	if !fn(s) {
		Report(iss, p, skemac.CodeInvalidFormat, "format", name)
	}
}

// Enum checks that v equals one of values.
func Enum(v any, p skemac.Pointer, iss *skemac.Issues, values ...any) {
	for _, want := range values {
		if Equal(v, want) {
			return
		}
	}
	Report(iss, p, skemac.CodeInvalidEnum, "allowed", len(values))
}

// Equal compares decoded JSON values; numbers compare by value.
func Equal(a, b any) bool {
	if fa, ok := Num(a); ok {
		fb, ok := Num(b)
		return ok && fa == fb
	}
	switch x := a.(type) {
	case nil:
		return b == nil
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	case string:
		y, ok := b.(string)
		return ok && x == y
	case []any:
		y, ok := b.([]any)
		return ok && slices.EqualFunc(x, y, Equal)
	case map[string]any:
		y, ok := b.(map[string]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for k, xv := range x {
			yv, ok := y[k]
			if !ok || !Equal(xv, yv) {
				return false
			}
		}
		return true
	}
	return false
}

// Unique reports the first item equal to an earlier one.
func Unique(a []any, p skemac.Pointer, iss *skemac.Issues) {
	for i := 1; i < len(a); i++ {
		for j := 0; j < i; j++ {
			if Equal(a[i], a[j]) {
				Report(iss, p.Index(i), skemac.CodeNotUnique, "duplicateOf", j)
				return
			}
		}
	}
}

// Items checks every item of a.
func Items(a []any, p skemac.Pointer, iss *skemac.Issues, check Check) {
	for i, x := range a {
		check(x, p.Index(i), iss)
	}
}

// Tuple checks the positional prefix of a. Items past the prefix go to rest;
// a closed tuple rejects them and a nil rest accepts them.
func Tuple(a []any, p skemac.Pointer, iss *skemac.Issues, minItems int, closed bool, rest Check, items ...Check) {
	MinItems(a, p, iss, minItems)
	if closed {
		MaxItems(a, p, iss, len(items))
	}
	for i, x := range a {
		switch {
		case i < len(items):
			items[i](x, p.Index(i), iss)
		case rest != nil:
			rest(x, p.Index(i), iss)
		}
	}
}

// Required reports every missing key.
func Required(m map[string]any, p skemac.Pointer, iss *skemac.Issues, keys ...string) {
	for _, k := range keys {
		if _, ok := m[k]; !ok {
			Report(iss, p.Field(k), skemac.CodeRequired, "key", k)
		}
	}
}

// Field checks m[key] when present.
func Field(m map[string]any, p skemac.Pointer, iss *skemac.Issues, key string, check Check) {
	if x, ok := m[key]; ok {
		check(x, p.Field(key), iss)
	}
}

// unknownKeys returns the keys of m not in known, sorted.
func unknownKeys(m map[string]any, known []string) []string {
	var out []string
	for k := range m {
		if !slices.Contains(known, k) {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out
}

// Unknown reports every key of m not in known.
func Unknown(m map[string]any, p skemac.Pointer, iss *skemac.Issues, known ...string) {
	for _, k := range unknownKeys(m, known) {
		Report(iss, p.Field(k), skemac.CodeUnknownKey, "key", k)
	}
}

// Additional checks every key of m not in known against check.
func Additional(m map[string]any, p skemac.Pointer, iss *skemac.Issues, check Check, known ...string) {
	for _, k := range unknownKeys(m, known) {
		check(m[k], p.Field(k), iss)
	}
}

// KeyPattern checks every key of m against re.
func KeyPattern(m map[string]any, p skemac.Pointer, iss *skemac.Issues, re *regexp.Regexp) {
	for _, k := range unknownKeys(m, nil) {
		if !re.MatchString(k) {
			Report(iss, p.Field(k), skemac.CodePattern, "pattern", re.String(), "key", k)
		}
	}
}

// AnyOf accepts v when at least one variant accepts it. A single variant
// reports its own issues.
func AnyOf(v any, p skemac.Pointer, iss *skemac.Issues, variants ...Check) {
	if len(variants) == 1 {
		variants[0](v, p, iss)
		return
	}
	for _, check := range variants {
		var sub skemac.Issues
		check(v, p, &sub)
		if len(sub) == 0 {
			return
		}
	}
	Report(iss, p, skemac.CodeUnionNoMatch, "variants", len(variants))
}

// OneOf accepts v when exactly one variant accepts it.
func OneOf(v any, p skemac.Pointer, iss *skemac.Issues, variants ...Check) {
	matched := 0
	for _, check := range variants {
		var sub skemac.Issues
		check(v, p, &sub)
		if len(sub) == 0 {
			matched++
		}
	}
	switch {
	case matched == 0:
		Report(iss, p, skemac.CodeUnionNoMatch, "variants", len(variants))
	case matched > 1:
		Report(iss, p, skemac.CodeUnionAmbiguous, "matched", matched)
	}
}

// Tagged dispatches v on the value of its discriminator property. Issues of
// the selected variant are reported as they are.
func Tagged(v any, p skemac.Pointer, iss *skemac.Issues, prop string, variants map[string]Check) {
	m, ok := Object(v, p, iss)
	if !ok {
		return
	}
	tag, ok := m[prop]
	if !ok {
		Report(iss, p.Field(prop), skemac.CodeDiscriminatorMissing, "key", prop)
		return
	}
	check, ok := variants[fmt.Sprint(tag)]
	if !ok {
		Report(iss, p.Field(prop), skemac.CodeDiscriminatorUnknown, "key", prop, "value", tag)
		return
	}
	check(v, p, iss)
}

// Predicate is a compiled rule with its failure message.
type Predicate struct {
	Program *rules.Program
	Message string
}

// Rules evaluates ps against v when no issue was added since mark. Compiled
// validators defer it with mark = len(*iss) taken on entry.
func Rules(v any, p skemac.Pointer, iss *skemac.Issues, mark int, ps ...Predicate) {
	if len(*iss) > mark {
		return
	}
	for _, pr := range ps {
		ok, err := pr.Program.Eval(v)
		if ok && err == nil {
			continue
		}
		kv := []any{"rule", pr.Program.Expr()}
		if err != nil {
			kv = append(kv, "error", err.Error())
		}
		Report(iss, p, skemac.CodeRule, kv...)
		if pr.Message != "" {
			(*iss)[len(*iss)-1].Message = pr.Message
		}
	}
}
