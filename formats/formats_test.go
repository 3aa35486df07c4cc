package formats_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/reoring/skemac/formats"
)

func TestCheckers(t *testing.T) {
	cases := []struct {
		format string
		good   []string
		bad    []string
	}{
		{"date-time", []string{"2024-01-02T03:04:05Z", "2024-01-02T03:04:05.123+09:00"}, []string{"2024-01-02", "yesterday"}},
		{"date", []string{"2024-02-29"}, []string{"2023-02-29", "2024/01/01"}},
		{"time", []string{"10:11:12Z", "10:11:12.5+01:00"}, []string{"25:00:00Z", "10:11"}},
		{"email", []string{"a@example.com"}, []string{"A <a@example.com>", "nope"}},
		{"hostname", []string{"example.com", "a-b.c", "localhost"}, []string{"-bad.com", "a..b", ""}},
		{"ipv4", []string{"192.168.0.1"}, []string{"::1", "256.0.0.1"}},
		{"ipv6", []string{"::1", "2001:db8::1"}, []string{"1.2.3.4", "fe80::1%eth0"}},
		{"uri", []string{"https://example.com/x?y=1", "urn:isbn:123"}, []string{"/relative", "example.com"}},
		{"uuid", []string{"123e4567-e89b-12d3-a456-426614174000"}, []string{"123e4567e89b12d3a456426614174000", "{123e4567-e89b-12d3-a456-426614174000}"}},
		{"regex", []string{"^a+$"}, []string{"(unclosed"}},
	}
	for _, tc := range cases {
		t.Run(tc.format, func(t *testing.T) {
			fn, ok := formats.Lookup(tc.format)
			assert.True(t, ok)
			for _, s := range tc.good {
				assert.True(t, fn(s), s)
			}
			for _, s := range tc.bad {
				assert.False(t, fn(s), s)
			}
		})
	}
}

func TestRegistry(t *testing.T) {
	_, ok := formats.Lookup("credit-card")
	assert.False(t, ok)
	name, ok := formats.FuncName("date-time")
	assert.True(t, ok)
	assert.Equal(t, "DateTime", name)
	assert.Len(t, formats.Names(), 10)
	assert.Equal(t, "date", formats.Names()[0])
}
