package importer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadYAML_Shapes(t *testing.T) {
	docs, err := ReadYAML([]byte("a: 1\nb: [true, ~, 2.5, x]\n---\nc: {d: 0x10}\n"))
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, map[string]any{"a": 1.0, "b": []any{true, nil, 2.5, "x"}}, docs[0])
	assert.Equal(t, map[string]any{"c": map[string]any{"d": 16.0}}, docs[1])
}

func TestReadYAML_DuplicateKey(t *testing.T) {
	_, err := ReadYAML([]byte("spec:\n  a: 1\n  b: 2\n  a: 3\n"))
	var dup *DuplicateKeyError
	require.True(t, errors.As(err, &dup), "got %v", err)
	assert.Equal(t, "a", dup.Key)
	assert.Equal(t, 2, dup.FirstLine)
	assert.Equal(t, 4, dup.Line)
}

func TestDecode_SkipsEmptyDocuments(t *testing.T) {
	docs, err := decode([]byte("---\n---\ntype: string\n"))
	require.NoError(t, err)
	assert.Equal(t, []any{map[string]any{"type": "string"}}, docs)

	docs, err = decode([]byte(` {"type": "integer"}`))
	require.NoError(t, err)
	assert.Equal(t, []any{map[string]any{"type": "integer"}}, docs)
}

func TestResolveURI(t *testing.T) {
	assert.Equal(t, "https://x.test/a/b.json", resolveURI("https://x.test/a/root.json", "b.json"))
	assert.Equal(t, "https://y.test/c.json", resolveURI("https://x.test/a/root.json", "https://y.test/c.json"))
	assert.Equal(t, "schemas/common.json", resolveURI("schemas/root.json", "common.json"))
	assert.Equal(t, "common.json", resolveURI("", "common.json"))
}

func TestLookup(t *testing.T) {
	root := map[string]any{"a/b": map[string]any{"c~d": []any{"x", "y"}}}
	v, ok := lookup(root, "/a~1b/c~0d/1")
	require.True(t, ok)
	assert.Equal(t, "y", v)
	_, ok = lookup(root, "/a~1b/missing")
	assert.False(t, ok)
}

func TestCheckJSONDuplicateKeys(t *testing.T) {
	require.NoError(t, checkJSONDuplicateKeys([]byte(`{"a": [1, {"b": 1}], "c": {"b": 2}}`)))

	err := checkJSONDuplicateKeys([]byte(`{"defs": [{"x": 1}, {"y": {"k": 1, "k": 2}}]}`))
	var dup *DuplicateKeyError
	require.True(t, errors.As(err, &dup), "got %v", err)
	assert.Equal(t, "k", dup.Key)
	assert.Equal(t, "/defs/1/y", dup.Path)

	_, err = decode([]byte(`{"type": "string", "type": "number"}`))
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "", dup.Path)
}
