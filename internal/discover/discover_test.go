package discover

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func TestFiles_IncludeExclude(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, dir, "user.schema.json", "{}")
	writeFile(t, dir, "api/order.schema.json", "{}")
	writeFile(t, dir, "api/legacy/old.schema.json", "{}")
	writeFile(t, dir, "crds/widget.crd.yaml", "kind: CustomResourceDefinition")
	writeFile(t, dir, "readme.md", "hi")

	files, err := Files(dir, Options{
		Include: []string{"*.schema.json", "crds/*.yaml"},
		Exclude: []string{"api/legacy/"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"api/order.schema.json", "crds/widget.crd.yaml", "user.schema.json"}, files)
}

func TestFiles_SkipDirsAndHidden(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, dir, "a.schema.json", "{}")
	writeFile(t, dir, "node_modules/b.schema.json", "{}")
	writeFile(t, dir, ".cache/c.schema.json", "{}")
	writeFile(t, dir, ".d.schema.json", "{}")

	files, err := Files(dir, Options{Include: []string{"*.schema.json"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.schema.json"}, files)
}

func TestFiles_Gitignore(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, dir, ".gitignore", "gen/\nscratch.schema.json\n")
	writeFile(t, dir, "a.schema.json", "{}")
	writeFile(t, dir, "scratch.schema.json", "{}")
	writeFile(t, dir, "gen/a.schema.json", "{}")

	files, err := Files(dir, Options{Include: []string{"*.schema.json"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.schema.json"}, files)

	files, err = Files(dir, Options{Include: []string{"*.schema.json"}, NoGitignore: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.schema.json", "gen/a.schema.json", "scratch.schema.json"}, files)
}

func TestFiles_Errors(t *testing.T) {
	t.Parallel()
	_, err := Files(t.TempDir(), Options{})
	assert.Error(t, err)

	_, err = Files(filepath.Join(t.TempDir(), "missing"), Options{Include: []string{"*"}})
	assert.Error(t, err)
}
