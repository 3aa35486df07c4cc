package emit

import (
	"bytes"
	"fmt"
	"go/format"
	"path/filepath"

	"github.com/goccy/go-json"
)

// Formatter pretty-prints resolved text. Unknown file types pass through.
type Formatter interface {
	Format(path string, src []byte) ([]byte, error)
}

// SourceFormatter formats Go sources with go/format and JSON documents with
// two-space indentation.
type SourceFormatter struct{}

func (SourceFormatter) Format(path string, src []byte) ([]byte, error) {
	switch filepath.Ext(path) {
	case ".go":
		out, err := format.Source(src)
		if err != nil {
			return nil, fmt.Errorf("format %s: %w", path, err)
		}
		return out, nil
	case ".json":
		var buf bytes.Buffer
		if err := json.Indent(&buf, src, "", "  "); err != nil {
			return nil, fmt.Errorf("format %s: %w", path, err)
		}
		buf.WriteByte('\n')
		return buf.Bytes(), nil
	}
	return src, nil
}
