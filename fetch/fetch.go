// Package fetch resolves remote schema identifiers to documents.
//
// Every failure is terminal and wraps skemac.ErrFetch; callers never retry.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/reoring/skemac"
)

// Fetcher returns the raw document behind uri.
type Fetcher interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// Func adapts a function to Fetcher.
type Func func(ctx context.Context, uri string) ([]byte, error)

func (f Func) Fetch(ctx context.Context, uri string) ([]byte, error) { return f(ctx, uri) }

func fail(uri string, cause error) error {
	return &skemac.Error{Err: skemac.ErrFetch, Detail: uri, Cause: cause}
}

// Map serves documents from memory.
type Map map[string][]byte

func (m Map) Fetch(_ context.Context, uri string) ([]byte, error) {
	doc, ok := m[uri]
	if !ok {
		return nil, fail(uri, fmt.Errorf("not found"))
	}
	return append([]byte(nil), doc...), nil
}

// DefaultMaxBytes caps HTTP response bodies.
const DefaultMaxBytes = 16 << 20

// HTTP fetches http and https identifiers.
type HTTP struct {
	Client   *http.Client
	MaxBytes int64
}

func (h HTTP) Fetch(ctx context.Context, uri string) ([]byte, error) {
	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fail(uri, err)
	}
	req.Header.Set("Accept", "application/schema+json, application/json, application/yaml;q=0.9, */*;q=0.5")
	resp, err := client.Do(req)
	if err != nil {
		return nil, fail(uri, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fail(uri, fmt.Errorf("status %d", resp.StatusCode))
	}
	limit := h.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fail(uri, err)
	}
	if int64(len(body)) > limit {
		return nil, fail(uri, fmt.Errorf("document exceeds %d bytes", limit))
	}
	return body, nil
}

// Files reads file: identifiers and relative paths below Root.
type Files struct {
	Root string
}

func (f Files) Fetch(_ context.Context, uri string) ([]byte, error) {
	p := strings.TrimPrefix(uri, "file://")
	if !filepath.IsAbs(p) {
		p = filepath.Join(f.Root, p)
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, fail(uri, err)
	}
	return b, nil
}

// Schemes routes by URI scheme. Identifiers without a scheme use the ""
// entry.
type Schemes map[string]Fetcher

func (s Schemes) Fetch(ctx context.Context, uri string) ([]byte, error) {
	scheme := ""
	if i := strings.Index(uri, "://"); i > 0 {
		scheme = uri[:i]
	}
	f, ok := s[scheme]
	if !ok {
		return nil, fail(uri, fmt.Errorf("no fetcher for scheme %q", scheme))
	}
	return f.Fetch(ctx, uri)
}

// Default returns a fetcher for http, https and local files below root,
// cached for the lifetime of the returned value.
func Default(root string) Fetcher {
	h := HTTP{}
	files := Files{Root: root}
	return NewCache(Schemes{"http": h, "https": h, "file": files, "": files})
}

// Cache memoizes successful fetches. Failures are not cached.
type Cache struct {
	next Fetcher
	mu   sync.Mutex
	docs map[string][]byte
}

// NewCache wraps next.
func NewCache(next Fetcher) *Cache {
	return &Cache{next: next, docs: map[string][]byte{}}
}

func (c *Cache) Fetch(ctx context.Context, uri string) ([]byte, error) {
	c.mu.Lock()
	doc, ok := c.docs[uri]
	c.mu.Unlock()
	if ok {
		return doc, nil
	}
	doc, err := c.next.Fetch(ctx, uri)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.docs[uri] = doc
	c.mu.Unlock()
	return doc, nil
}
