package importer

import (
	"bytes"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

type containerKind int

const (
	kindObject containerKind = iota
	kindArray
)

type dupFrame struct {
	kind         containerKind
	keys         map[string]struct{}
	expectingKey bool
	token        string // key or index of the value being read
	index        int
}

// checkJSONDuplicateKeys reports the first object key repeated within one
// object. The decoded map would silently keep the last value.
func checkJSONDuplicateKeys(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var stack []dupFrame

	// valueDone advances the parent after a complete value.
	valueDone := func() {
		if len(stack) == 0 {
			return
		}
		top := &stack[len(stack)-1]
		if top.kind == kindObject {
			top.expectingKey = true
		} else {
			top.index++
		}
	}
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		switch v := tok.(type) {
		case json.Delim:
			switch v {
			case '{':
				stack = append(stack, dupFrame{kind: kindObject, keys: map[string]struct{}{}, expectingKey: true})
			case '[':
				stack = append(stack, dupFrame{kind: kindArray})
			case '}', ']':
				stack = stack[:len(stack)-1]
				valueDone()
			}
		case string:
			if n := len(stack); n > 0 && stack[n-1].kind == kindObject && stack[n-1].expectingKey {
				top := &stack[n-1]
				if _, ok := top.keys[v]; ok {
					return &DuplicateKeyError{Key: v, Path: pointerOf(stack[:n-1])}
				}
				top.keys[v] = struct{}{}
				top.token = v
				top.expectingKey = false
				continue
			}
			valueDone()
		default:
			valueDone()
		}
	}
}

// pointerOf renders the JSON pointer of the container at the top of stack.
func pointerOf(stack []dupFrame) string {
	var b strings.Builder
	for _, f := range stack {
		b.WriteByte('/')
		if f.kind == kindObject {
			b.WriteString(Escape(f.token))
		} else {
			b.WriteString(strconv.Itoa(f.index))
		}
	}
	return b.String()
}
