package importer

import (
	"fmt"

	"github.com/reoring/skemac/emit"
)

func isCRD(v any) bool {
	m, _ := v.(map[string]any)
	if m == nil {
		return false
	}
	if k, _ := m["kind"].(string); k == "CustomResourceDefinition" {
		return true
	}
	if k, _ := m["kind"].(string); k == "List" {
		items, _ := m["items"].([]any)
		return len(items) > 0 && isCRD(items[0])
	}
	_, ok := m["openAPIV3Schema"].(map[string]any)
	return ok
}

// crds exports one schema per CustomResourceDefinition in docs, named after
// spec.names.kind. With Options.Kind set only that kind is exported.
func (im *importer) crds(docs []any) ([]emit.Export, error) {
	im.crd = true
	var out []emit.Export
	seen := map[string]bool{}
	for _, v := range flattenLists(docs) {
		m, _ := v.(map[string]any)
		if m == nil || !isCRD(m) {
			im.d.warnf("skipping non-CRD document")
			continue
		}
		kind := crdKind(m)
		if im.opts.Kind != "" && kind != im.opts.Kind {
			continue
		}
		oas, ok := m["openAPIV3Schema"].(map[string]any)
		if !ok {
			oas = unwrapCRDSchema(m)
		}
		if oas == nil {
			return nil, fmt.Errorf("importer: CRD %q has no openAPIV3Schema", kind)
		}
		if kind == "" {
			kind = im.opts.Name
		}
		if kind == "" {
			kind = "Resource"
		}
		if seen[kind] {
			im.d.warnf("duplicate CRD kind %s: keeping the first", kind)
			continue
		}
		seen[kind] = true
		doc := newDocument(im.opts.BaseURI, oas)
		n, err := im.def(doc, "")
		if err != nil {
			return nil, fmt.Errorf("importer: CRD %s: %w", kind, err)
		}
		out = append(out, emit.Export{Name: kind, Node: n})
	}
	if len(out) == 0 {
		if im.opts.Kind != "" {
			return nil, fmt.Errorf("importer: CRD kind %q not found", im.opts.Kind)
		}
		return nil, fmt.Errorf("importer: no CRD schema found")
	}
	return out, nil
}

func flattenLists(docs []any) []any {
	var out []any
	for _, v := range docs {
		m, _ := v.(map[string]any)
		if k, _ := m["kind"].(string); k == "List" {
			items, _ := m["items"].([]any)
			out = append(out, items...)
			continue
		}
		out = append(out, v)
	}
	return out
}

func crdKind(m map[string]any) string {
	v, _ := lookup(m, "/spec/names/kind")
	s, _ := v.(string)
	return s
}

// unwrapCRDSchema extracts openAPIV3Schema from a CRD document. It looks for
// spec.versions[].schema.openAPIV3Schema, preferring served versions, then
// falls back to spec.validation.openAPIV3Schema for legacy documents.
func unwrapCRDSchema(root map[string]any) map[string]any {
	spec, ok := root["spec"].(map[string]any)
	if !ok {
		return nil
	}
	if vers, ok := spec["versions"].([]any); ok {
		var firstFound map[string]any
		for _, v := range vers {
			vm, _ := v.(map[string]any)
			if vm == nil {
				continue
			}
			served := true
			if sv, ok := vm["served"].(bool); ok {
				served = sv
			}
			oas, _ := lookup(vm, "/schema/openAPIV3Schema")
			if m, ok := oas.(map[string]any); ok {
				if served {
					return m
				}
				if firstFound == nil {
					firstFound = m
				}
			}
		}
		if firstFound != nil {
			return firstFound
		}
	}
	if oas, ok := lookup(spec, "/validation/openAPIV3Schema"); ok {
		m, _ := oas.(map[string]any)
		return m
	}
	return nil
}
