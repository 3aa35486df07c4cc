// Package skemac is a schema-definition compiler: a schema graph is built once
// and rendered into several independent target representations.
//
// - Schema graph model (arena of nodes keyed by stable ids) under schema/.
// - Builder DSL under dsl/.
// - Generic per-kind dispatch shared by every backend under visitor/.
// - Symbol naming and placeholder resolution under registry/.
// - Two-phase scan/finalize emission under emit/.
// - JSON Schema rendering (two dialects) and validator driving under jsonschema/.
//
// The root package only carries what every layer shares: dialects, the
// compile error taxonomy, and the Issues model returned by compiled validators.
//
// Typical usage:
//
//	b := dsl.New()
//	user := b.Object().
//	    Field("id", b.String()).
//	    Optional("name", b.String()).
//	    Build(dsl.Named("User"))
//	doc, _, err := jsonschema.RenderJSON(ctx, b.Graph(), user, jsonschema.Options{})
//
//	p := emit.New(&jsonschema.Backend{Dialect: skemac.DialectJSONSchema, Pretty: true},
//	    emit.WithWriter(emit.DirWriter{Root: "gen"}))
//	res, err := p.Run(ctx, b.Graph(), []emit.Input{{Path: "user", Exports: []emit.Export{{Name: "User", Node: user}}}})
package skemac
