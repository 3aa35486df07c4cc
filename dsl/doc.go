// Package dsl provides the builder used to construct a schema graph.
//
// Overview
//   - Builder: New() creates a graph; every constructor adds one node and returns it.
//   - Primitives: String/Number/Integer/Boolean/Null/Unknown.
//   - Composites: Object().Field(...).Build(), Array, Tuple, Record, Union,
//     DiscriminatedUnion, Intersection, Enum, Const.
//   - Modifiers: Optional, Nullable, Ref, Lazy (deferred ref resolved on Load).
//   - Validator wraps a node and marks it as a standalone compiled validator.
//   - Custom/Remote embed a raw fragment or a remotely fetched document.
//   - Options: Named, Describe, Default, ... and kind options such as MinLength.
//
// Example
//
//	b := dsl.New()
//	node := b.Object().
//	    Field("id", b.String(dsl.Format("uuid"))).
//	    Optional("nickname", b.Nullable(b.String())).
//	    Strict().
//	    Build(dsl.Named("User"))
//
// A node may be passed to several parents; ownership stays with the graph, so
// sharing a node through Ref is how recursive and reused definitions are made.
package dsl
