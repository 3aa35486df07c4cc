// Package jsonschema renders schema graphs into JSON Schema documents.
//
// Two dialects are supported: draft-07 for plain validation and the
// OpenAPI 3.0 schema object. They diverge mainly on null: draft-07 widens
// type sets and adds null members or branches, while OpenAPI sets the
// sibling nullable flag (with a string/[null] workaround for a bare null).
//
// Shared nodes reached through ref wrappers become entries under
// "definitions". A definition slot is reserved before its body renders, so a
// reference cycle resolves to a $ref instead of recursing. Definition names
// are registry placeholders until the emission pipeline resolves them.
//
// The Backend plugs the renderer into the emit pipeline and, through a
// Compiler, produces standalone validator packages.
package jsonschema
