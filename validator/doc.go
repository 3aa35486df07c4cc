// Package validator compiles JSON Schema documents into validators.
//
// A document is decoded, lowered into an intermediate program and then
// either built into closures (predicate mode) or rendered as Go source
// (source mode). Both paths call the exported check helpers in this package,
// so generated code and in-process predicates report the same issues:
//
//	c := validator.New(nil)
//	out, err := c.Compile(ctx, doc, jsonschema.CompileOptions{Mode: skemac.ModePredicate, Formats: true})
//	err = out.Predicate(value) // skemac.Issues or nil
//
// Issues carry JSON pointer paths, stable codes from the root package and
// messages from the i18n package.
package validator
