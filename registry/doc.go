// Package registry allocates stable names for nodes emitted as standalone
// symbols.
//
// Rendering never writes a literal name. A backend asks the registry for a
// reference and receives a placeholder token {{<id>:<attr>}}. Once every
// input has been scanned, Finalize assigns final names (suffixing collisions
// within a file in first-seen order) and Resolve substitutes the tokens.
//
// A Registry belongs to one compilation run and one target; it must not be
// reused across runs.
package registry
