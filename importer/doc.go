// Package importer converts existing schema documents into a schema graph.
//
// Accepted inputs, as JSON or YAML:
//   - JSON Schema (draft-07 and the common 2019/2020 keywords): the root is
//     exported, local definitions are reached through $ref.
//   - OpenAPI 3.0 and Swagger 2.0 documents: every component schema is exported.
//   - Kubernetes CustomResourceDefinitions, single or as a multi-document
//     bundle: one export per kind, with the x-kubernetes-* extensions mapped to
//     unknown-key policies, unique items and CEL rules.
//
// References become lazy ref nodes, so recursive definitions import as cycles
// in the graph. Remote references are resolved through a fetch.Fetcher.
// Keywords without a node equivalent are embedded as raw custom fragments.
package importer
