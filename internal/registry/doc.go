// Package registry maps deployed artifacts to mat://ai4/<name>@<hash> URIs.
//
// The registry is a single JSON document, registry.json, holding an ordered
// "models" object keyed by URI. Each entry records the artifact directory,
// its content hash and an inference call counter. The document is read and
// rewritten whole on every operation.
package registry
