// Package artifact persists models as directories holding a weights archive
// and a JSON manifest, and fingerprints them with a truncated SHA-256.
//
// Layout:
//
//	<dir>/weights.tar.zst   zstd-compressed tar, entries w1 b1 w2 b2
//	<dir>/manifest.json     {name, version, created, ...}
//
// Writes are not atomic.
package artifact
