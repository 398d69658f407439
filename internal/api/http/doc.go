// Package http implements the HTTP handlers of the bridge server.
//
// Routes:
//   - GET  /              service status
//   - GET  /health        registry and ledger totals
//   - GET  /models        deployed models in deploy order
//   - POST /infer         paid inference {uri, input, payer, cost}
//   - GET  /balance/:who  MAT balance of one identity
//   - GET  /metrics       Prometheus exposition
//   - GET  /metrics/json  metrics snapshot
//
// Errors are returned as {"error": "...", "code": "..."} with 400 for
// malformed input, 402 for insufficient balance, 404 for unknown URIs and
// 422 for non-finite model output.
package http
