// Package main is the ai4 command line.
//
// ai4 trains the tiny sin(2πx) regression model, stores it as a hashed
// artifact, deploys it into the local registry under a mat:// URI and meters
// inference with the AI4 ledger.
//
// Usage:
//
//	ai4 train -epochs 100 -hidden 4 -out ./artifacts/toy
//	ai4 evaluate -artifact ./artifacts/toy
//	ai4 deploy -artifact ./artifacts/toy -name toy
//	ai4 mint -to you -amount 3
//	ai4 infer -uri mat://ai4/toy@<hash> -input 0.25
//	ai4 list -format yaml
//	ai4 serve -addr 127.0.0.1:8444
//	ai4 health -remote http://127.0.0.1:8444
//
// Configuration:
//   - AI4_HOME holds registry.json and ledger.json (default ~/.ai4)
//   - AI4_REMOTE points infer, balance, list and health at a running bridge server
//   - LOG_LEVEL and LOG_DEV control logging on stderr
//
// Signals:
//   - SIGINT, SIGTERM: graceful shutdown of serve
package main
