// Package paths provides the on-disk layout of the ai4 base directory.
//
// # Directory Structure
//
//	$AI4_HOME/            (default ~/.ai4)
//	  ├── registry.json   (deployed models)
//	  ├── ledger.json     (MAT balances)
//	  └── artifacts/      (default seeding root)
//
// # Usage
//
//	layout, err := paths.NewLayout(cfg.Home)
//	registryPath := layout.Registry()
package paths
