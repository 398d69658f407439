// Package ledger tracks Model Access Token (MAT) balances.
//
// The ledger is a toy, non-cryptographic balance sheet stored as one JSON
// object in ledger.json. Mint creates tokens, Burn destroys them and
// Transfer moves them; the sum of all balances always equals minted minus
// burned. Overdrawing fails with ErrInsufficientBalance and leaves the
// document untouched.
package ledger
