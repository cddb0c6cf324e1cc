// Package models defines the core domain models for the split ledger.
//
// # Models
//
//   - Group / Member: a named set of participants. Members may be registered
//     users or unregistered contacts referenced only by phone number.
//   - Transaction: an amount paid by one participant, optionally divided among
//     others according to a SplitStrategy.
//   - Settlement: one debtor→creditor obligation derived from a transaction,
//     tracked from pending to settled.
//   - User: a registered account, used by the auth edge only.
//
// # Design Principles
//
//  1. **Money is decimal**: every amount is a shopspring decimal with two
//     fractional digits at the boundary, never a float.
//  2. **Closed strategies**: the split strategy is a sealed interface, so a
//     custom split without amounts cannot be expressed.
//  3. **IDs, not pointers**: relationships are ID strings to avoid cycles.
//  4. **No derived state**: balances are never stored on these models; they
//     are recomputed from settlements on demand.
package models
