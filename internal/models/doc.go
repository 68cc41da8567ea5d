// Package models defines the core domain models for the debt ledger.
//
// # Amounts
//
// Every amount in this package (and everywhere below the API boundary) is an
// int64 number of cents. Keeping the core integral makes the conservation
// invariant and the "splits sum to total" checks exact equalities instead of
// epsilon comparisons. Conversion to and from decimal values happens only at
// the boundary, see amount.go.
//
// # Models
//
//   - Edge: a directed, positive debt between two users inside a group.
//     The ledger only ever stores edges in canonical (netted) form: for any
//     pair of users at most one direction exists at a time.
//   - Expense: a paid bill plus how it is split among participants.
//   - Settlement: an append-only audit record of a payment between users.
//     Settlements are never mutated or deleted; they are history, decoupled
//     from the live edges they once affected.
//   - NetPosition / SuggestedTransaction: derived read-side views, never
//     persisted.
//
// Users and groups are referenced by opaque string IDs; identity management
// lives outside this module.
package models
