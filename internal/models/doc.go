// Package models defines the core domain models for receiptsplit.
//
// # Bill Model
//
// A Bill owns two ordered collections:
//   - LineItem: one line of a receipt (name, quantity, unit price) plus the set
//     of participants sharing its cost
//   - Participant: a person the bill is split between
//
// Ids for both are small integers assigned by the Bill, starting at 1.
// Every mutator validates ids before touching state, so a failed call leaves
// the Bill exactly as it was.
//
// # Invariants
//
//  1. Every participant id referenced by an item's assignment set belongs to a
//     participant of the same Bill. RemoveParticipant cascades into every item.
//  2. The sum of the line totals matches the declared grand total (if any)
//     within one minor unit. See CheckTotal.
//  3. After ComputeSplit on a bill with participants, their totals sum to the
//     subtotal exactly.
//
// # Money
//
// All amounts are Amount values: integer minor units (cents). Decimal text
// from receipts is parsed with shopspring/decimal, never through float64.
//
// # Concurrency
//
// A Bill is not safe for concurrent mutation. The session layer serialises
// edits per bill.
package models
