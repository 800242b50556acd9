// Package models defines the core domain models for tab settlement.
//
// # Models
//
//   - Tab: a group-scoped collection of shared expenses with its own settlement lifecycle
//   - Participant: a member snapshot (member ID and payout address) taken at tab creation
//   - Expense: one payment made by a participant on behalf of a subset of participants
//   - Settlement: a proposed and tracked set of transfers that zero out a tab's balances
//   - SettlementTransaction: one leg of a settlement, from a debtor to a creditor
//   - PendingTransfer: an unconfirmed leg as registered in the pending-transaction index
//
// # Design Principles
//
// 1. **Exact amounts**: every monetary amount is a decimal.Decimal, never a float64
// 2. **Whole-record writes**: a Tab is read and written as one document; Version guards
// concurrent writers
// 3. **Derived balances**: balances are never stored; they are recomputed from Expenses
// 4. **Relationships by ID**: expenses and legs reference members by ID strings
package models
