// Package engine implements the harness revision-control commands.
//
// ARCHITECTURE:
//
// Unit of work:
// Every command runs inside exactly one store transaction (store.RunInTx).
// All reads the command needs, including cycle lookups, parent lookups and
// cascade re-reads, go through that transaction's handle, so a command sees
// one consistent view and either applies completely or not at all. A
// cancelled context rolls the whole unit back.
//
// Command families:
//   - Document commands: Create, Update, Revert, Validate. Documents are
//     validated (internal/validate) with cycle checks against the stored
//     embedding graph before any write, and the edge index is rewritten in
//     the same transaction as the document.
//   - Lifecycle commands: SubmitReview, Reject, Release,
//     ReleaseToProduction. Transitions are checked against the row's
//     current state and never coerced.
//   - Reads: Get, List, History, Parents, SubData, Audit.
//
// Release states are ordered draft < review < released. A released row is
// never edited in place: Update forks a new row (fork.go) whose
// previousRevisionID names the source.
//
// Cascade:
// Submitting or releasing a parent advances every active sub-assembly that
// is behind the parent's new state, recursively, writing one history entry
// per advanced row. Each visit re-reads the child inside the transaction,
// so a sub-assembly shared through several paths is advanced (and reported)
// once. The cascade never downgrades.
//
// History:
// Every mutation appends a history entry. The store assigns a per-harness
// seq; readers order by it, most recent first.
//
// ERRORS:
//
// Every failure returned by a command is an *Error with a Code. Storage
// failures are wrapped as INTERNAL with the cause kept for errors.Is/As.
package engine
