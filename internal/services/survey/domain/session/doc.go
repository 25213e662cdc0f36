// Package session implements the per-respondent survey state machine.
//
// A session moves through AwaitingIntake, InProgress and Finished exactly
// once each. Every transition is decided by Decide as a list of events and
// applied by Fold. Machine folds a whole decision into a copy of the state
// and swaps it in under a lock, so a committed record and the position
// increment that follows it are observed together or not at all.
//
// Finalize performs the only side effects: uploading pending assets and a
// single upsert of the response set. It is safe to call repeatedly.
package session
