// Package output owns transactional writing of the result documents of one
// production run.
//
// Ownership boundary:
// - mapping output identifiers to file destinations
// - staging incremental writes through temporary files
// - all-or-nothing finalization (Complete, or undo on Close)
//
// Output does not render content and does not proxy non-file destinations.
package output
