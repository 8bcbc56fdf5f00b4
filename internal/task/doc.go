// Package task declares production runs and drives them through the output
// transaction manager.
//
// Ownership boundary:
// - task and output declarations with validation
// - content rendering (inline, source file, template)
// - run reporting (committed outputs plus collected diagnostics)
//
// Task does not touch destinations directly; all writes go through a
// transaction from internal/output.
package task
