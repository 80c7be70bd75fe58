// Package model provides the record types shared by the stepwise packages.
//
// This package contains type definitions and small pure helpers only. Every
// other internal package imports model; model imports nothing internal.
//
// Key design constraints:
//   - Step identity is an explicit variant (Named or Pending), never an
//     empty-string sentinel
//   - StepRecords are ordered; the slice index is the execution position
//   - Thresholds are time.Duration; persistence layers store milliseconds
//   - All JSON/YAML tags use snake_case
package model
