// Package ir provides the foundational types for the thisme kernel.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import ir; ir imports nothing internal. This keeps ir
// the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - NO float types anywhere - use int64 for numbers so that canonical
//     serialization and commit fingerprints are deterministic
//   - A nil IRValue means "undefined"; IRNull is an explicit JSON null
//   - Pointer and identity markers are values, never encrypted
//   - All JSON tags use snake_case
//   - Commit order is the logical clock (seq); wall-clock timestamps are
//     recorded but never used for ordering
package ir
