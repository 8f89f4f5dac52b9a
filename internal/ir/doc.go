// Package ir provides the canonical value representation flux uses whenever
// an action or a state leaves the process: the journal, devtools export and
// golden traces.
//
// Go values are converted to a sealed set of types (Null, String, Int, Bool,
// Array, Object) through their JSON form, then serialized as RFC 8785
// canonical JSON. Identical values therefore always produce identical bytes
// and identical hashes, which is what replay verification compares.
//
// Key design constraints:
//   - NO float types - use integers; floats are rejected at conversion
//   - Object keys ordered by UTF-16 code units, strings NFC normalized
//   - ir imports nothing internal
package ir
