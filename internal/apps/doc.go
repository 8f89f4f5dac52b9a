// Package apps bundles the example applications the CLI and the scenario
// harness run: a reducer, the typed actions it understands, a codec
// registry for those actions, a CUE schema and a state decoder.
//
// Available apps:
//   - counter: state {"min": n}; UP, DOWN, ADD {by}
//   - todos: combined "todos" and "filter" slices
package apps
