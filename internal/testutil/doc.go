// Package testutil holds deterministic helpers shared by the scenario
// harness, the CLI and package tests: a resettable logical clock with
// matching wall times, and a listener recorder.
package testutil
