// Package framework contains the low-level test harness infrastructure that
// is independent of what is being tested: a test context modeled on Go's
// testing.T but usable outside the Go test runner, test identifiers and
// result accumulation, regex-based test filtering, debug output capturing,
// and a per-execution resource scope for isolating clients between
// concurrently running tests.
//
// Domain-specific code builds on this by wrapping Context in its own test
// type with accessors for the clients it needs (see the apitests package).
package framework
