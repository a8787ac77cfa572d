// Package observe provides observability primitives for outbound provider
// calls.
//
// It is a pure instrumentation library: no execution, no transport, no I/O
// beyond exporter setup. Consumers wire the observer into a resilience.Caller
// through CallSink, or wrap provider adapters with Middleware.
package observe
