// Package analysis evaluates compiled server bundles to decide how each
// page will be rendered: statically at build time, on demand with server
// props, or prerendered from a generated route list.
//
// Evaluation happens in Runtime instances. Each pool worker owns one
// Runtime for its lifetime, so pages never share module state, and the
// pool resolves every submission through a Future so callers can fan out
// submissions without bounding themselves to the worker count.
package analysis
