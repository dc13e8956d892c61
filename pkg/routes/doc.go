// Package routes compiles page paths and user-declared routing rules into
// the matchers persisted in the routes manifest.
//
// The package provides:
//   - Dynamic route compilation from bracket patterns to anchored regexes
//   - Data-endpoint regex derivation for pages served as JSON
//   - Redirect/rewrite/header rule compilation
//   - Deterministic specificity ordering for dynamic routes
//   - Conflict detection between pages and public files
//
// # Dynamic Segments
//
// Dynamic page segments are defined with brackets:
//
//	/blog/[slug]        one path segment, captured as slug
//	/docs/[...path]     catch-all, one or more segments
//	/wiki/[[...parts]]  optional catch-all, zero or more segments
//
// A compiled route matcher is anchored and tolerates one trailing slash:
//
//	/blog/[slug] → ^/blog/(?P<slug>[^/]+?)(?:/)?$
//
// The data-endpoint matcher for the same page requires a literal .json
// suffix instead of the optional trailing slash, because the runtime
// matches data requests byte-for-byte:
//
//	^/_kiln/data/<buildID>/blog/(?P<slug>[^/]+?)\.json$
//
// # Ordering
//
// Dynamic routes are matched first-wins at runtime, so their order is part
// of the contract: fewer dynamic segments sort first, ties break
// lexicographically by page path. SortBySpecificity implements that total
// order.
package routes
