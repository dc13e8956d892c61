// Package errors provides structured, actionable error messages for kiln.
//
// The errors package implements a comprehensive error system that:
//   - Shows exact source locations (file, line, column)
//   - Explains what went wrong in plain language
//   - Suggests how to fix issues with code examples
//   - Links to documentation for deeper understanding
//
// # Error Categories
//
// Errors are organized into categories:
//   - routing: Route compilation errors (conflicting paths, bad patterns)
//   - config: kiln.json and rule configuration errors
//   - cli: Command-line usage errors
//   - compile: Bundler errors surfaced during the compile stage
//   - analysis: Page analysis and classification errors
//   - export: Static export and file relocation errors
//   - manifest: Manifest assembly and persistence errors
//   - offload: Asset upload errors
//
// # Error Codes
//
// Each error has a unique code (e.g., "E142") that maps to:
//   - A short message describing the error
//   - A detailed explanation
//   - A documentation URL
//
// # Usage
//
//	err := errors.New("E100").
//	    WithDetail("public/about.html conflicts with pages/about").
//	    WithSuggestion("Rename the public file or the page")
//
//	fmt.Println(err.Format())
package errors
