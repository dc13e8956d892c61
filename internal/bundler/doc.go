// Package bundler defines the contract between the build pipeline and the
// JavaScript bundler toolchain.
//
// The pipeline never links the bundler in-process. It hands a Config to a
// Bundler implementation and receives a Result listing the diagnostics the
// toolchain produced. ExecBundler is the production implementation; it
// invokes the configured bundler command and reads a JSON report from its
// stdout. Tests substitute their own Bundler.
package bundler
