// Package export turns the classified page sets into rendered static
// files. It builds the path map handed to the external export collaborator,
// relocates the rendered HTML and JSON into the build output, removes
// server bundles that static HTML has replaced, and cleans up the scratch
// directory in every outcome.
package export
