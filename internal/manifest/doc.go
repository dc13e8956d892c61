// Package manifest assembles and writes the build's metadata files: the
// routes manifest (written twice, once before compilation and once after
// export), the prerender manifest, the pages manifest, the client SSG
// manifest script, the BUILD_ID file and the export marker.
//
// Serialization goes through WriteJSON so repeated writes of the same
// state produce byte-identical files.
package manifest
