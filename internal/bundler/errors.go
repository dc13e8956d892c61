package bundler

import (
	"regexp"
	"strings"

	"github.com/kiln-dev/kiln/internal/errors"
)

// Markers the bundler embeds in diagnostics about framework-owned modules.
// Page modules resolve through the pagesAlias; the polyfill entry carries
// the polyfillMarker. Their appearance in an error text identifies which
// side of the toolchain broke.
const (
	pagesAlias     = "private-kiln-pages"
	polyfillMarker = "__kiln_polyfill__"
)

// missingExportRe extracts the page path from a missing-default-export
// diagnostic, e.g. "... 'private-kiln-pages/about' does not contain ...".
var missingExportRe = regexp.MustCompile(`'` + pagesAlias + `/(?P<pageName>[^']*)'`)

// ResultError interprets a compile report. A report with errors resolves to
// exactly one build error: only the first diagnostic is inspected, the rest
// are usually echoes of the same root cause.
func ResultError(kind Kind, res *Result) error {
	if res == nil || len(res.Errors) == 0 {
		return nil
	}
	first := res.Errors[0]

	if strings.Contains(first, "does not contain a default export") {
		if m := missingExportRe.FindStringSubmatch(first); m != nil {
			page := m[missingExportRe.SubexpIndex("pageName")]
			return errors.New("E162").
				WithDetail("pages/" + page + " does not export a component as its default export.").
				WithSuggestion("Add `export default` in front of the page component.")
		}
	}

	if strings.Contains(first, pagesAlias) || strings.Contains(first, polyfillMarker) {
		return errors.New("E163").WithDetail(first)
	}

	return compileFailed(kind).WithDetail(first)
}

// compileFailed picks the error code matching the bundle target.
func compileFailed(kind Kind) *errors.KilnError {
	if kind == KindServer {
		return errors.New("E161")
	}
	return errors.New("E160")
}
