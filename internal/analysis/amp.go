package analysis

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// RemoveClientBundles deletes a page's client bundle and its module-format
// variant. AMP-only pages are rendered server-side on every request, so
// their client JavaScript is dead weight. Removal is idempotent: a bundle
// that is already gone is not an error, any other filesystem failure is.
func RemoveClientBundles(staticDir, buildID, page string) error {
	if page == "/" {
		page = "/index"
	}
	base := filepath.Join(staticDir, buildID, "pages", filepath.FromSlash(strings.TrimPrefix(page, "/")))

	for _, bundle := range []string{base + ".js", base + ".module.js"} {
		if err := os.Remove(bundle); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove client bundle %s: %w", bundle, err)
		}
	}
	return nil
}
