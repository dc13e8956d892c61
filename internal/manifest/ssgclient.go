package manifest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/kiln-dev/kiln/internal/errors"
)

// SSGManifestName is the client SSG manifest's file name; the module
// variant appends ".module" before the extension.
const SSGManifestName = "_ssgManifest.js"

// SSGPageSet derives the client-visible SSG route set from the prerender
// manifest: every route rendered from its own key plus every dynamic SSG
// page, sorted.
func SSGPageSet(m *PrerenderManifest) []string {
	var pages []string
	for route, entry := range m.Routes {
		if entry.SrcRoute == nil {
			pages = append(pages, route)
		}
	}
	for page := range m.DynamicRoutes {
		pages = append(pages, page)
	}
	sort.Strings(pages)
	return pages
}

// SSGManifestScript renders the script literal the client loads to know
// which routes have build-time data.
func SSGManifestScript(pages []string) ([]byte, error) {
	if pages == nil {
		pages = []string{}
	}
	set, err := json.Marshal(pages)
	if err != nil {
		return nil, err
	}
	script := "self.__KILN_SSG_MANIFEST = new Set(" + string(set) + ");" +
		"self.__KILN_SSG_MANIFEST_CB && self.__KILN_SSG_MANIFEST_CB()"
	return []byte(script), nil
}

// WriteSSGManifest writes the manifest script and its module-format twin
// under the build's static directory.
func WriteSSGManifest(staticDir, buildID string, pages []string) error {
	script, err := SSGManifestScript(pages)
	if err != nil {
		return errors.New("E240").WithDetail(SSGManifestName).Wrap(err)
	}

	dir := filepath.Join(staticDir, buildID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.New("E240").WithDetail(dir).Wrap(err)
	}

	for _, name := range []string{SSGManifestName, "_ssgManifest.module.js"} {
		if err := os.WriteFile(filepath.Join(dir, name), script, 0644); err != nil {
			return errors.New("E240").WithDetail(name).Wrap(err)
		}
	}
	return nil
}
