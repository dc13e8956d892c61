package manifest

// UseStatic404 reports whether the build can answer 404s with a prebuilt
// page. An app-level data hook opts the whole app out. A custom error page
// keeps 404s dynamic, unless a custom static /404 overrides it.
func UseStatic404(appHasDataHook, hasCustomErrorPage, static404 bool) bool {
	if appHasDataHook {
		return false
	}
	if !hasCustomErrorPage {
		return true
	}
	return static404
}
