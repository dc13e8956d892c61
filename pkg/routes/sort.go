package routes

import "sort"

// SortBySpecificity orders dynamic page paths so the least ambiguous match
// wins at runtime: fewer dynamic segments first, ties broken
// lexicographically. The order is total and deterministic for any input
// permutation.
func SortBySpecificity(pages []string) {
	sort.SliceStable(pages, func(i, j int) bool {
		ci, cj := CountDynamicSegments(pages[i]), CountDynamicSegments(pages[j])
		if ci != cj {
			return ci < cj
		}
		return pages[i] < pages[j]
	})
}

// CompileDynamicRoutes selects the dynamic pages, sorts them by
// specificity and compiles each to a DynamicRouteEntry. The returned slice
// order is the runtime matching order.
func CompileDynamicRoutes(pages []string, buildID string) ([]DynamicRouteEntry, error) {
	var dynamic []string
	for _, page := range pages {
		if IsDynamic(page) {
			dynamic = append(dynamic, page)
		}
	}
	SortBySpecificity(dynamic)

	entries := make([]DynamicRouteEntry, 0, len(dynamic))
	for _, page := range dynamic {
		rr, err := CompileRoute(page)
		if err != nil {
			return nil, err
		}
		dr, err := CompileDataRoute(page, buildID)
		if err != nil {
			return nil, err
		}
		entries = append(entries, DynamicRouteEntry{
			Page:           page,
			Regex:          rr.Pattern,
			DataRouteRegex: dr.Pattern,
		})
	}
	return entries, nil
}
