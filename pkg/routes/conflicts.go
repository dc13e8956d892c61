package routes

import (
	"fmt"
	"path"
	"strings"
)

// Conflict is a public file whose URL collides with a page.
type Conflict struct {
	// Page is the colliding page path.
	Page string

	// PublicFile is the public file path, relative to the public directory.
	PublicFile string
}

func (c Conflict) String() string {
	return fmt.Sprintf("public/%s conflicts with page %s", c.PublicFile, c.Page)
}

// ConflictError reports every page/public collision found, not just the
// first. Conflicts are configuration errors and fatal.
type ConflictError struct {
	Conflicts []Conflict
}

func (e *ConflictError) Error() string {
	if len(e.Conflicts) == 1 {
		return e.Conflicts[0].String()
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d conflicting public files and pages:\n", len(e.Conflicts)))
	for i, c := range e.Conflicts {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, c.String()))
	}
	return sb.String()
}

// Items returns the conflicts as display strings, one per collision.
func (e *ConflictError) Items() []string {
	items := make([]string, len(e.Conflicts))
	for i, c := range e.Conflicts {
		items[i] = c.String()
	}
	return items
}

// CheckPublicConflicts compares the URL of every public file against the
// page set and returns a ConflictError enumerating ALL collisions, or nil.
// publicFiles are slash-separated paths relative to the public directory.
func CheckPublicConflicts(pages []string, publicFiles []string) error {
	pageSet := make(map[string]struct{}, len(pages))
	for _, p := range pages {
		pageSet[p] = struct{}{}
	}

	var conflicts []Conflict
	for _, file := range publicFiles {
		url := "/" + path.Clean(strings.TrimPrefix(file, "/"))
		if _, hit := pageSet[url]; hit {
			conflicts = append(conflicts, Conflict{Page: url, PublicFile: file})
		}
	}

	if len(conflicts) > 0 {
		return &ConflictError{Conflicts: conflicts}
	}
	return nil
}
