package export

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/kiln-dev/kiln/internal/errors"
)

// relocatePath moves one exported path's files from the scratch directory
// into the final pages directory: the HTML always, the JSON companion when
// the target has one.
func relocatePath(path string, target Target, dirs Dirs) error {
	rel := filepath.FromSlash(strings.TrimPrefix(outputFile(path), "/"))

	htmlSrc := filepath.Join(dirs.Scratch, rel+".html")
	htmlDest := filepath.Join(dirs.PagesOut, rel+".html")
	if err := moveFile(htmlSrc, htmlDest); err != nil {
		return err
	}

	if target.Data {
		jsonSrc := filepath.Join(dirs.Scratch, "_kiln", "data", dirs.BuildID, rel+".json")
		jsonDest := filepath.Join(dirs.PagesOut, rel+".json")
		if err := moveFile(jsonSrc, jsonDest); err != nil {
			return err
		}
	}
	return nil
}

// moveFile renames src to dest, creating dest's directory on demand. The
// rename keeps the move atomic on the same filesystem; a source the
// collaborator never wrote is fatal.
func moveFile(src, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return errors.New("E222").WithDetail(dest).Wrap(err)
	}
	if err := os.Rename(src, dest); err != nil {
		if os.IsNotExist(err) {
			return errors.New("E223").WithDetail(src).Wrap(err)
		}
		return errors.New("E222").WithDetail(src).Wrap(err)
	}
	return nil
}
