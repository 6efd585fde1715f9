package tract

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// shapefileParts are the archive members a tract layer is read from.
var shapefileParts = map[string]bool{
	".shp": true,
	".shx": true,
	".dbf": true,
	".prj": true,
	".cpg": true,
}

// unpackShapefile copies the parts of the single shapefile inside a .zip
// archive into destDir and returns the extracted .shp path. Folders in the
// archive are ignored, as are files belonging to other stems.
func unpackShapefile(zipPath, destDir string) (string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", eris.Wrap(err, "tract: open archive")
	}
	defer r.Close() //nolint:errcheck

	var shps []*zip.File
	for _, f := range r.File {
		if isShapefilePart(f) && strings.EqualFold(filepath.Ext(f.Name), ".shp") {
			shps = append(shps, f)
		}
	}
	switch len(shps) {
	case 0:
		return "", eris.Errorf("tract: archive %s holds no .shp file", zipPath)
	case 1:
	default:
		names := make([]string, len(shps))
		for i, f := range shps {
			names[i] = f.Name
		}
		return "", eris.Errorf("tract: archive %s holds %d shapefiles (%s); extract the one to use",
			zipPath, len(shps), strings.Join(names, ", "))
	}

	stem := partStem(shps[0].Name)
	var shpPath string
	for _, f := range r.File {
		if !isShapefilePart(f) || !strings.EqualFold(partStem(f.Name), stem) {
			continue
		}
		dest := filepath.Join(destDir, filepath.Base(f.Name))
		if err := copyPart(f, dest); err != nil {
			return "", err
		}
		if f == shps[0] {
			shpPath = dest
		}
	}
	return shpPath, nil
}

// isShapefilePart reports whether an archive member is a shapefile component
// worth extracting. macOS resource forks are skipped.
func isShapefilePart(f *zip.File) bool {
	if f.FileInfo().IsDir() || strings.HasPrefix(f.Name, "__MACOSX/") || strings.HasPrefix(filepath.Base(f.Name), "._") {
		return false
	}
	return shapefileParts[strings.ToLower(filepath.Ext(f.Name))]
}

func partStem(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func copyPart(f *zip.File, dest string) error {
	rc, err := f.Open()
	if err != nil {
		return eris.Wrapf(err, "tract: open archive member %s", f.Name)
	}
	defer rc.Close() //nolint:errcheck

	out, err := os.Create(dest)
	if err != nil {
		return eris.Wrapf(err, "tract: create %s", dest)
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return eris.Wrapf(err, "tract: extract %s", f.Name)
	}
	return eris.Wrapf(out.Close(), "tract: close %s", dest)
}
