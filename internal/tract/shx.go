package tract

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrMissingIndex is returned when the .shx sidecar is absent and index
// restoration is disabled.
var ErrMissingIndex = eris.New("tract: shapefile index (.shx) is missing")

const (
	shpHeaderLen  = 100
	shpFileCode   = 9994
	recordHeadLen = 8
)

// sidecar returns the companion file path for shpPath with the given
// extension, matching the case of the .shp extension.
func sidecar(shpPath, ext string) string {
	base := strings.TrimSuffix(shpPath, filepath.Ext(shpPath))
	if filepath.Ext(shpPath) == strings.ToUpper(filepath.Ext(shpPath)) {
		ext = strings.ToUpper(ext)
	}
	return base + ext
}

// ensureIndex makes sure the .shx sidecar exists, restoring it when allowed.
func ensureIndex(shpPath string, restore bool) error {
	shxPath := sidecar(shpPath, ".shx")
	if _, err := os.Stat(shxPath); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return eris.Wrapf(err, "tract: stat %s", shxPath)
	}

	if !restore {
		return eris.Wrapf(ErrMissingIndex, "tract: %s", shxPath)
	}

	n, err := RestoreIndex(shpPath)
	if err != nil {
		return err
	}
	zap.L().Warn("tract: restored missing shapefile index",
		zap.String("shx", shxPath),
		zap.Int("records", n),
	)
	return nil
}

// RestoreIndex rebuilds the .shx file for shpPath by walking the record
// headers of the .shp file. It returns the number of indexed records.
func RestoreIndex(shpPath string) (int, error) {
	f, err := os.Open(shpPath)
	if err != nil {
		return 0, eris.Wrap(err, "tract: open .shp for index restore")
	}
	defer func() { _ = f.Close() }()

	header := make([]byte, shpHeaderLen)
	if _, err := io.ReadFull(f, header); err != nil {
		return 0, eris.Wrap(err, "tract: read .shp header")
	}
	if code := binary.BigEndian.Uint32(header[0:4]); code != shpFileCode {
		return 0, eris.Errorf("tract: %s is not a shapefile (file code %d)", shpPath, code)
	}

	// Offsets and lengths are in 16-bit words, big-endian.
	type entry struct{ offset, length int32 }
	var entries []entry

	r := bufio.NewReader(f)
	offset := int64(shpHeaderLen)
	rec := make([]byte, recordHeadLen)
	for {
		if _, err := io.ReadFull(r, rec); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return 0, eris.Wrap(err, "tract: read .shp record header")
		}
		contentWords := int32(binary.BigEndian.Uint32(rec[4:8]))
		if contentWords < 0 {
			return 0, eris.Errorf("tract: negative record length at offset %d", offset)
		}
		entries = append(entries, entry{offset: int32(offset / 2), length: contentWords})

		if _, err := r.Discard(int(contentWords) * 2); err != nil {
			return 0, eris.Wrapf(err, "tract: truncated record at offset %d", offset)
		}
		offset += recordHeadLen + int64(contentWords)*2
	}

	out := make([]byte, shpHeaderLen, shpHeaderLen+len(entries)*recordHeadLen)
	copy(out, header)
	binary.BigEndian.PutUint32(out[24:28], uint32((shpHeaderLen+len(entries)*recordHeadLen)/2))
	for _, e := range entries {
		out = binary.BigEndian.AppendUint32(out, uint32(e.offset))
		out = binary.BigEndian.AppendUint32(out, uint32(e.length))
	}

	shxPath := sidecar(shpPath, ".shx")
	if err := os.WriteFile(shxPath, out, 0o644); err != nil {
		return 0, eris.Wrapf(err, "tract: write %s", shxPath)
	}
	return len(entries), nil
}
