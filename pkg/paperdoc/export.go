package paperdoc

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
)

const (
	ContentTypeJSON   = "application/json"
	ContentTypeSealed = "application/octet-stream"

	exportPrefix   = "paperlike_"
	extJSON        = ".json"
	extSealed      = ".paperlike"
	maxImportBytes = 64 << 20
)

// Artifact is a downloadable serialized document.
type Artifact struct {
	Filename    string
	ContentType string
	Data        []byte
}

// DefaultExportName is paperlike_<unix-ms><ext>.
func DefaultExportName(now time.Time, ext string) string {
	return fmt.Sprintf("%s%d%s", exportPrefix, now.UnixMilli(), ext)
}

func Export(doc Document, filename string, now time.Time) (Artifact, error) {
	data, err := Serialize(doc)
	if err != nil {
		return Artifact{}, err
	}
	return Artifact{
		Filename:    ExportName(filename, now, extJSON),
		ContentType: ContentTypeJSON,
		Data:        data,
	}, nil
}

// ExportSealed is Export wrapped in the compressed and optionally encrypted
// envelope.
func ExportSealed(doc Document, filename string, now time.Time, opts SealOptions) (Artifact, error) {
	data, err := Serialize(doc)
	if err != nil {
		return Artifact{}, err
	}
	sealed, err := Seal(data, opts)
	if err != nil {
		return Artifact{}, err
	}
	return Artifact{
		Filename:    ExportName(filename, now, extSealed),
		ContentType: ContentTypeSealed,
		Data:        sealed,
	}, nil
}

// Import reads the whole of r and decodes it. Sealed input needs the
// password it was sealed with when it is encrypted.
func Import(r io.Reader, password string) (Document, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxImportBytes+1))
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrFileRead, err)
	}
	if len(data) > maxImportBytes {
		return Document{}, fmt.Errorf("%w: input exceeds %d bytes", ErrFileRead, maxImportBytes)
	}
	if IsSealed(data) {
		if data, err = Unseal(data, password); err != nil {
			return Document{}, err
		}
	}
	return Deserialize(data)
}

// ExportName is filename reduced to its base name with ext appended when it
// has none, or the default name when filename is blank.
func ExportName(filename string, now time.Time, ext string) string {
	name := strings.TrimSpace(filename)
	if name == "" {
		return DefaultExportName(now, ext)
	}
	name = filepath.Base(name)
	if filepath.Ext(name) == "" {
		name += ext
	}
	return name
}
