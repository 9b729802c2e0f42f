package fonthandler

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/gogpu/varglyph"
)

// FileBackend serves a font persisted as a single JSON document in the
// shared schema shape. The file is read once at construction; the backend
// is read-only.
type FileBackend struct {
	*MemoryBackend
	path string
}

// NewFileBackend loads a JSON font file.
func NewFileBackend(path string) (*FileBackend, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fonthandler: %w", err)
	}
	font, err := ParseFont(data)
	if err != nil {
		return nil, fmt.Errorf("fonthandler: parsing %s: %w", path, err)
	}
	return &FileBackend{MemoryBackend: NewMemoryBackend(font), path: path}, nil
}

// Path returns the file the backend was loaded from.
func (b *FileBackend) Path() string { return b.path }

// ParseFont decodes a font from its persisted JSON form. Glyph names are
// filled in from the map keys when the records omit them.
func ParseFont(data []byte) (*varglyph.Font, error) {
	var font varglyph.Font
	if err := json.Unmarshal(data, &font); err != nil {
		return nil, err
	}
	if font.UnitsPerEm == 0 {
		font.UnitsPerEm = 1000
	}
	for name, g := range font.Glyphs {
		if g.Name == "" {
			g.Name = name
		}
	}
	return &font, nil
}

var _ Backend = (*FileBackend)(nil)
