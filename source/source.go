// Package source provides immutable file snapshots with encoding-aware
// read and atomic write-back, so non-ASCII content survives a round trip.
package source

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Encoding identifies how a file's bytes decode to text.
type Encoding string

const (
	UTF8        Encoding = "utf-8"
	UTF8BOM     Encoding = "utf-8-bom"
	UTF16LE     Encoding = "utf-16-le"
	UTF16BE     Encoding = "utf-16-be"
	Windows1252 Encoding = "windows-1252"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// File is an immutable snapshot of one source file. Content always holds
// UTF-8 bytes regardless of the on-disk encoding; edits produce a new File
// via WithContent rather than mutating in place.
type File struct {
	Path     string
	Encoding Encoding
	Content  []byte
	mode     os.FileMode
}

// Read loads a file and decodes it using BOM detection first, then UTF-8
// validation, then a single-byte fallback.
func Read(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	content, enc, err := Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode file %s: %w", path, err)
	}
	return &File{Path: path, Encoding: enc, Content: content, mode: mode}, nil
}

// Decode converts raw file bytes to UTF-8 and reports the detected encoding.
func Decode(raw []byte) ([]byte, Encoding, error) {
	switch {
	case bytes.HasPrefix(raw, bomUTF8):
		return raw[len(bomUTF8):], UTF8BOM, nil
	case bytes.HasPrefix(raw, bomUTF16LE):
		return decodeWith(unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM), raw, UTF16LE)
	case bytes.HasPrefix(raw, bomUTF16BE):
		return decodeWith(unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM), raw, UTF16BE)
	case utf8.Valid(raw):
		return raw, UTF8, nil
	default:
		return decodeWith(charmap.Windows1252, raw, Windows1252)
	}
}

func decodeWith(enc encoding.Encoding, raw []byte, name Encoding) ([]byte, Encoding, error) {
	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return nil, "", fmt.Errorf("decode as %s: %w", name, err)
	}
	return decoded, name, nil
}

// WithContent returns a new snapshot carrying the same path and encoding.
func (f *File) WithContent(content []byte) *File {
	return &File{Path: f.Path, Encoding: f.Encoding, Content: content, mode: f.mode}
}

// Encode converts the UTF-8 content back to the on-disk encoding.
func (f *File) Encode() ([]byte, error) {
	switch f.Encoding {
	case UTF8, "":
		return f.Content, nil
	case UTF8BOM:
		return append(append([]byte{}, bomUTF8...), f.Content...), nil
	case UTF16LE:
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().Bytes(f.Content)
	case UTF16BE:
		return unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewEncoder().Bytes(f.Content)
	case Windows1252:
		return charmap.Windows1252.NewEncoder().Bytes(f.Content)
	default:
		return nil, fmt.Errorf("unsupported encoding: %s", f.Encoding)
	}
}

// WriteAtomic materializes the encoded content in a temp file in the target
// directory and swaps it into place, so a crash mid-write never leaves a
// half-written file.
func (f *File) WriteAtomic() error {
	encoded, err := f.Encode()
	if err != nil {
		return fmt.Errorf("encode %s: %w", f.Path, err)
	}
	dir := filepath.Dir(f.Path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.Path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(encoded); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	mode := f.mode
	if mode == 0 {
		mode = 0o644
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, f.Path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", f.Path, err)
	}
	return nil
}

// IsBinary reports whether raw bytes look like binary content.
func IsBinary(raw []byte) bool {
	probe := raw
	if len(probe) > 8000 {
		probe = probe[:8000]
	}
	return bytes.IndexByte(probe, 0) >= 0
}
