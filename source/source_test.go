package source_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/docpatch/source"
)

func TestDecode(t *testing.T) {
	testCases := []struct {
		description string
		raw         []byte
		expect      string
		encoding    source.Encoding
	}{
		{
			description: "plain utf-8",
			raw:         []byte("int main() {}\n"),
			expect:      "int main() {}\n",
			encoding:    source.UTF8,
		},
		{
			description: "utf-8 with BOM",
			raw:         append([]byte{0xEF, 0xBB, 0xBF}, []byte("caf\xc3\xa9\n")...),
			expect:      "café\n",
			encoding:    source.UTF8BOM,
		},
		{
			description: "utf-16 little endian",
			raw:         []byte{0xFF, 0xFE, 'h', 0x00, 'i', 0x00},
			expect:      "hi",
			encoding:    source.UTF16LE,
		},
		{
			description: "utf-16 big endian",
			raw:         []byte{0xFE, 0xFF, 0x00, 'h', 0x00, 'i'},
			expect:      "hi",
			encoding:    source.UTF16BE,
		},
		{
			description: "windows-1252 fallback",
			raw:         []byte{'c', 'a', 'f', 0xE9}, // é in cp1252, invalid utf-8
			expect:      "café",
			encoding:    source.Windows1252,
		},
	}

	for _, testCase := range testCases {
		content, encoding, err := source.Decode(testCase.raw)
		require.NoError(t, err, testCase.description)
		assert.Equal(t, testCase.expect, string(content), testCase.description)
		assert.Equal(t, testCase.encoding, encoding, testCase.description)
	}
}

func TestReadWriteRoundTrip(t *testing.T) {
	testCases := []struct {
		description string
		raw         []byte
	}{
		{description: "utf-8", raw: []byte("void f() {}\n")},
		{description: "utf-8 BOM", raw: append([]byte{0xEF, 0xBB, 0xBF}, []byte("void f() {}\n")...)},
		{description: "utf-16 LE", raw: []byte{0xFF, 0xFE, 'o', 0x00, 'k', 0x00}},
		{description: "windows-1252", raw: []byte{'n', 'a', 0xEF, 'v', 'e'}},
	}

	for _, testCase := range testCases {
		path := filepath.Join(t.TempDir(), "sample.cpp")
		require.NoError(t, os.WriteFile(path, testCase.raw, 0o644))

		file, err := source.Read(path)
		require.NoError(t, err, testCase.description)
		require.NoError(t, file.WriteAtomic(), testCase.description)

		after, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, testCase.raw, after, testCase.description)
	}
}

func TestWithContentPreservesEncoding(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.cpp")
	raw := append([]byte{0xEF, 0xBB, 0xBF}, []byte("int f();\n")...)
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	file, err := source.Read(path)
	require.NoError(t, err)

	updated := file.WithContent([]byte("/** Doc. */\nint f();\n"))
	require.NoError(t, updated.WriteAtomic())

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, append([]byte{0xEF, 0xBB, 0xBF}, []byte("/** Doc. */\nint f();\n")...), after)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestWriteAtomic_NewFileGetsDefaultMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fresh.cpp")
	file := &source.File{Path: path, Encoding: source.UTF8, Content: []byte("int f() {}\n")}
	require.NoError(t, file.WriteAtomic())

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "int f() {}\n", string(after))
}

func TestEncode_UnsupportedEncoding(t *testing.T) {
	file := &source.File{Encoding: source.Encoding("ebcdic"), Content: []byte("x")}
	_, err := file.Encode()
	assert.Error(t, err)
}

func TestIsBinary(t *testing.T) {
	assert.True(t, source.IsBinary([]byte{'E', 'L', 'F', 0x00, 0x01}))
	assert.False(t, source.IsBinary([]byte("plain text\n")))
}
