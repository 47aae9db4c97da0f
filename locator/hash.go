package locator

import (
	"bytes"

	"github.com/minio/highwayhash"
	"github.com/viant/docpatch/parser"
)

var hashKey = []byte("0123456789ABCDEF0123456789ABCDEF")

// Fingerprint hashes function content for change detection.
func Fingerprint(data []byte) (uint64, error) {
	hash, err := highwayhash.New64(hashKey)
	if err != nil {
		return 0, err
	}
	_, err = hash.Write(data)
	return hash.Sum64(), err
}

// contentFingerprint hashes the function text ignoring leading and trailing
// whitespace, so pure relocation does not register as a modification.
func contentFingerprint(fn *parser.Function, src []byte) uint64 {
	trimmed := bytes.TrimSpace(src[fn.StartByte:fn.EndByte])
	sum, err := Fingerprint(trimmed)
	if err != nil {
		return 0
	}
	return sum
}
