package dom

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"folio/internal/fileutil"
)

// ContentID returns the content-addressed identifier for a byte sequence:
// the lowercase hex SHA-256 digest. Identical bytes always produce the same
// id.
func ContentID(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// FileContentID streams path through SHA-256 and returns its
// content-addressed identifier along with the file size in bytes.
func FileContentID(path string) (string, int64, error) {
	digest, err := fileutil.HashFile(path)
	if err != nil {
		return "", 0, fmt.Errorf("hash %s: %w", path, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", 0, fmt.Errorf("stat %s: %w", path, err)
	}
	return digest, info.Size(), nil
}
