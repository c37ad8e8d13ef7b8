package checksum

import (
	"crypto/md5"
	"encoding/hex"
)

// RefLen is the number of hex characters kept from the path digest.
const RefLen = 10

// Ref returns the short lookup reference for a finding path: the first
// RefLen characters of the hex-encoded MD5 digest of path.
// Truncation means two paths can share a ref.
func Ref(path string) string {
	h := md5.Sum([]byte(path))
	return hex.EncodeToString(h[:])[:RefLen]
}
