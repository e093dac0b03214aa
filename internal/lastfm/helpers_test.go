package lastfm

import (
	"crypto/md5" //nolint:gosec // test helper for the Last.fm signing scheme
	"encoding/hex"
)

func md5hex(s string) string {
	sum := md5.Sum([]byte(s)) //nolint:gosec // test helper
	return hex.EncodeToString(sum[:])
}
