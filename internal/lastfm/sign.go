package lastfm

import (
	"crypto/md5" //nolint:gosec // required by the Last.fm signing scheme
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// Sign computes api_sig: every parameter except format and api_sig, sorted by
// name, concatenated as name+value, followed by the shared secret, md5 hex.
func Sign(params url.Values, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "format" || k == "api_sig" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(params.Get(k))
	}
	b.WriteString(secret)

	sum := md5.Sum([]byte(b.String())) //nolint:gosec // required by the Last.fm signing scheme
	return hex.EncodeToString(sum[:])
}
