package output

import (
	"crypto/sha256"
	"encoding/base32"
	"fmt"
	"strings"
)

// ContentKey derives a short, sharded object key from the image bytes, so
// mirroring the same bytes twice lands on the same key.
func ContentKey(data []byte, ext string) string {
	hash := sha256.Sum256(data)
	encoder := base32.StdEncoding.WithPadding(base32.NoPadding)
	key := strings.ToLower(encoder.EncodeToString(hash[:]))[:9]

	// Shard by the first two chars to keep bucket listings manageable.
	return fmt.Sprintf("%s/%s.%s", key[:2], key[2:], ext)
}
