package moderation

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	models "github.com/scmlabs/modsentry/internal/models/moderation"
)

// Fingerprint computes the dedup key for a submission: the hex SHA-256
// digest over the content kind and the normalized payload. Text payloads
// are trimmed of surrounding whitespace before hashing; this is the only
// normalization applied anywhere. Image payloads (base64) hash as-is.
func Fingerprint(kind models.ContentType, content string) string {
	if kind == models.ContentText {
		content = strings.TrimSpace(content)
	}
	h := sha256.New()
	h.Write([]byte(kind))
	h.Write([]byte{0})
	h.Write([]byte(content))
	return hex.EncodeToString(h.Sum(nil))
}
