package instance

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// fingerprintLen is the length of the hex fingerprint string.
const fingerprintLen = 16

// Fingerprint derives a stable identity string from the connection
// configuration. Identical inputs always produce the same fingerprint, it can
// be used as a cache/deduplication key by callers.
//
// It is an identity, not a security credential.
func Fingerprint(host string, port int, username, password string) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "host=%s port=%d user=%s password=%s", host, port, username, password))
	return hex.EncodeToString(sum[:])[:fingerprintLen]
}
