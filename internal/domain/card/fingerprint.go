package card

import (
	"encoding/hex"
	"strconv"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint is a keyed BLAKE2b-256 digest of the number and expiry. It
// identifies a physical card locally without keeping the number around.
// Keys longer than 64 bytes are hashed down first.
func (c *Card) Fingerprint(key []byte) string {
	if len(key) > blake2b.Size {
		sum := blake2b.Sum256(key)
		key = sum[:]
	}
	h, err := blake2b.New256(key)
	if err != nil {
		// only reachable with an oversized key, handled above
		panic(err)
	}
	h.Write([]byte(c.Number))
	h.Write([]byte{'|'})
	h.Write([]byte(strconv.Itoa(c.ExpMonth)))
	h.Write([]byte{'/'})
	h.Write([]byte(strconv.Itoa(c.ExpYear)))
	return hex.EncodeToString(h.Sum(nil))
}
