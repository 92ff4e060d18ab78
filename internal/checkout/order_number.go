package checkout

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"
)

const orderNumberPrefix = "ORD"

// newOrderNumber builds a human-readable order number from the current UTC
// timestamp plus a random suffix. Uniqueness is enforced by the caller, which
// regenerates on collision against the orders table.
func newOrderNumber(now time.Time) string {
	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		// Extremely unlikely; fall back to the nanosecond clock.
		nano := now.UnixNano()
		buf[0] = byte(nano)
		buf[1] = byte(nano >> 8)
		buf[2] = byte(nano >> 16)
	}
	suffix := strings.ToUpper(hex.EncodeToString(buf))
	return orderNumberPrefix + "-" + now.UTC().Format("20060102150405") + "-" + suffix
}
