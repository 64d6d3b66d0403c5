package airtable

import (
	"math/rand"
	"strconv"
	"strings"
	"time"
)

// ─── Reference Codes ────────────────────────────────────────────────────────
// Format: REF-<base36 timestamp fragment>-<base36 random fragment>, uppercase.
// Example: REF-2KX9P1-A7F3M. Locally unique in practice; the submissions
// audit table enforces a UNIQUE constraint as a backstop.

const refRandomLen = 5

// NewReferenceCode generates a human-readable referral reference code.
func NewReferenceCode() string {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 36)
	if len(ts) > 6 {
		ts = ts[len(ts)-6:]
	}

	const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	var b strings.Builder
	for i := 0; i < refRandomLen; i++ {
		b.WriteByte(alphabet[rand.Intn(len(alphabet))])
	}

	return "REF-" + strings.ToUpper(ts) + "-" + strings.ToUpper(b.String())
}
