// Package ticketno generates human-readable ticket numbers. The number is a
// display and audit aid only: the ticket record id is the authoritative key,
// so collisions under extreme concurrency are tolerated.
package ticketno

import (
	"crypto/rand"
	"fmt"
	"time"
)

// New produces a number like TKT-483920-07-27: a six digit time suffix, a two
// digit random component and a two digit checksum. The checksum is
// (time + random) mod 100 and is never validated on any read path; it exists
// for human legibility when tickets are read out over the phone.
func New(now time.Time) (string, error) {
	timePart := int(now.UnixMilli() % 1_000_000)

	b := make([]byte, 1)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	randPart := int(b[0]) % 100

	checksum := (timePart + randPart) % 100

	return fmt.Sprintf("TKT-%06d-%02d-%02d", timePart, randPart, checksum), nil
}
