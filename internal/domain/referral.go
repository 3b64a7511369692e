package domain

import (
	"encoding/binary"

	"github.com/mr-tron/base58"
)

const referralPrefix = "MIQ"

// ReferralCodeFor derives a user's referral code from the Telegram ID.
// Deterministic, so the code survives restarts even with the memory store.
func ReferralCodeFor(tgID int64) string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(tgID))

	// strip leading zero bytes so small IDs produce short codes
	i := 0
	for i < len(buf)-1 && buf[i] == 0 {
		i++
	}
	return referralPrefix + base58.Encode(buf[i:])
}
