package service

import (
	"regexp"

	"github.com/mr-tron/base58"
)

// Solana public keys are 32-44 characters of the Base58 alphabet.
const (
	minAddressLen = 32
	maxAddressLen = 44
)

var base58Run = regexp.MustCompile(`[1-9A-HJ-NP-Za-km-z]+`)

// ValidAddress reports whether s looks like a Solana address: right length
// and decodable Base58. A format check only, not an on-chain lookup.
func ValidAddress(s string) bool {
	if len(s) < minAddressLen || len(s) > maxAddressLen {
		return false
	}
	_, err := base58.Decode(s)
	return err == nil
}

// ExtractAddress scans free-form chat text for the first address-shaped
// substring. Maximal Base58 runs are matched first, so a 50-character run
// is not truncated into a false positive.
func ExtractAddress(text string) (string, bool) {
	for _, run := range base58Run.FindAllString(text, -1) {
		if ValidAddress(run) {
			return run, true
		}
	}
	return "", false
}
