// Package address normalizes and compares on-chain account addresses.
package address

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Normalize lowercases and trims an address so it can be used as a lookup key.
func Normalize(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// Equal compares two addresses case-insensitively.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// IsHex reports whether addr looks like a 20-byte 0x-prefixed hex address.
func IsHex(addr string) bool {
	addr = strings.TrimSpace(addr)
	if len(addr) != 42 || !strings.HasPrefix(addr, "0x") && !strings.HasPrefix(addr, "0X") {
		return false
	}
	_, err := hex.DecodeString(addr[2:])
	return err == nil
}

// Checksum returns the EIP-55 mixed-case form of a hex address.
// Non-hex addresses are returned unchanged.
func Checksum(addr string) string {
	if !IsHex(addr) {
		return addr
	}
	lower := strings.ToLower(strings.TrimSpace(addr))[2:]

	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lower))
	digest := h.Sum(nil)

	out := []byte(lower)
	for i, c := range out {
		if c < 'a' || c > 'f' {
			continue
		}
		nibble := digest[i/2]
		if i%2 == 0 {
			nibble >>= 4
		}
		if nibble&0x0f >= 8 {
			out[i] = c - 32
		}
	}
	return "0x" + string(out)
}
