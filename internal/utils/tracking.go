package utils

import (
	"crypto/rand"
	"io"
	"math/big"
)

const (
	TrackingCodeLength   = 8
	trackingCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// GenerateTrackingCode draws an 8 character code from A-Z0-9. A nil reader
// uses crypto/rand. Uniqueness is checked by the caller.
func GenerateTrackingCode(r io.Reader) (string, error) {
	if r == nil {
		r = rand.Reader
	}

	max := big.NewInt(int64(len(trackingCodeAlphabet)))
	code := make([]byte, TrackingCodeLength)
	for i := range code {
		n, err := rand.Int(r, max)
		if err != nil {
			return "", err
		}
		code[i] = trackingCodeAlphabet[n.Int64()]
	}
	return string(code), nil
}

// IsTrackingCode reports whether s has the tracking code shape.
func IsTrackingCode(s string) bool {
	if len(s) != TrackingCodeLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= 'A' && c <= 'Z') && !(c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}
