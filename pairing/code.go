package pairing

import (
	"fmt"
	"io"
	"strings"
)

const (
	codeLength   = 6
	codeCharset  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxCodeBytes = 256 - 256%len(codeCharset) // bytes at or above are redrawn
)

// generateCode draws a code of codeLength characters from codeCharset.
func generateCode(r io.Reader) (string, error) {
	var sb strings.Builder
	sb.Grow(codeLength)

	buf := make([]byte, codeLength*2)
	for sb.Len() < codeLength {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", fmt.Errorf("failed to read random bytes for pairing code: %w", err)
		}
		for _, b := range buf {
			if int(b) >= maxCodeBytes {
				continue
			}
			sb.WriteByte(codeCharset[int(b)%len(codeCharset)])
			if sb.Len() == codeLength {
				break
			}
		}
	}
	return sb.String(), nil
}

// NormalizeCode upper-cases a user entered code. Codes are case-insensitive.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsWellFormed reports whether code has the length and alphabet of an issued code.
func IsWellFormed(code string) bool {
	if len(code) != codeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(codeCharset, code[i]) < 0 {
			return false
		}
	}
	return true
}
