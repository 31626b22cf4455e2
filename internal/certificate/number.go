package certificate

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"
)

// GenerateNumber returns CERT-YYYYMMDD-XXXXXXXX with 8 uppercase hex digits read from r.
func GenerateNumber(now time.Time, r io.Reader) (string, error) {
	if r == nil {
		r = rand.Reader
	}
	b := make([]byte, 4)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return fmt.Sprintf("CERT-%s-%s", now.UTC().Format("20060102"), strings.ToUpper(hex.EncodeToString(b))), nil
}
