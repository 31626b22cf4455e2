// Package webhook signs and verifies enrollment callbacks from the course platform.
package webhook

import (
	"bytes"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	SignatureHeader  = "X-Webhook-Signature"
	DefaultTolerance = 5 * time.Minute
	maxBodyBytes     = 64 << 10
)

var (
	ErrMissingSignature = errors.New("webhook: missing signature")
	ErrBadSignature     = errors.New("webhook: signature mismatch")
	ErrExpired          = errors.New("webhook: timestamp outside tolerance")
)

func GenerateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "whsec_" + hex.EncodeToString(b), nil
}

func GenerateSignature(payload []byte, secret string, timestamp time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", timestamp.Unix())
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func ParseSignatureHeader(header string) (signature string, timestamp time.Time, err error) {
	var ts int64
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if val, ok := strings.CutPrefix(part, "t="); ok {
			ts, err = strconv.ParseInt(val, 10, 64)
			if err != nil {
				return "", time.Time{}, fmt.Errorf("invalid timestamp: %w", err)
			}
			timestamp = time.Unix(ts, 0)
		} else if val, ok := strings.CutPrefix(part, "v1="); ok {
			signature = val
		}
	}

	if signature == "" {
		return "", time.Time{}, ErrMissingSignature
	}
	if ts == 0 {
		return "", time.Time{}, fmt.Errorf("timestamp not found")
	}
	return signature, timestamp, nil
}

func BuildSignatureHeader(signature string, timestamp time.Time) string {
	return fmt.Sprintf("t=%d,v1=%s", timestamp.Unix(), signature)
}

// Sign returns the header value for payload signed at now.
func Sign(payload []byte, secret string, now time.Time) string {
	return BuildSignatureHeader(GenerateSignature(payload, secret, now), now)
}

type Verifier struct {
	secret    string
	tolerance time.Duration
	now       func() time.Time
}

func NewVerifier(secret string, tolerance time.Duration) *Verifier {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Verifier{secret: secret, tolerance: tolerance, now: time.Now}
}

func (v *Verifier) Verify(payload []byte, header string) error {
	if header == "" {
		return ErrMissingSignature
	}
	sig, ts, err := ParseSignatureHeader(header)
	if err != nil {
		return err
	}

	skew := v.now().Sub(ts)
	if skew < 0 {
		skew = -skew
	}
	if skew > v.tolerance {
		return ErrExpired
	}

	expected := GenerateSignature(payload, v.secret, ts)
	if !hmac.Equal([]byte(sig), []byte(expected)) {
		return ErrBadSignature
	}
	return nil
}

// VerifyRequest reads the body, checks its signature and restores the body for later readers.
func (v *Verifier) VerifyRequest(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	if err := v.Verify(body, r.Header.Get(SignatureHeader)); err != nil {
		return nil, err
	}
	return body, nil
}
