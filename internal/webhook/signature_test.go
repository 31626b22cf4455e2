package webhook

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestGenerateSecret(t *testing.T) {
	secret, err := GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret() error = %v", err)
	}
	if !strings.HasPrefix(secret, "whsec_") {
		t.Errorf("GenerateSecret() = %v, want prefix whsec_", secret)
	}
	if len(secret) != 70 {
		t.Errorf("GenerateSecret() len = %d, want 70", len(secret))
	}
}

func TestGenerateSignature(t *testing.T) {
	payload := []byte(`{"enrollmentId":"e1"}`)
	ts := time.Unix(1234567890, 0)

	sig := GenerateSignature(payload, "whsec_a", ts)
	if len(sig) != 64 {
		t.Errorf("GenerateSignature() len = %d, want 64", len(sig))
	}
	if sig != GenerateSignature(payload, "whsec_a", ts) {
		t.Error("GenerateSignature() should be deterministic")
	}
	if sig == GenerateSignature(payload, "whsec_b", ts) {
		t.Error("GenerateSignature() should vary with secret")
	}
	if sig == GenerateSignature(payload, "whsec_a", ts.Add(time.Second)) {
		t.Error("GenerateSignature() should vary with timestamp")
	}
}

func TestParseSignatureHeader(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		wantSig string
		wantTS  int64
		wantErr bool
	}{
		{"valid", "t=1700000000,v1=abc", "abc", 1700000000, false},
		{"spaces", "t=1700000000, v1=abc", "abc", 1700000000, false},
		{"reordered", "v1=abc,t=1700000000", "abc", 1700000000, false},
		{"missing signature", "t=1700000000", "", 0, true},
		{"missing timestamp", "v1=abc", "", 0, true},
		{"bad timestamp", "t=soon,v1=abc", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, ts, err := ParseSignatureHeader(tt.header)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSignatureHeader() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if sig != tt.wantSig || ts.Unix() != tt.wantTS {
				t.Errorf("ParseSignatureHeader() = %q, %d", sig, ts.Unix())
			}
		})
	}
}

func TestVerifier_Verify(t *testing.T) {
	payload := []byte(`{"enrollmentId":"e1"}`)
	now := time.Unix(1700000000, 0)
	v := NewVerifier("whsec_test", 0)
	v.now = func() time.Time { return now }

	tests := []struct {
		name    string
		payload []byte
		header  string
		wantErr error
	}{
		{"valid", payload, Sign(payload, "whsec_test", now), nil},
		{"within tolerance", payload, Sign(payload, "whsec_test", now.Add(-4*time.Minute)), nil},
		{"future within tolerance", payload, Sign(payload, "whsec_test", now.Add(time.Minute)), nil},
		{"expired", payload, Sign(payload, "whsec_test", now.Add(-6*time.Minute)), ErrExpired},
		{"wrong secret", payload, Sign(payload, "whsec_other", now), ErrBadSignature},
		{"tampered body", []byte(`{"enrollmentId":"e2"}`), Sign(payload, "whsec_test", now), ErrBadSignature},
		{"missing header", payload, "", ErrMissingSignature},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Verify(tt.payload, tt.header)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Verify() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestVerifier_VerifyRequest(t *testing.T) {
	body := `{"enrollmentId":"e1"}`
	v := NewVerifier("whsec_test", time.Minute)

	r := httptest.NewRequest("POST", "/v1/webhooks/enrollments", strings.NewReader(body))
	r.Header.Set(SignatureHeader, Sign([]byte(body), "whsec_test", time.Now()))

	got, err := v.VerifyRequest(r)
	if err != nil {
		t.Fatalf("VerifyRequest() error = %v", err)
	}
	if string(got) != body {
		t.Errorf("VerifyRequest() body = %q", got)
	}

	r = httptest.NewRequest("POST", "/v1/webhooks/enrollments", strings.NewReader(body))
	if _, err := v.VerifyRequest(r); !errors.Is(err, ErrMissingSignature) {
		t.Errorf("VerifyRequest() unsigned error = %v", err)
	}
}
