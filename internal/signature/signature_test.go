package signature

import (
	"strings"
	"testing"
)

const testSecret = "testsecret"

var testBody = []byte(`{"message_id":"m1","from":"+919876543210","to":"+14155550100","ts":"2025-01-15T10:00:00Z","text":"Hello"}`)

func TestVerify_ValidSignature(t *testing.T) {
	v := NewVerifier(testSecret)
	token := Compute(testSecret, testBody)

	if !v.Verify(testBody, token) {
		t.Error("expected valid signature to be accepted")
	}
}

func TestVerify_UppercaseToken(t *testing.T) {
	// Some senders emit uppercase hex digests.
	v := NewVerifier(testSecret)
	token := strings.ToUpper(Compute(testSecret, testBody))

	if !v.Verify(testBody, token) {
		t.Error("expected uppercase token to be accepted")
	}
}

func TestVerify_Rejections(t *testing.T) {
	v := NewVerifier(testSecret)
	valid := Compute(testSecret, testBody)

	tests := []struct {
		name  string
		body  []byte
		token string
	}{
		{"missing token", testBody, ""},
		{"malformed token", testBody, "not-a-hex-digest"},
		{"wrong secret", testBody, Compute("othersecret", testBody)},
		{"truncated token", testBody, valid[:len(valid)-2]},
		{"mutated body", append([]byte{' '}, testBody...), valid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if v.Verify(tt.body, tt.token) {
				t.Error("expected rejection")
			}
		})
	}
}

func TestVerify_SingleByteMutation(t *testing.T) {
	v := NewVerifier(testSecret)
	token := Compute(testSecret, testBody)

	for i := range testBody {
		mutated := make([]byte, len(testBody))
		copy(mutated, testBody)
		mutated[i] ^= 0x01

		if v.Verify(mutated, token) {
			t.Fatalf("mutation at byte %d was accepted", i)
		}
	}
}

func TestVerify_NoSecretConfigured(t *testing.T) {
	v := NewVerifier("")

	if v.Enabled() {
		t.Error("verifier without secret should not report enabled")
	}
	if v.Verify(testBody, Compute("", testBody)) {
		t.Error("verifier without secret must reject everything")
	}
}
