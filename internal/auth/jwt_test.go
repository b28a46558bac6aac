package auth

import (
	"testing"
)

func TestTokenRoundTrip(t *testing.T) {
	t.Parallel()

	token, err := GenerateToken(42)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	userID, err := ValidateToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if userID != 42 {
		t.Errorf("got user ID %d, want 42", userID)
	}
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	t.Parallel()

	if _, err := ValidateToken("not-a-token"); err == nil {
		t.Error("garbage token was accepted")
	}
	if _, err := ValidateToken(""); err == nil {
		t.Error("empty token was accepted")
	}
}
