package session

import (
	"errors"
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewTokenService("secret", time.Hour)

	token, err := svc.Issue("sess_1")
	if err != nil {
		t.Fatal(err)
	}
	id, err := svc.Validate(token)
	if err != nil {
		t.Fatal(err)
	}
	if id != "sess_1" {
		t.Errorf("subject = %q, want sess_1", id)
	}
}

func TestTokenRejects(t *testing.T) {
	svc := NewTokenService("secret", time.Hour)
	token, err := svc.Issue("sess_1")
	if err != nil {
		t.Fatal(err)
	}

	expired := NewTokenService("secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := expired.Issue("sess_1")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		svc   *TokenService
		token string
	}{
		{"garbage", svc, "not.a.token"},
		{"wrong secret", NewTokenService("other", time.Hour), token},
		{"expired", svc, old},
		{"empty", svc, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.svc.Validate(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("error = %v, want ErrInvalidToken", err)
			}
		})
	}
}
