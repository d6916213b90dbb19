package jwt

import (
	"errors"
	"strings"
	"testing"
	"time"
	"visionary-backend/internal/models"
)

func TestCreateAndVerifyToken(t *testing.T) {
	issuer := NewIssuer("0123456789abcdef", false)
	identity := models.Identity{UserID: "42", Email: "ada@example.com", DisplayName: "Ada"}

	cookie, err := issuer.CreateToken(identity, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if cookie.Name != CookieName || !cookie.HttpOnly {
		t.Errorf("unexpected cookie: %+v", cookie)
	}

	token, err := issuer.VerifyToken(cookie.Value)
	if err != nil {
		t.Fatal(err)
	}
	if got := token.Identity(); *got != identity {
		t.Errorf("identity = %+v, want %+v", *got, identity)
	}
}

func TestVerifyTokenRejects(t *testing.T) {
	issuer := NewIssuer("0123456789abcdef", false)
	identity := models.Identity{UserID: "42", Email: "ada@example.com"}

	expired, err := issuer.CreateToken(identity, -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	foreign, err := NewIssuer("another-secret-value", false).CreateToken(identity, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	anonymous, err := issuer.CreateToken(models.Identity{}, time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{name: "expired", token: expired.Value},
		{name: "wrong secret", token: foreign.Value},
		{name: "no user", token: anonymous.Value},
		{name: "garbage", token: "not-a-token"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := issuer.VerifyToken(tc.token); err == nil {
				t.Errorf("VerifyToken accepted a %s token", tc.name)
			}
		})
	}
}

func TestSessionIDSignature(t *testing.T) {
	issuer := NewIssuer("0123456789abcdef", false)
	const id = "01890a5d-ac96-774b-bcce-b302099a8057"

	signed, err := issuer.SignSessionID(id)
	if err != nil {
		t.Fatal(err)
	}
	got, err := issuer.VerifySessionID(signed)
	if err != nil || got != id {
		t.Fatalf("VerifySessionID = (%q, %v), want (%q, nil)", got, err, id)
	}

	foreign, err := NewIssuer("another-secret-value", false).SignSessionID(id)
	if err != nil {
		t.Fatal(err)
	}
	other, err := issuer.SignSessionID("01890a5d-ac96-774b-bcce-b302099a8058")
	if err != nil {
		t.Fatal(err)
	}
	_, otherSignature, _ := strings.Cut(other, ".")

	tests := []struct {
		name  string
		value string
	}{
		{name: "unsigned", value: id},
		{name: "wrong secret", value: foreign},
		{name: "signature of another id", value: id + "." + otherSignature},
		{name: "bad encoding", value: id + ".!!!"},
		{name: "empty", value: ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := issuer.VerifySessionID(tc.value); !errors.Is(err, ErrBadSessionSignature) {
				t.Errorf("VerifySessionID(%q) error = %v, want ErrBadSessionSignature", tc.value, err)
			}
		})
	}
}
