package jwt

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"
	"visionary-backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

const CookieName = "JWT"

type IdentityToken struct {
	UserID      string `json:"userID"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
	jwt.RegisteredClaims
}

func (t IdentityToken) Identity() *models.Identity {
	return &models.Identity{UserID: t.UserID, Email: t.Email, DisplayName: t.DisplayName}
}

// Issuer signs and verifies identity tokens. Login itself lives in the
// auth provider, tokens are only minted here for local development.
type Issuer struct {
	secret  []byte
	isHttps bool
}

func NewIssuer(secret string, isHttps bool) *Issuer {
	return &Issuer{secret: []byte(secret), isHttps: isHttps}
}

func (i *Issuer) CreateToken(identity models.Identity, lifetime time.Duration) (http.Cookie, error) {
	currentTime := time.Now().UTC()
	expirationDate := currentTime.Add(lifetime)

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, IdentityToken{
		UserID:      identity.UserID,
		Email:       identity.Email,
		DisplayName: identity.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(expirationDate),
		},
	})

	tokenString, err := token.SignedString(i.secret)
	if err != nil {
		return http.Cookie{}, err
	}

	cookie := http.Cookie{
		Name:     CookieName,
		Value:    tokenString,
		Path:     "/",
		HttpOnly: true,
		Secure:   i.isHttps,
		SameSite: http.SameSiteLaxMode,
		Expires:  expirationDate,
	}

	return cookie, nil
}

// VerifyToken also rejects expired tokens.
func (i *Issuer) VerifyToken(tokenString string) (IdentityToken, error) {
	token, err := jwt.ParseWithClaims(tokenString, &IdentityToken{}, func(token *jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}))
	if err != nil {
		return IdentityToken{}, err
	} else if claims, ok := token.Claims.(*IdentityToken); ok {
		if claims.UserID == "" {
			return IdentityToken{}, errors.New("token has no user")
		}
		return *claims, nil
	} else {
		return IdentityToken{}, errors.New("invalid token")
	}
}

var ErrBadSessionSignature = errors.New("session id signature mismatch")

// SignSessionID appends an HS256 signature to id, so session cookies can
// only carry ids this service handed out.
func (i *Issuer) SignSessionID(id string) (string, error) {
	signature, err := jwt.SigningMethodHS256.Sign(id, i.secret)
	if err != nil {
		return "", err
	}
	return id + "." + base64.RawURLEncoding.EncodeToString(signature), nil
}

// VerifySessionID returns the id of a value made by SignSessionID.
func (i *Issuer) VerifySessionID(value string) (string, error) {
	id, encoded, found := strings.Cut(value, ".")
	if !found {
		return "", ErrBadSessionSignature
	}

	signature, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrBadSessionSignature
	}

	err = jwt.SigningMethodHS256.Verify(id, signature, i.secret)
	if err != nil {
		return "", ErrBadSessionSignature
	}
	return id, nil
}
