package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// CookieName is the session cookie shared by the HTTP routes and the
// WebSocket endpoint.
const CookieName = "chat_session"

// CookieMaxAge is the session cookie lifetime in seconds (~100 minutes).
const CookieMaxAge = 6000

// Signer signs and verifies session cookie values with an HMAC keyed by the
// configured secret.
type Signer struct {
	secret []byte
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Sign creates a signed cookie value in the format "value|signature".
func (s *Signer) Sign(value string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(value))
	signature := mac.Sum(nil)
	return fmt.Sprintf("%s|%s", base64.URLEncoding.EncodeToString([]byte(value)), base64.URLEncoding.EncodeToString(signature))
}

// Verify checks the signed cookie value and returns the original value.
func (s *Signer) Verify(signedValue string) (string, error) {
	parts := strings.Split(signedValue, "|")
	if len(parts) != 2 {
		return "", errors.New("invalid cookie format")
	}

	valueBytes, err := base64.URLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", errors.New("invalid value encoding")
	}
	value := string(valueBytes)

	signature, err := base64.URLEncoding.DecodeString(parts[1])
	if err != nil {
		return "", errors.New("invalid signature encoding")
	}

	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(value))
	expected := mac.Sum(nil)

	if !hmac.Equal(signature, expected) {
		return "", errors.New("invalid signature")
	}

	return value, nil
}

// TokenFromRequest extracts and verifies the session token carried by the
// request's session cookie.
func (s *Signer) TokenFromRequest(r *http.Request) (string, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return "", err
	}
	return s.Verify(cookie.Value)
}

// SetSessionCookie writes the signed session cookie. The cookie is httpOnly
// and non-secure by default, matching the original deployment.
func (s *Signer) SetSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    s.Sign(token),
		Path:     "/",
		MaxAge:   CookieMaxAge,
		HttpOnly: true,
	})
}

// ClearSessionCookie expires the session cookie.
func (s *Signer) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}
