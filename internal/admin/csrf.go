package admin

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"github.com/noah-isme/gin-admin-kit/internal/session"
)

const (
	csrfSessionKey = "_csrf_token"
	csrfFormField  = "csrf_token"
	csrfTokenBytes = 32
)

// IssueCSRFToken returns the session's token, creating it on first use.
// Concurrent first requests on one session all receive the token the store
// kept.
func IssueCSRFToken(ctx context.Context, sess *session.Session) (string, error) {
	if token, ok := sess.Get(csrfSessionKey); ok && token != "" {
		return token, nil
	}
	buf := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate csrf token: %w", err)
	}
	token, err := sess.SetIfAbsent(ctx, csrfSessionKey, base64.RawURLEncoding.EncodeToString(buf))
	if err != nil {
		return "", fmt.Errorf("store csrf token: %w", err)
	}
	return token, nil
}

// ValidCSRFToken compares submitted against the session token in constant
// time. It is false when either is empty.
func ValidCSRFToken(sess *session.Session, submitted string) bool {
	if sess == nil || submitted == "" {
		return false
	}
	token, ok := sess.Get(csrfSessionKey)
	if !ok || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(submitted)) == 1
}
