package admin

import (
	"encoding/json"

	"github.com/noah-isme/gin-admin-kit/internal/session"
)

const flashSessionKey = "_flash"

// Flash levels.
const (
	FlashSuccess = "success"
	FlashError   = "error"
)

// Flash is a one-shot notice shown on the next rendered page.
type Flash struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// SetFlash stores a notice for the next render, replacing any pending one.
func SetFlash(sess *session.Session, kind, message string) {
	raw, err := json.Marshal(Flash{Type: kind, Message: message})
	if err != nil {
		return
	}
	sess.Set(flashSessionKey, string(raw))
}

// PopFlash removes and returns the pending notice, if any.
func PopFlash(sess *session.Session) *Flash {
	raw, ok := sess.Pop(flashSessionKey)
	if !ok {
		return nil
	}
	var f Flash
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		return nil
	}
	return &f
}
