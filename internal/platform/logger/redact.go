package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/yungbote/roomchat-backend/internal/platform/envutil"
)

const redacted = "[REDACTED]"

// Field names containing any of these are dropped outright.
var secretKeyParts = []string{
	"token", "credential", "authorization", "password", "secret", "gateway_key", "email",
}

// Field names containing any of these are replaced with a short salted hash,
// so one user's lines can still be grouped.
var pseudonymKeyParts = []string{"user_id", "session_id"}

type redactor struct {
	enabled bool
	salt    string
}

func redactorFromEnv() *redactor {
	return &redactor{
		enabled: envutil.Bool("LOG_REDACTION_ENABLED", true),
		salt:    strings.TrimSpace(envutil.String("LOG_HASH_SALT", "")),
	}
}

func (r *redactor) fields(kv []interface{}) []interface{} {
	if r == nil || !r.enabled || len(kv) == 0 {
		return kv
	}
	out := make([]interface{}, len(kv))
	copy(out, kv)
	for i := 0; i+1 < len(out); i += 2 {
		out[i+1] = r.value(stringify(out[i]), out[i+1])
	}
	return out
}

func (r *redactor) value(key string, val interface{}) interface{} {
	key = strings.ToLower(strings.TrimSpace(key))
	switch {
	case key == "":
		return val
	case containsAny(key, secretKeyParts):
		return redacted
	case containsAny(key, pseudonymKeyParts):
		return r.pseudonym(stringify(val))
	}
	if s, ok := val.(string); ok && looksLikeJWT(s) {
		return redacted
	}
	return val
}

func (r *redactor) pseudonym(raw string) string {
	if raw == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(r.salt + raw))
	return "hash:" + hex.EncodeToString(sum[:6])
}

func containsAny(s string, parts []string) bool {
	for _, p := range parts {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

func looksLikeJWT(s string) bool {
	head, rest, ok := strings.Cut(s, ".")
	if !ok {
		return false
	}
	body, sig, ok := strings.Cut(rest, ".")
	return ok && !strings.Contains(sig, ".") && len(head) > 10 && len(body) > 10
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}
