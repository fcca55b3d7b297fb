package scheduler

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// SignatureVerifier checks the Upstash-Signature header QStash attaches to
// delivery callbacks. The signature is an HS256 JWT whose body claim is the
// URL-safe base64 SHA-256 of the request body. Both the current and the
// next signing key are accepted, so key rotation doesn't drop callbacks.
type SignatureVerifier struct {
	currentKey string
	nextKey    string
}

func NewSignatureVerifier(currentKey, nextKey string) *SignatureVerifier {
	return &SignatureVerifier{currentKey: currentKey, nextKey: nextKey}
}

// Enabled reports whether any signing key is configured. Verification is
// optional in non-production environments.
func (v *SignatureVerifier) Enabled() bool {
	return v.currentKey != ""
}

func (v *SignatureVerifier) Verify(signature string, body []byte) error {
	if !v.Enabled() {
		return nil
	}
	if signature == "" {
		return fmt.Errorf("missing signature")
	}

	err := verifyWithKey(v.currentKey, signature, body)
	if err != nil && v.nextKey != "" {
		err = verifyWithKey(v.nextKey, signature, body)
	}
	return err
}

func verifyWithKey(key, signature string, body []byte) error {
	token, err := jwt.Parse(signature,
		func(t *jwt.Token) (any, error) {
			return []byte(key), nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer("Upstash"),
	)
	if err != nil {
		return fmt.Errorf("invalid signature token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return fmt.Errorf("unexpected claims type")
	}

	bodyClaim, _ := claims["body"].(string)
	sum := sha256.Sum256(body)
	expected := base64.URLEncoding.EncodeToString(sum[:])
	if strings.TrimRight(bodyClaim, "=") != strings.TrimRight(expected, "=") {
		return fmt.Errorf("body hash mismatch")
	}
	return nil
}
