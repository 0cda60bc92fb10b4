package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrTokenInvalid covers malformed tokens and bad signatures.
	ErrTokenInvalid = errors.New("invalid download token")
	// ErrTokenExpired is returned for a well-signed token past its expiry.
	ErrTokenExpired = errors.New("download token expired")
)

// SignedURLSigner issues time-limited HMAC tokens for object paths.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner constructs a signer with the provided secret and TTL.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL returns the validity of issued tokens.
func (s *SignedURLSigner) TTL() time.Duration {
	return s.ttl
}

// Sign returns a token granting read access to objectPath until the returned expiry.
func (s *SignedURLSigner) Sign(objectPath string) (string, time.Time, error) {
	if objectPath == "" {
		return "", time.Time{}, fmt.Errorf("object path required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	encodedPath := base64.RawURLEncoding.EncodeToString([]byte(objectPath))
	exp := strconv.FormatInt(expiresAt.Unix(), 10)
	return strings.Join([]string{encodedPath, exp, s.mac(encodedPath, exp)}, "."), expiresAt, nil
}

// Verify checks the token and returns the object path it grants.
func (s *SignedURLSigner) Verify(token string) (string, time.Time, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 || len(s.secret) == 0 {
		return "", time.Time{}, ErrTokenInvalid
	}
	encodedPath, exp, signature := parts[0], parts[1], parts[2]

	if !hmac.Equal([]byte(s.mac(encodedPath, exp)), []byte(signature)) {
		return "", time.Time{}, ErrTokenInvalid
	}
	unix, err := strconv.ParseInt(exp, 10, 64)
	if err != nil {
		return "", time.Time{}, ErrTokenInvalid
	}
	rawPath, err := base64.RawURLEncoding.DecodeString(encodedPath)
	if err != nil {
		return "", time.Time{}, ErrTokenInvalid
	}
	expiresAt := time.Unix(unix, 0)
	if s.now().After(expiresAt) {
		return "", expiresAt, ErrTokenExpired
	}
	return string(rawPath), expiresAt, nil
}

func (s *SignedURLSigner) mac(encodedPath, exp string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(encodedPath + "|" + exp))
	return hex.EncodeToString(mac.Sum(nil))
}
