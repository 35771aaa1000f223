package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

// Token verification failures.
var (
	ErrTokenInvalid = errors.New("storage: invalid download token")
	ErrTokenExpired = errors.New("storage: download token expired")
)

// Signer issues HMAC-signed tokens naming a stored file.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner builds a signer. A non-positive ttl defaults to one hour.
func NewSigner(secret string, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Signer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Sign returns a token for name and its expiry.
func (s *Signer) Sign(name string) (string, time.Time, error) {
	if name == "" {
		return "", time.Time{}, ErrInvalidName
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, errors.New("storage: signing secret missing")
	}
	expires := s.now().Add(s.ttl).Truncate(time.Second)
	body := base64.RawURLEncoding.EncodeToString([]byte(name)) + "." + strconv.FormatInt(expires.Unix(), 10)
	return body + "." + s.mac(body), expires, nil
}

// Verify checks the signature and expiry and returns the file name.
func (s *Signer) Verify(token string) (string, error) {
	idx := strings.LastIndex(token, ".")
	if idx <= 0 {
		return "", ErrTokenInvalid
	}
	body, sig := token[:idx], token[idx+1:]
	if !hmac.Equal([]byte(sig), []byte(s.mac(body))) {
		return "", ErrTokenInvalid
	}
	parts := strings.Split(body, ".")
	if len(parts) != 2 {
		return "", ErrTokenInvalid
	}
	name, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", ErrTokenInvalid
	}
	exp, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", ErrTokenInvalid
	}
	if s.now().After(time.Unix(exp, 0)) {
		return "", ErrTokenExpired
	}
	return string(name), nil
}

func (s *Signer) mac(body string) string {
	h := hmac.New(sha256.New, s.secret)
	_, _ = h.Write([]byte(body))
	return hex.EncodeToString(h.Sum(nil))
}
