// Package downloadtoken issues short-lived HMAC-signed links that let a
// browser fetch a file without sending an Authorization header.
package downloadtoken

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

const DefaultTTL = 15 * time.Minute

var (
	ErrMalformed = errors.New("invalid token format")
	ErrSignature = errors.New("invalid token signature")
	ErrExpired   = errors.New("token expired")
	ErrWrongFile = errors.New("token does not match file")
)

type Token struct {
	FileID    string `json:"fid"`
	UserID    string `json:"uid"`
	ExpiresAt int64  `json:"exp"`
	Nonce     string `json:"nce"`
}

type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func New(secret string, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Signer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (s *Signer) TTL() time.Duration {
	return s.ttl
}

// Issue returns "<base64 payload>.<hex hmac>" and its expiry.
func (s *Signer) Issue(fileID, userID string) (string, time.Time, error) {
	nonce := make([]byte, 12)
	if _, err := rand.Read(nonce); err != nil {
		return "", time.Time{}, err
	}

	expiresAt := s.now().Add(s.ttl)
	payload, err := json.Marshal(Token{
		FileID:    fileID,
		UserID:    userID,
		ExpiresAt: expiresAt.Unix(),
		Nonce:     hex.EncodeToString(nonce),
	})
	if err != nil {
		return "", time.Time{}, err
	}

	return base64.RawURLEncoding.EncodeToString(payload) + "." + s.sign(payload), expiresAt, nil
}

// Verify checks signature, expiry and that the token was issued for fileID.
func (s *Signer) Verify(token, fileID string) (*Token, error) {
	dataPart, sigPart, ok := strings.Cut(token, ".")
	if !ok || dataPart == "" || sigPart == "" {
		return nil, ErrMalformed
	}

	payload, err := base64.RawURLEncoding.DecodeString(dataPart)
	if err != nil {
		return nil, ErrMalformed
	}
	if !hmac.Equal([]byte(s.sign(payload)), []byte(sigPart)) {
		return nil, ErrSignature
	}

	var tok Token
	if err := json.Unmarshal(payload, &tok); err != nil {
		return nil, ErrMalformed
	}
	if s.now().Unix() > tok.ExpiresAt {
		return nil, ErrExpired
	}
	if tok.FileID != fileID {
		return nil, ErrWrongFile
	}
	return &tok, nil
}

func (s *Signer) sign(data []byte) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil))
}
