package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

type Hasher interface {
	Hash(password string) (string, error)

	Verify(hash, password string) bool
}

// HashPassword returns the lowercase hex sha256 digest of password.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

type SHA256Hasher struct{}

func (SHA256Hasher) Hash(password string) (string, error) {
	return HashPassword(password), nil
}

func (SHA256Hasher) Verify(hash, password string) bool {
	return hash == HashPassword(password)
}

// BcryptHasher stores new passwords with bcrypt. Verify still accepts sha256
// hex digests so tables written by SHA256Hasher remain usable.
type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("error hashing password: %w", err)
	}
	return string(hash), nil
}

func (h BcryptHasher) Verify(hash, password string) bool {
	if isSHA256Hex(hash) {
		return SHA256Hasher{}.Verify(hash, password)
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func isSHA256Hex(hash string) bool {
	if len(hash) != sha256.Size*2 || strings.HasPrefix(hash, "$") {
		return false
	}
	_, err := hex.DecodeString(hash)
	return err == nil
}

func NewHasher(name string) (Hasher, error) {
	switch name {
	case "", "sha256":
		return SHA256Hasher{}, nil
	case "bcrypt":
		return BcryptHasher{}, nil
	default:
		return nil, fmt.Errorf("unknown password hasher '%s'", name)
	}
}
