package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// ErrInvalidHash is returned when a stored hash is not an argon2id PHC string.
var ErrInvalidHash = errors.New("auth: invalid password hash")

// Hasher hashes passwords with Argon2id and encodes them as PHC strings:
// $argon2id$v=19$m=65536,t=4,p=3$<salt>$<key>
type Hasher struct {
	Memory  uint32 // KiB
	Time    uint32
	Threads uint8
	SaltLen uint32
	KeyLen  uint32
}

// DefaultHasher uses m=65536 KiB, t=4, p=3.
var DefaultHasher = Hasher{Memory: 64 * 1024, Time: 4, Threads: 3, SaltLen: 16, KeyLen: 32}

// NewHasher returns DefaultHasher with the cost parameters replaced where non-zero.
func NewHasher(memory, iterations uint32, threads uint8) Hasher {
	h := DefaultHasher
	if memory > 0 {
		h.Memory = memory
	}
	if iterations > 0 {
		h.Time = iterations
	}
	if threads > 0 {
		h.Threads = threads
	}
	return h
}

// Hash returns the encoded hash of password under a fresh random salt.
func (h Hasher) Hash(password string) (string, error) {
	salt := make([]byte, h.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("auth.Hash: %w", err)
	}
	key := argon2.IDKey([]byte(password), salt, h.Time, h.Memory, h.Threads, h.KeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.Memory, h.Time, h.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether password matches encoded. The cost parameters are read from encoded,
// so hashes made with older settings keep verifying.
func (h Hasher) Verify(password, encoded string) (bool, error) {
	p, salt, key, err := decodeHash(encoded)
	if err != nil {
		return false, err
	}
	other := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, uint32(len(key)))
	return subtle.ConstantTimeCompare(key, other) == 1, nil
}

// HashPassword hashes with DefaultHasher.
func HashPassword(password string) (string, error) { return DefaultHasher.Hash(password) }

// VerifyPassword verifies with DefaultHasher.
func VerifyPassword(password, encoded string) (bool, error) {
	return DefaultHasher.Verify(password, encoded)
}

func decodeHash(encoded string) (Hasher, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return Hasher{}, nil, nil, ErrInvalidHash
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return Hasher{}, nil, nil, ErrInvalidHash
	}
	var p Hasher
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &p.Threads); err != nil {
		return Hasher{}, nil, nil, ErrInvalidHash
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return Hasher{}, nil, nil, ErrInvalidHash
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return Hasher{}, nil, nil, ErrInvalidHash
	}
	return p, salt, key, nil
}
