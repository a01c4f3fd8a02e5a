package preferences

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/nacl/secretbox"
)

var (
	// ErrInvalidSealedToken is returned when a sealed value is malformed or
	// was sealed with a different secret.
	ErrInvalidSealedToken = errors.New("preferences: invalid sealed token")
	// ErrIncompatibleSealVersion is returned for values sealed by another
	// argon2 version.
	ErrIncompatibleSealVersion = errors.New("preferences: incompatible seal version")
)

const (
	keyLength   = 32
	nonceLength = 24
)

// Argon2idParams tunes the key derivation.
type Argon2idParams struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
}

// DefaultArgon2idParams is used when no parameters are configured.
var DefaultArgon2idParams = Argon2idParams{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 2,
	SaltLength:  16,
}

// Sealer encrypts short secrets with a key derived from a passphrase.
type Sealer struct {
	secret []byte
	params Argon2idParams
}

// NewSealer returns a Sealer for secret.
func NewSealer(secret string, params Argon2idParams) (*Sealer, error) {
	if secret == "" {
		return nil, errors.New("preferences: seal secret is required")
	}
	if params.SaltLength == 0 {
		params = DefaultArgon2idParams
	}
	return &Sealer{secret: []byte(secret), params: params}, nil
}

// Seal encrypts plaintext. The output is
// $argon2id$v=19$m=...,t=...,p=...$salt$nonce+box, all base64 without padding.
func (s *Sealer) Seal(plaintext string) (string, error) {
	salt := make([]byte, s.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	var nonce [nonceLength]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", err
	}

	key := s.deriveKey(salt, s.params)
	box := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &key)

	format := "$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s"
	return fmt.Sprintf(format, argon2.Version, s.params.Memory, s.params.Iterations, s.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(box),
	), nil
}

// Open decrypts a value produced by Seal.
func (s *Sealer) Open(sealed string) (string, error) {
	parts := strings.Split(sealed, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return "", ErrInvalidSealedToken
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return "", ErrInvalidSealedToken
	}
	if version != argon2.Version {
		return "", ErrIncompatibleSealVersion
	}

	var params Argon2idParams
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.Memory, &params.Iterations, &params.Parallelism); err != nil {
		return "", ErrInvalidSealedToken
	}
	if params.Iterations == 0 || params.Parallelism == 0 {
		return "", ErrInvalidSealedToken
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return "", ErrInvalidSealedToken
	}
	box, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(box) < nonceLength+secretbox.Overhead {
		return "", ErrInvalidSealedToken
	}

	var nonce [nonceLength]byte
	copy(nonce[:], box[:nonceLength])
	key := s.deriveKey(salt, params)
	plaintext, ok := secretbox.Open(nil, box[nonceLength:], &nonce, &key)
	if !ok {
		return "", ErrInvalidSealedToken
	}
	return string(plaintext), nil
}

func (s *Sealer) deriveKey(salt []byte, params Argon2idParams) [keyLength]byte {
	var key [keyLength]byte
	copy(key[:], argon2.IDKey(s.secret, salt, params.Iterations, params.Memory, params.Parallelism, keyLength))
	return key
}
