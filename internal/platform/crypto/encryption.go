package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// sealedV1 prefixes every ciphertext so rows written before a key was configured stay readable.
const sealedV1 byte = 0x01

const keyInfo = "opscore salary rates v1"

var (
	ErrSealedWithoutKey = errors.New("value is sealed but DATA_ENCRYPTION_KEY is not set")
	ErrMalformedSealed  = errors.New("sealed value is malformed")
)

// Service seals small records with AES-256-GCM. The associated data binds a ciphertext to
// its owning row, so a value copied onto another row fails to open.
type Service struct {
	aead cipher.AEAD
}

// New derives the key from DATA_ENCRYPTION_KEY with HKDF-SHA256. An empty key yields a
// service that stores plaintext.
func New(key string) (*Service, error) {
	if key == "" {
		return &Service{}, nil
	}
	material, err := decodeKey(key)
	if err != nil {
		return nil, err
	}
	if len(material) < 16 {
		return nil, fmt.Errorf("DATA_ENCRYPTION_KEY must be at least 16 bytes after decoding")
	}
	derived := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, material, nil, []byte(keyInfo)), derived); err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(derived)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Service{aead: aead}, nil
}

func (s *Service) Configured() bool {
	return s != nil && s.aead != nil
}

// Seal encrypts plain for the row identified by owner.
func (s *Service) Seal(plain []byte, owner string) ([]byte, error) {
	if !s.Configured() || len(plain) == 0 {
		return plain, nil
	}
	out := make([]byte, 1+s.aead.NonceSize(), 1+s.aead.NonceSize()+len(plain)+s.aead.Overhead())
	out[0] = sealedV1
	if _, err := io.ReadFull(rand.Reader, out[1:]); err != nil {
		return nil, err
	}
	return s.aead.Seal(out, out[1:], plain, []byte(owner)), nil
}

// Open reverses Seal. Values without the version prefix are returned unchanged.
func (s *Service) Open(stored []byte, owner string) ([]byte, error) {
	if len(stored) == 0 || stored[0] != sealedV1 {
		return stored, nil
	}
	if !s.Configured() {
		return nil, ErrSealedWithoutKey
	}
	nonceEnd := 1 + s.aead.NonceSize()
	if len(stored) < nonceEnd+s.aead.Overhead() {
		return nil, ErrMalformedSealed
	}
	plain, err := s.aead.Open(nil, stored[1:nonceEnd], stored[nonceEnd:], []byte(owner))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSealed, err)
	}
	return plain, nil
}

// decodeKey accepts a 64 character hex string, standard base64 or raw bytes.
func decodeKey(raw string) ([]byte, error) {
	if len(raw) == 64 {
		if decoded, err := hex.DecodeString(raw); err == nil {
			return decoded, nil
		}
	}
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding} {
		if decoded, err := enc.DecodeString(raw); err == nil {
			return decoded, nil
		}
	}
	return []byte(raw), nil
}
