// Package fieldcrypt seals individual sensitive column values at rest.
package fieldcrypt

import (
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

var ErrMalformedCiphertext = errors.New("fieldcrypt: malformed ciphertext")

// Sealer encrypts values with XChaCha20-Poly1305 and produces keyed lookup
// hashes. Encryption and MAC keys are derived from one master key.
type Sealer struct {
	aead   cipher.AEAD
	macKey []byte
}

func New(masterKey []byte) (*Sealer, error) {
	if len(masterKey) != 32 {
		return nil, fmt.Errorf("fieldcrypt: master key must be 32 bytes, got %d", len(masterKey))
	}

	encKey, err := derive(masterKey, "field-encryption")
	if err != nil {
		return nil, err
	}
	macKey, err := derive(masterKey, "field-lookup")
	if err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.NewX(encKey)
	if err != nil {
		return nil, fmt.Errorf("fieldcrypt: creating cipher: %w", err)
	}

	return &Sealer{aead: aead, macKey: macKey}, nil
}

func derive(master []byte, info string) ([]byte, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, master, nil, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("fieldcrypt: deriving %s key: %w", info, err)
	}
	return key, nil
}

// Seal returns nonce || ciphertext.
func (s *Sealer) Seal(plaintext string) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plaintext)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("fieldcrypt: generating nonce: %w", err)
	}
	return s.aead.Seal(nonce, nonce, []byte(plaintext), nil), nil
}

func (s *Sealer) Open(sealed []byte) (string, error) {
	if len(sealed) < s.aead.NonceSize()+s.aead.Overhead() {
		return "", ErrMalformedCiphertext
	}
	nonce, ct := sealed[:s.aead.NonceSize()], sealed[s.aead.NonceSize():]
	pt, err := s.aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", ErrMalformedCiphertext
	}
	return string(pt), nil
}

// LookupHash is deterministic for equal inputs after whitespace and
// separator normalisation, so "19900101-1234" and "199001011234" collide.
func (s *Sealer) LookupHash(value string) string {
	mac := hmac.New(sha256.New, s.macKey)
	mac.Write([]byte(normalize(value)))
	return hex.EncodeToString(mac.Sum(nil))
}

func normalize(v string) string {
	return strings.NewReplacer(" ", "", "-", "", "+", "").Replace(strings.TrimSpace(v))
}

// Mask keeps only the last four characters visible.
func Mask(value string) string {
	if len(value) <= 4 {
		return strings.Repeat("*", len(value))
	}
	return strings.Repeat("*", len(value)-4) + value[len(value)-4:]
}
