package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"hash"
	"strings"

	"github.com/fernet/fernet-go"
	"golang.org/x/crypto/pbkdf2"
)

const (
	KeySize           = 32      // Raw PBKDF2 output size
	DefaultSaltSize   = 16      // Salt size in bytes
	DefaultIters      = 100_000 // Default PBKDF2 iterations
	DefaultDigest     = DigestSHA256
	DigestSHA256      = "SHA-256"
	DigestSHA512      = "SHA-512"
	MinSaltSize       = 8
	MaxIterations     = 10_000_000 // Upper bound accepted from file headers
	FernetVersionByte = 0x80
)

var (
	ErrDecode            = errors.New("malformed base64 data")
	ErrAuthFailed        = errors.New("decryption failed")
	ErrUnsupportedDigest = errors.New("unsupported digest")
	ErrInvalidParams     = errors.New("invalid key derivation parameters")
)

// Params holds the key derivation settings. They are recorded in the header of
// marked containers so documents survive a change of defaults.
type Params struct {
	Iterations int
	Digest     string
	SaltLength int
}

// DefaultParams returns {100000, "SHA-256", 16}.
func DefaultParams() Params {
	return Params{
		Iterations: DefaultIters,
		Digest:     DefaultDigest,
		SaltLength: DefaultSaltSize,
	}
}

// Validate checks that the parameters can be used for derivation.
func (p Params) Validate() error {
	if p.Iterations < 1 || p.Iterations > MaxIterations {
		return fmt.Errorf("%w: iterations must be between 1 and %d, got %d", ErrInvalidParams, MaxIterations, p.Iterations)
	}
	if p.SaltLength < MinSaltSize || p.SaltLength > 255 {
		return fmt.Errorf("%w: salt length must be between %d and 255, got %d", ErrInvalidParams, MinSaltSize, p.SaltLength)
	}
	if _, err := p.hashFunc(); err != nil {
		return err
	}
	return nil
}

// CanonicalDigest returns the normalized digest name ("SHA-256" or "SHA-512").
func CanonicalDigest(name string) (string, error) {
	switch strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(name)), "-", "") {
	case "SHA256":
		return DigestSHA256, nil
	case "SHA512":
		return DigestSHA512, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedDigest, name)
	}
}

func (p Params) hashFunc() (func() hash.Hash, error) {
	digest, err := CanonicalDigest(p.Digest)
	if err != nil {
		return nil, err
	}
	if digest == DigestSHA512 {
		return sha512.New, nil
	}
	return sha256.New, nil
}

// Key is a derived key in url-safe base64 form, the format Fernet expects.
type Key []byte

// KDF handles key derivation from passwords
type KDF struct {
	Salt   []byte
	Params Params
}

// NewKDF creates a new KDF with a fresh random salt
func NewKDF(p Params) (*KDF, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	salt, err := GenerateRandom(p.SaltLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	return &KDF{Salt: salt, Params: p}, nil
}

// KDFFromEncodedSalt creates a KDF from a base64-encoded stored salt
func KDFFromEncodedSalt(saltB64 string, p Params) (*KDF, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	salt, err := base64.StdEncoding.DecodeString(strings.TrimSpace(saltB64))
	if err != nil {
		return nil, fmt.Errorf("%w: salt: %v", ErrDecode, err)
	}

	return &KDF{Salt: salt, Params: p}, nil
}

// DeriveKey derives an encryption key from a password.
// The raw PBKDF2 output is cleared before returning.
func (k *KDF) DeriveKey(password []byte) (Key, error) {
	h, err := k.Params.hashFunc()
	if err != nil {
		return nil, err
	}

	raw := pbkdf2.Key(password, k.Salt, k.Params.Iterations, KeySize, h)
	defer ClearBytes(raw)

	key := make(Key, base64.URLEncoding.EncodedLen(KeySize))
	base64.URLEncoding.Encode(key, raw)
	return key, nil
}

// DeriveKey derives a key from password and an optional base64 salt.
// An empty saltB64 generates a fresh salt. The salt used is returned raw.
func DeriveKey(password []byte, saltB64 string, p Params) (Key, []byte, error) {
	var (
		kdf *KDF
		err error
	)
	if saltB64 == "" {
		kdf, err = NewKDF(p)
	} else {
		kdf, err = KDFFromEncodedSalt(saltB64, p)
	}
	if err != nil {
		return nil, nil, err
	}

	key, err := kdf.DeriveKey(password)
	if err != nil {
		return nil, nil, err
	}
	return key, kdf.Salt, nil
}

// Encryptor provides authenticated encryption
type Encryptor struct {
	key *fernet.Key
}

// NewEncryptor creates a new encryptor with the given key
func NewEncryptor(key Key) (*Encryptor, error) {
	k, err := fernet.DecodeKey(string(key))
	if err != nil {
		return nil, fmt.Errorf("invalid key: %w", err)
	}
	return &Encryptor{key: k}, nil
}

// Encrypt encrypts plaintext into a single-line token
func (e *Encryptor) Encrypt(plaintext []byte) (string, error) {
	tok, err := fernet.EncryptAndSign(plaintext, e.key)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt: %w", err)
	}
	return base64.StdEncoding.EncodeToString(tok), nil
}

// Decrypt verifies and decrypts a token produced by Encrypt
func (e *Encryptor) Decrypt(token string) ([]byte, error) {
	tok, err := decodeStrict(base64.StdEncoding, strings.TrimSpace(token))
	if err != nil {
		return nil, fmt.Errorf("%w: token: %v", ErrDecode, err)
	}
	// fernet-go decodes leniently; a token that is not canonical base64 was altered
	if _, err := decodeStrict(base64.URLEncoding, string(tok)); err != nil {
		return nil, ErrAuthFailed
	}

	// Tokens carry no expiry, so the TTL check is disabled
	plaintext := fernet.VerifyAndDecrypt(tok, 0, []*fernet.Key{e.key})
	if plaintext == nil {
		return nil, ErrAuthFailed
	}
	return plaintext, nil
}

// Destroy clears the encryptor's key from memory
func (e *Encryptor) Destroy() {
	if e.key != nil {
		*e.key = fernet.Key{}
	}
}

// LooksLikeToken reports whether token is a single line of base64 wrapping a
// Fernet token. It does not verify anything.
func LooksLikeToken(token string) bool {
	if token == "" || strings.ContainsAny(token, "\r\n") {
		return false
	}
	tok, err := decodeStrict(base64.StdEncoding, token)
	if err != nil || len(tok) == 0 {
		return false
	}
	inner, err := decodeStrict(base64.URLEncoding, string(tok))
	if err != nil || len(inner) == 0 {
		return false
	}
	return inner[0] == FernetVersionByte
}

// decodeStrict accepts only the canonical encoding of some byte string:
// zero padding bits and no embedded line breaks.
func decodeStrict(enc *base64.Encoding, s string) ([]byte, error) {
	if strings.ContainsAny(s, "\r\n") {
		return nil, errors.New("unexpected line break")
	}
	return enc.Strict().DecodeString(s)
}

// ClearBytes securely clears a byte slice
func ClearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// ConstantTimeCompare performs a constant-time comparison of two byte slices
func ConstantTimeCompare(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// GenerateRandom generates n random bytes
func GenerateRandom(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return b, nil
}
