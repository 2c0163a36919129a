package crypto

import (
	"bytes"
	"encoding/base64"
	"errors"
	"testing"
)

// fastParams keeps the tests quick; the derivation logic is identical.
func fastParams() Params {
	p := DefaultParams()
	p.Iterations = 1000
	return p
}

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()
	if p.Iterations != 100000 {
		t.Errorf("Iterations = %d, want 100000", p.Iterations)
	}
	if p.Digest != "SHA-256" {
		t.Errorf("Digest = %s, want SHA-256", p.Digest)
	}
	if p.SaltLength != 16 {
		t.Errorf("SaltLength = %d, want 16", p.SaltLength)
	}
	if err := p.Validate(); err != nil {
		t.Errorf("default params should be valid: %v", err)
	}
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		wantErr error
	}{
		{"zero iterations", Params{Iterations: 0, Digest: "SHA-256", SaltLength: 16}, ErrInvalidParams},
		{"too many iterations", Params{Iterations: MaxIterations + 1, Digest: "SHA-256", SaltLength: 16}, ErrInvalidParams},
		{"max iterations", Params{Iterations: MaxIterations, Digest: "SHA-256", SaltLength: 16}, nil},
		{"short salt", Params{Iterations: 10, Digest: "SHA-256", SaltLength: 4}, ErrInvalidParams},
		{"huge salt", Params{Iterations: 10, Digest: "SHA-256", SaltLength: 300}, ErrInvalidParams},
		{"unknown digest", Params{Iterations: 10, Digest: "MD5", SaltLength: 16}, ErrUnsupportedDigest},
		{"sha512", Params{Iterations: 10, Digest: "sha512", SaltLength: 16}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDeriveKeyGeneratesSalt(t *testing.T) {
	key, salt, err := DeriveKey([]byte("password"), "", fastParams())
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}
	if len(salt) != DefaultSaltSize {
		t.Errorf("salt length = %d, want %d", len(salt), DefaultSaltSize)
	}

	raw, err := base64.URLEncoding.DecodeString(string(key))
	if err != nil {
		t.Fatalf("key is not url-safe base64: %v", err)
	}
	if len(raw) != KeySize {
		t.Errorf("raw key length = %d, want %d", len(raw), KeySize)
	}
}

func TestDeriveKeyDeterministic(t *testing.T) {
	p := fastParams()
	key1, salt, err := DeriveKey([]byte("password"), "", p)
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}

	saltB64 := base64.StdEncoding.EncodeToString(salt)
	key2, salt2, err := DeriveKey([]byte("password"), saltB64, p)
	if err != nil {
		t.Fatalf("DeriveKey with salt failed: %v", err)
	}
	key3, _, err := DeriveKey([]byte("password"), saltB64, p)
	if err != nil {
		t.Fatalf("DeriveKey with salt failed: %v", err)
	}

	if !bytes.Equal(salt, salt2) {
		t.Error("returned salt should match the supplied one")
	}
	if !bytes.Equal(key1, key2) || !bytes.Equal(key2, key3) {
		t.Error("same password and salt must yield the same key")
	}
}

func TestDeriveKeyDiffers(t *testing.T) {
	p := fastParams()
	saltB64 := base64.StdEncoding.EncodeToString([]byte("0123456789abcdef"))

	k1, _, err := DeriveKey([]byte("password-one"), saltB64, p)
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}
	k2, _, err := DeriveKey([]byte("password-two"), saltB64, p)
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}
	if bytes.Equal(k1, k2) {
		t.Error("different passwords must yield different keys")
	}

	otherSalt := base64.StdEncoding.EncodeToString([]byte("fedcba9876543210"))
	k3, _, err := DeriveKey([]byte("password-one"), otherSalt, p)
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}
	if bytes.Equal(k1, k3) {
		t.Error("different salts must yield different keys")
	}

	p512 := p
	p512.Digest = DigestSHA512
	k4, _, err := DeriveKey([]byte("password-one"), saltB64, p512)
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}
	if bytes.Equal(k1, k4) {
		t.Error("different digests must yield different keys")
	}
}

func TestDeriveKeyMalformedSalt(t *testing.T) {
	_, _, err := DeriveKey([]byte("password"), "not base64!!", fastParams())
	if !errors.Is(err, ErrDecode) {
		t.Errorf("expected ErrDecode, got %v", err)
	}
}

func newTestEncryptor(t *testing.T, password string) *Encryptor {
	t.Helper()
	saltB64 := base64.StdEncoding.EncodeToString([]byte("fixed-test-salt!"))
	key, _, err := DeriveKey([]byte(password), saltB64, fastParams())
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}
	enc, err := NewEncryptor(key)
	if err != nil {
		t.Fatalf("NewEncryptor failed: %v", err)
	}
	return enc
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	enc := newTestEncryptor(t, "correct-horse")
	defer enc.Destroy()

	plaintexts := []string{
		"hello world",
		"line one\nline two\n",
		"Hello 世界! Ñoño café",
	}

	for _, pt := range plaintexts {
		token, err := enc.Encrypt([]byte(pt))
		if err != nil {
			t.Fatalf("Encrypt failed: %v", err)
		}
		if !LooksLikeToken(token) {
			t.Errorf("token %q should look like a wrapped Fernet token", token)
		}

		got, err := enc.Decrypt(token)
		if err != nil {
			t.Fatalf("Decrypt failed: %v", err)
		}
		if string(got) != pt {
			t.Errorf("round trip mismatch: got %q, want %q", got, pt)
		}
	}
}

func TestEncryptNonDeterministic(t *testing.T) {
	enc := newTestEncryptor(t, "password")
	defer enc.Destroy()

	t1, err := enc.Encrypt([]byte("same text"))
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	t2, err := enc.Encrypt([]byte("same text"))
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if t1 == t2 {
		t.Error("two encryptions of the same plaintext should differ")
	}
}

func TestDecryptWrongKey(t *testing.T) {
	enc := newTestEncryptor(t, "correct-horse")
	defer enc.Destroy()
	wrong := newTestEncryptor(t, "wrong-password")
	defer wrong.Destroy()

	token, err := enc.Encrypt([]byte("hello world"))
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	got, err := wrong.Decrypt(token)
	if !errors.Is(err, ErrAuthFailed) {
		t.Errorf("expected ErrAuthFailed, got %v", err)
	}
	if got != nil {
		t.Errorf("no plaintext should be returned on failure, got %q", got)
	}
}

func TestDecryptBitFlip(t *testing.T) {
	enc := newTestEncryptor(t, "correct-horse")
	defer enc.Destroy()

	token, err := enc.Encrypt([]byte("hello world"))
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	inner, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		t.Fatalf("outer decode failed: %v", err)
	}
	raw, err := base64.URLEncoding.DecodeString(string(inner))
	if err != nil {
		t.Fatalf("inner decode failed: %v", err)
	}

	// Flip one bit in the version/timestamp area, the ciphertext, and the HMAC
	for _, pos := range []int{5, len(raw) / 2, len(raw) - 1} {
		tampered := append([]byte(nil), raw...)
		tampered[pos] ^= 0x01
		tok := base64.StdEncoding.EncodeToString([]byte(base64.URLEncoding.EncodeToString(tampered)))

		for i := 0; i < 2; i++ {
			if _, err := enc.Decrypt(tok); !errors.Is(err, ErrAuthFailed) {
				t.Errorf("bit flip at %d: expected ErrAuthFailed, got %v", pos, err)
			}
		}
	}
}

func TestDecryptEveryStoredBitFlip(t *testing.T) {
	enc := newTestEncryptor(t, "correct-horse")
	defer enc.Destroy()

	token, err := enc.Encrypt([]byte("hello world"))
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	for i := 0; i < len(token); i++ {
		for bit := 0; bit < 8; bit++ {
			tampered := []byte(token)
			tampered[i] ^= 1 << bit
			got, err := enc.Decrypt(string(tampered))
			if err == nil {
				t.Errorf("flip of bit %d in char %d (%q -> %q) decrypted to %q", bit, i, token[i], tampered[i], got)
			}
			if got != nil {
				t.Errorf("flip of bit %d in char %d returned plaintext", bit, i)
			}
		}
	}
}

func TestDecryptNonCanonicalPadding(t *testing.T) {
	enc := newTestEncryptor(t, "correct-horse")
	defer enc.Destroy()

	token, err := enc.Encrypt([]byte("hello world"))
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	inner, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		t.Fatalf("outer decode failed: %v", err)
	}

	// "hello world" gives a 73-byte Fernet token, so the inner text ends in
	// one data char with four unused bits before "=="
	last := bytes.LastIndexAny(inner, "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_")
	if !bytes.HasSuffix(inner, []byte("==")) || last < 0 {
		t.Fatalf("unexpected inner token shape %q", inner)
	}
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
	v := bytes.IndexByte([]byte(alphabet), inner[last])
	altered := append([]byte(nil), inner...)
	altered[last] = alphabet[v^0x01]

	tok := base64.StdEncoding.EncodeToString(altered)
	if _, err := enc.Decrypt(tok); !errors.Is(err, ErrAuthFailed) {
		t.Errorf("expected ErrAuthFailed for non-canonical inner token, got %v", err)
	}
}

func TestDecryptMalformedToken(t *testing.T) {
	enc := newTestEncryptor(t, "password")
	defer enc.Destroy()

	if _, err := enc.Decrypt("%%% not base64 %%%"); !errors.Is(err, ErrDecode) {
		t.Errorf("expected ErrDecode for malformed outer layer, got %v", err)
	}

	garbage := base64.StdEncoding.EncodeToString([]byte("definitely not a fernet token"))
	if _, err := enc.Decrypt(garbage); !errors.Is(err, ErrAuthFailed) {
		t.Errorf("expected ErrAuthFailed for malformed inner token, got %v", err)
	}
}

func TestLooksLikeToken(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"empty", "", false},
		{"multi line", "abc\ndef", false},
		{"plain words", "hello world", false},
		{"base64 of text", base64.StdEncoding.EncodeToString([]byte("hello")), false},
		{"non-canonical padding", "aGVsbG9=", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LooksLikeToken(tt.token); got != tt.want {
				t.Errorf("LooksLikeToken(%q) = %v, want %v", tt.token, got, tt.want)
			}
		})
	}
}

func TestClearBytes(t *testing.T) {
	b := []byte("secret")
	ClearBytes(b)
	for i, c := range b {
		if c != 0 {
			t.Errorf("byte %d not cleared", i)
		}
	}
}

func TestCanonicalDigest(t *testing.T) {
	for _, in := range []string{"SHA-256", "sha256", " Sha-256 "} {
		got, err := CanonicalDigest(in)
		if err != nil || got != DigestSHA256 {
			t.Errorf("CanonicalDigest(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := CanonicalDigest("blake2"); !errors.Is(err, ErrUnsupportedDigest) {
		t.Errorf("expected ErrUnsupportedDigest, got %v", err)
	}
}
