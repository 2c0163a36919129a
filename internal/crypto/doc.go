// Package crypto provides the key derivation and document encryption used by slimedit.
//
// Key derivation uses PBKDF2 with:
//   - a 16-byte random salt per encrypted save (stored next to the ciphertext)
//   - HMAC-SHA256 and 100,000 iterations by default
//   - 32 bytes of output, encoded as url-safe base64 (the Fernet key format)
//
// Encryption produces Fernet tokens (AES-128-CBC + HMAC-SHA256, versioned,
// timestamped) wrapped in one more layer of standard base64 so the token
// always fits on a single line.
//
// Memory safety:
//   - Use ClearBytes() to zero passwords and keys after use
//   - Call Encryptor.Destroy() when done with encryption operations
package crypto
