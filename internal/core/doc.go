// Package core opens and saves slimedit documents.
//
// A document on disk is either plain text or an encrypted container
// (see package container). The Service:
//   - Detects the format of a file and decrypts it with a password
//   - Saves text either as plain text or as a freshly salted container
//   - Re-encrypts a container under a new password
//   - Diffs a decrypted document against another file
//   - Records opened and saved documents in an optional index
//
// Every operation reports an Outcome to the configured Notifier, which the
// editor uses for its status line. Passwords and derived keys live only for
// the duration of a single call.
package core
