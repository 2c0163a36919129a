// Package container defines the on-disk layout of slimedit documents.
//
// Three layouts exist:
//   - plain: raw UTF-8 text, written verbatim
//   - legacy: base64(salt) "\n" token, as written by earlier releases
//   - marked: a header line "SLIMEDIT-ENC/1 pbkdf2 <digest> <iterations>"
//     followed by the legacy layout
//
// New encrypted saves use the marked layout unless legacy output is requested.
package container
