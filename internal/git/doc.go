// Package git checks whether a decrypted document is exposed to git.
//
// When slimedit writes plaintext (decrypt, or saving with encryption off)
// inside a git work tree, the file should be neither tracked nor left
// outside .gitignore. These checks shell out to the git binary and report
// nothing outside a repository or when git is not installed.
package git
