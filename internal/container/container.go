package container

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/illarion/slimedit/internal/crypto"
)

const (
	Magic   = "SLIMEDIT-ENC"
	Version = 1
	KDFName = "pbkdf2"
)

// Format identifies how a file on disk is laid out
type Format int

const (
	FormatPlain  Format = iota // Raw UTF-8 text
	FormatLegacy               // base64(salt) "\n" token
	FormatMarked               // header line followed by the legacy layout
)

func (f Format) String() string {
	switch f {
	case FormatPlain:
		return "plain"
	case FormatLegacy:
		return "legacy"
	case FormatMarked:
		return "marked"
	default:
		return "unknown"
	}
}

// Encrypted reports whether the format holds ciphertext
func (f Format) Encrypted() bool {
	return f == FormatLegacy || f == FormatMarked
}

var (
	ErrNotContainer    = errors.New("not an encrypted container")
	ErrUnsupportedFile = errors.New("unsupported container version")
)

// Container is a parsed encrypted document
type Container struct {
	Params crypto.Params
	Salt   []byte
	Token  string
}

// Serialize produces base64(salt) + "\n" + token
func Serialize(salt []byte, token string) string {
	return base64.StdEncoding.EncodeToString(salt) + "\n" + token
}

// Parse splits blob on the first newline only. ok is false when blob has no
// newline, meaning the whole blob is literal plaintext.
func Parse(blob string) (saltB64, token string, ok bool) {
	i := strings.IndexByte(blob, '\n')
	if i < 0 {
		return "", "", false
	}
	return blob[:i], blob[i+1:], true
}

// Header returns the first line of a marked container for params p
func Header(p crypto.Params) string {
	return fmt.Sprintf("%s/%d %s %s %d", Magic, Version, KDFName, p.Digest, p.Iterations)
}

// Marshal encodes the container in the requested format
func (c *Container) Marshal(format Format) ([]byte, error) {
	body := Serialize(c.Salt, c.Token)
	switch format {
	case FormatLegacy:
		return []byte(body), nil
	case FormatMarked:
		return []byte(Header(c.Params) + "\n" + body), nil
	default:
		return nil, fmt.Errorf("cannot marshal container as %s", format)
	}
}

// Detect classifies blob. Marked containers are recognized by their magic
// prefix. A blob is only reported as legacy when its first line decodes to
// exactly saltLength bytes and the rest is a single wrapped Fernet token.
func Detect(blob []byte, saltLength int) Format {
	if bytes.HasPrefix(blob, []byte(Magic+"/")) {
		return FormatMarked
	}

	saltB64, token, ok := Parse(string(blob))
	if !ok {
		return FormatPlain
	}
	salt, err := base64.StdEncoding.DecodeString(strings.TrimRight(saltB64, "\r"))
	if err != nil || len(salt) != saltLength {
		return FormatPlain
	}
	if !crypto.LooksLikeToken(trimEOL(token)) {
		return FormatPlain
	}
	return FormatLegacy
}

// Decode parses a marked or legacy container. Legacy containers carry no
// parameters, so fallback supplies them; the salt length is taken from the
// stored salt.
func Decode(blob []byte, fallback crypto.Params) (*Container, Format, error) {
	format := FormatLegacy
	params := fallback
	body := string(blob)

	if bytes.HasPrefix(blob, []byte(Magic+"/")) {
		format = FormatMarked
		header, rest, ok := Parse(body)
		if !ok {
			return nil, format, fmt.Errorf("%w: missing container body", crypto.ErrDecode)
		}
		p, err := parseHeader(strings.TrimRight(header, "\r"))
		if err != nil {
			return nil, format, err
		}
		params = p
		body = rest
	}

	saltB64, token, ok := Parse(body)
	if !ok {
		if format == FormatMarked {
			return nil, format, fmt.Errorf("%w: missing token line", crypto.ErrDecode)
		}
		return nil, FormatPlain, ErrNotContainer
	}

	salt, err := base64.StdEncoding.DecodeString(strings.TrimSpace(saltB64))
	if err != nil {
		return nil, format, fmt.Errorf("%w: salt: %v", crypto.ErrDecode, err)
	}
	params.SaltLength = len(salt)

	return &Container{
		Params: params,
		Salt:   salt,
		Token:  trimEOL(token),
	}, format, nil
}

func parseHeader(line string) (crypto.Params, error) {
	var p crypto.Params

	fields := strings.Fields(line)
	if len(fields) != 4 {
		return p, fmt.Errorf("%w: malformed header %q", crypto.ErrDecode, line)
	}

	version, err := strconv.Atoi(strings.TrimPrefix(fields[0], Magic+"/"))
	if err != nil {
		return p, fmt.Errorf("%w: malformed header version", crypto.ErrDecode)
	}
	if version != Version {
		return p, fmt.Errorf("%w: %d", ErrUnsupportedFile, version)
	}
	if fields[1] != KDFName {
		return p, fmt.Errorf("%w: unknown kdf %q", ErrUnsupportedFile, fields[1])
	}

	digest, err := crypto.CanonicalDigest(fields[2])
	if err != nil {
		return p, err
	}
	iterations, err := strconv.Atoi(fields[3])
	if err != nil || iterations < 1 {
		return p, fmt.Errorf("%w: malformed iteration count %q", crypto.ErrDecode, fields[3])
	}
	if iterations > crypto.MaxIterations {
		return p, fmt.Errorf("%w: iteration count %d above %d", ErrUnsupportedFile, iterations, crypto.MaxIterations)
	}

	p.Digest = digest
	p.Iterations = iterations
	return p, nil
}

// trimEOL drops a single trailing line ending added by text editors
func trimEOL(s string) string {
	s = strings.TrimSuffix(s, "\n")
	return strings.TrimSuffix(s, "\r")
}
