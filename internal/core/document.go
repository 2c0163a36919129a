package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/illarion/slimedit/internal/container"
	"github.com/illarion/slimedit/internal/crypto"
	"github.com/illarion/slimedit/internal/logger"
	"github.com/illarion/slimedit/internal/storage"
)

const (
	FilePermPlain  = 0644 // New plain documents
	FilePermSecure = 0600 // Encrypted documents: owner rw only
)

// Index records documents the user has opened or saved
type Index interface {
	PutDocument(entry storage.DocumentEntry) error
	GetDocument(path string) (*storage.DocumentEntry, error)
	ListDocuments() ([]storage.DocumentEntry, error)
	GetModified() (time.Time, error)
	RemoveDocument(path string) (bool, error)
	Compact() error
}

// Document is a fully loaded plaintext document
type Document struct {
	Path   string
	Text   string
	Format container.Format
}

// Inspection describes a file on disk without decrypting it
type Inspection struct {
	Path   string
	Format container.Format
	Size   int64
	Params *crypto.Params // Only for marked containers
}

// SaveRequest is what the UI hands over on save
type SaveRequest struct {
	Path     string
	Text     string
	Encrypt  bool
	Password []byte // Required when Encrypt is set; never retained
}

// Service opens and saves plain and encrypted documents.
// It keeps no passwords or keys between calls.
type Service struct {
	params      crypto.Params
	writeFormat container.Format
	index       Index
	notifier    Notifier
	log         *logger.Logger
}

// Option configures a Service
type Option func(*Service)

// WithParams sets the key derivation parameters for new encrypted saves
func WithParams(p crypto.Params) Option {
	return func(s *Service) { s.params = p }
}

// WithLegacyFormat makes encrypted saves use the headerless two-line layout
func WithLegacyFormat(legacy bool) Option {
	return func(s *Service) {
		if legacy {
			s.writeFormat = container.FormatLegacy
		} else {
			s.writeFormat = container.FormatMarked
		}
	}
}

// WithIndex records opens and saves in idx
func WithIndex(idx Index) Option {
	return func(s *Service) { s.index = idx }
}

// WithNotifier reports every outcome to n
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithLogger sets the diagnostic logger
func WithLogger(l *logger.Logger) Option {
	return func(s *Service) { s.log = l.Named("core") }
}

// New creates a Service with default parameters and the marked format
func New(opts ...Option) *Service {
	s := &Service{
		params:      crypto.DefaultParams(),
		writeFormat: container.FormatMarked,
		log:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Params returns the parameters used for new encrypted saves
func (s *Service) Params() crypto.Params {
	return s.params
}

// SetNotifier replaces the notifier, e.g. once the UI exists
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// Detect classifies raw file content. Legacy containers are recognized with
// either the configured or the default salt length.
func (s *Service) Detect(raw []byte) container.Format {
	format := container.Detect(raw, s.params.SaltLength)
	if format == container.FormatPlain && s.params.SaltLength != crypto.DefaultSaltSize {
		format = container.Detect(raw, crypto.DefaultSaltSize)
	}
	return format
}

// Seal encrypts text with a key derived from password and a fresh salt,
// returning the container bytes in the configured format.
func (s *Service) Seal(text string, password []byte) ([]byte, error) {
	if len(password) == 0 {
		return nil, ErrPasswordRequired
	}

	kdf, err := crypto.NewKDF(s.params)
	if err != nil {
		return nil, fmt.Errorf("failed to create KDF: %w", err)
	}

	key, err := kdf.DeriveKey(password)
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(key)

	enc, err := crypto.NewEncryptor(key)
	if err != nil {
		return nil, err
	}
	defer enc.Destroy()

	token, err := enc.Encrypt([]byte(text))
	if err != nil {
		return nil, err
	}

	c := &container.Container{Params: s.params, Salt: kdf.Salt, Token: token}
	return c.Marshal(s.writeFormat)
}

// Unseal turns raw file content into plaintext. Plain content is returned
// verbatim; containers need the password they were sealed with.
func (s *Service) Unseal(raw, password []byte) (string, error) {
	return s.UnsealAs(raw, password, s.Detect(raw))
}

// UnsealAs is Unseal with the format chosen by the caller, e.g. after the
// user declined to decrypt a file that only looked encrypted.
func (s *Service) UnsealAs(raw, password []byte, format container.Format) (string, error) {
	if !format.Encrypted() {
		return string(raw), nil
	}
	if len(password) == 0 {
		return "", ErrPasswordRequired
	}

	c, _, err := container.Decode(raw, s.params)
	if err != nil {
		return "", err
	}

	kdf := &crypto.KDF{Salt: c.Salt, Params: c.Params}
	key, err := kdf.DeriveKey(password)
	if err != nil {
		return "", err
	}
	defer crypto.ClearBytes(key)

	enc, err := crypto.NewEncryptor(key)
	if err != nil {
		return "", err
	}
	defer enc.Destroy()

	plaintext, err := enc.Decrypt(c.Token)
	if err != nil {
		return "", err
	}
	text := string(plaintext)
	crypto.ClearBytes(plaintext)
	return text, nil
}

// Inspect reads path and reports its format without decrypting it
func (s *Service) Inspect(path string) (*Inspection, error) {
	raw, err := readDocument(path)
	if err != nil {
		return nil, err
	}

	info := &Inspection{
		Path:   path,
		Format: s.Detect(raw),
		Size:   int64(len(raw)),
	}
	if info.Format == container.FormatMarked {
		c, _, err := container.Decode(raw, s.params)
		if err != nil {
			return nil, err
		}
		info.Params = &c.Params
	}
	return info, nil
}

// Open loads path, detecting its format
func (s *Service) Open(ctx context.Context, path string, password []byte) (*Document, error) {
	return s.open(ctx, path, password, nil)
}

// OpenAs loads path, treating it as the given format
func (s *Service) OpenAs(ctx context.Context, path string, password []byte, format container.Format) (*Document, error) {
	return s.open(ctx, path, password, &format)
}

func (s *Service) open(ctx context.Context, path string, password []byte, forced *container.Format) (doc *Document, err error) {
	format := container.FormatPlain
	defer func() {
		s.report(Outcome{Op: OpOpen, Path: path, Format: format, Err: err})
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := readDocument(path)
	if err != nil {
		return nil, err
	}

	if forced != nil {
		format = *forced
	} else {
		format = s.Detect(raw)
	}

	if !format.Encrypted() && !DetectFileType(raw) {
		return nil, ErrBinaryFile
	}

	text, err := s.UnsealAs(raw, password, format)
	if err != nil {
		return nil, err
	}

	s.record(storage.DocumentEntry{
		Format:     format.String(),
		LastOpened: time.Now(),
	}, path, raw, format)

	return &Document{Path: path, Text: text, Format: format}, nil
}

// Save writes the document, encrypting it when requested. The write is
// atomic: readers see either the old or the new file.
func (s *Service) Save(ctx context.Context, req SaveRequest) (err error) {
	format := container.FormatPlain
	if req.Encrypt {
		format = s.writeFormat
	}
	defer func() {
		s.report(Outcome{Op: OpSave, Path: req.Path, Format: format, Err: err})
	}()

	if err := ctx.Err(); err != nil {
		return err
	}

	raw := []byte(req.Text)
	if req.Encrypt {
		raw, err = s.Seal(req.Text, req.Password)
		if err != nil {
			return err
		}
	}

	if err := atomicWriteFile(req.Path, raw, req.Encrypt); err != nil {
		return &IOError{Op: "write", Path: req.Path, Err: err}
	}

	s.record(storage.DocumentEntry{
		Format:    format.String(),
		LastSaved: time.Now(),
	}, req.Path, raw, format)

	return nil
}

// ChangePassword re-encrypts an encrypted document under a new password
// and a fresh salt.
func (s *Service) ChangePassword(ctx context.Context, path string, currentPassword, newPassword []byte) (err error) {
	defer func() {
		if err != nil {
			s.report(Outcome{Op: OpPasswd, Path: path, Err: err})
		}
	}()

	if err := ctx.Err(); err != nil {
		return err
	}
	if len(newPassword) == 0 {
		return ErrPasswordRequired
	}

	raw, err := readDocument(path)
	if err != nil {
		return err
	}
	format := s.Detect(raw)
	if !format.Encrypted() {
		return ErrNotEncrypted
	}

	text, err := s.UnsealAs(raw, currentPassword, format)
	if err != nil {
		return err
	}

	sealed, err := s.Seal(text, newPassword)
	if err != nil {
		return err
	}
	if err := atomicWriteFile(path, sealed, true); err != nil {
		return &IOError{Op: "write", Path: path, Err: err}
	}

	s.record(storage.DocumentEntry{
		Format:    s.writeFormat.String(),
		LastSaved: time.Now(),
	}, path, sealed, s.writeFormat)
	s.report(Outcome{Op: OpPasswd, Path: path, Format: s.writeFormat})
	return nil
}

// Diff returns a unified diff from the (decrypted) document at path to the
// file at otherPath, or "" when they match.
func (s *Service) Diff(ctx context.Context, path string, password []byte, otherPath string) (string, error) {
	doc, err := s.Open(ctx, path, password)
	if err != nil {
		return "", err
	}

	other, err := readDocument(otherPath)
	if err != nil {
		return "", err
	}
	defer crypto.ClearBytes(other)

	return GenerateUnifiedDiff(path, otherPath, []byte(doc.Text), other)
}

// Recent lists indexed documents, most recently used first
func (s *Service) Recent(ctx context.Context) ([]storage.DocumentEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.index == nil {
		return nil, ErrNoIndex
	}
	return s.index.ListDocuments()
}

// Lookup returns the index entry for path, or nil if it was never recorded
func (s *Service) Lookup(ctx context.Context, path string) (*storage.DocumentEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.index == nil {
		return nil, ErrNoIndex
	}
	return s.index.GetDocument(absPath(path))
}

// IndexUpdated returns when the index last changed
func (s *Service) IndexUpdated() (time.Time, error) {
	if s.index == nil {
		return time.Time{}, ErrNoIndex
	}
	return s.index.GetModified()
}

// Forget removes path from the index. The file itself is untouched.
func (s *Service) Forget(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s.index == nil {
		return false, ErrNoIndex
	}
	return s.index.RemoveDocument(absPath(path))
}

// CompactIndex reclaims unused space in the index database
func (s *Service) CompactIndex() error {
	if s.index == nil {
		return ErrNoIndex
	}
	return s.index.Compact()
}

// record updates the index. Index failures never fail the operation.
func (s *Service) record(entry storage.DocumentEntry, path string, raw []byte, format container.Format) {
	if s.index == nil {
		return
	}

	sum := sha256.Sum256(raw)
	entry.Path = absPath(path)
	entry.Size = int64(len(raw))
	entry.Hash = hex.EncodeToString(sum[:])
	if format.Encrypted() {
		if c, _, err := container.Decode(raw, s.params); err == nil {
			entry.Iterations = c.Params.Iterations
			entry.Digest = c.Params.Digest
		}
	}

	if err := s.index.PutDocument(entry); err != nil {
		s.log.Warn().Err(err).Str("path", entry.Path).Msg("failed to update document index")
	}
}

func (s *Service) report(o Outcome) {
	ev := s.log.Info()
	if o.Err != nil {
		ev = s.log.Warn().Err(o.Err)
	}
	ev.Str("op", string(o.Op)).Str("path", o.Path).Str("format", o.Format.String()).Msg("document operation")

	if s.notifier != nil {
		s.notifier.Notify(o)
	}
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

func readDocument(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &IOError{Op: "read", Path: path, Err: err}
	}
	return raw, nil
}

// IsNotExist reports whether err means the document does not exist yet
func IsNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
