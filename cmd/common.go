package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/illarion/slimedit/internal/config"
	"github.com/illarion/slimedit/internal/core"
	"github.com/illarion/slimedit/internal/logger"
	"github.com/illarion/slimedit/internal/storage"
)

// Env carries the configuration shared by all commands
type Env struct {
	Config *config.Config
	Log    *logger.Logger
}

// NewService builds the document service from the configuration. The
// index is optional: when it is disabled or held by another process the
// service runs without it. The returned func closes the index.
func (e *Env) NewService(opts ...core.Option) (*core.Service, func()) {
	base := []core.Option{
		core.WithParams(e.Config.Params()),
		core.WithLegacyFormat(e.Config.LegacyFormat),
		core.WithLogger(e.Log),
	}

	db := e.openIndex()
	if db == nil {
		return core.New(append(base, opts...)...), func() {}
	}
	base = append(base, core.WithIndex(db))
	return core.New(append(base, opts...)...), func() { db.Close() }
}

func (e *Env) openIndex() *storage.Storage {
	if e.Config.NoIndex || e.Config.IndexPath == "" {
		return nil
	}

	db, err := storage.Open(e.Config.IndexPath)
	if err != nil {
		e.Log.Warn().Err(err).Str("path", e.Config.IndexPath).Msg("document index unavailable")
		return nil
	}
	if ok, err := db.IsInitialized(); err == nil && ok {
		return db
	}

	e.Log.Debug().Str("path", e.Config.IndexPath).Msg("creating document index")
	if err := db.Initialize(); err != nil {
		e.Log.Warn().Err(err).Msg("failed to initialize document index")
		db.Close()
		return nil
	}
	return db
}

// printOutcome reports successful operations on stderr, keeping stdout for
// document content.
func printOutcome() core.Option {
	return core.WithNotifier(core.NotifierFunc(func(o core.Outcome) {
		if o.Err == nil {
			fmt.Fprintln(os.Stderr, o.Message())
		}
	}))
}

// GetPassword retrieves the password from SLIMEDIT_PASSWORD or prompts.
// The caller is responsible for calling crypto.ClearBytes on the result.
func GetPassword(prompt string) ([]byte, error) {
	if password := core.GetPasswordFromEnv(); password != nil {
		return password, nil
	}

	password, err := core.ReadPassword(prompt)
	if err != nil {
		return nil, err
	}
	return password, nil
}

// GetPasswordOrExit is like GetPassword but exits on error
func GetPasswordOrExit(prompt string) []byte {
	password, err := GetPassword(prompt)
	if err != nil {
		HandleError(err)
	}
	return password
}

// GetNewPassword retrieves a password for encrypting. Prompts ask twice.
func GetNewPassword(prompt string) []byte {
	if password := core.GetPasswordFromEnv(); password != nil {
		return password
	}

	password, err := core.ReadPasswordConfirm(prompt)
	if err != nil {
		HandleError(err)
	}
	return password
}

// HandleError prints the user-facing message for err and exits
func HandleError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", core.Describe(err))

	switch {
	case errors.Is(err, core.ErrNoIndex):
		fmt.Fprintf(os.Stderr, "Unset SLIMEDIT_NO_INDEX to record opened documents\n")
	case errors.Is(err, storage.ErrLocked):
		fmt.Fprintf(os.Stderr, "Another slimedit process is using the index\n")
	case errors.Is(err, core.ErrNotEncrypted):
		fmt.Fprintf(os.Stderr, "Use 'slimedit encrypt' first\n")
	case errors.Is(err, core.ErrAlreadyEncrypted):
		fmt.Fprintf(os.Stderr, "Use 'slimedit passwd' to change its password\n")
	}
	os.Exit(1)
}

func formatSize(size int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case size >= GB:
		return fmt.Sprintf("%.1f GB", float64(size)/GB)
	case size >= MB:
		return fmt.Sprintf("%.1f MB", float64(size)/MB)
	case size >= KB:
		return fmt.Sprintf("%.1f KB", float64(size)/KB)
	default:
		return fmt.Sprintf("%d bytes", size)
	}
}
