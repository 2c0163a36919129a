package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/illarion/slimedit/internal/core"
	"github.com/illarion/slimedit/internal/crypto"
)

// Encrypt encrypts a plain text file in place, or into output
func Encrypt(ctx context.Context, env *Env, path, output string) {
	svc, closeIndex := env.NewService(printOutcome())
	defer closeIndex()

	info, err := svc.Inspect(path)
	if err != nil {
		HandleError(err)
	}
	if info.Format.Encrypted() {
		HandleError(core.ErrAlreadyEncrypted)
	}

	doc, err := svc.Open(ctx, path, nil)
	if err != nil {
		HandleError(err)
	}

	if core.HasConflictMarkers([]byte(doc.Text)) {
		fmt.Fprintf(os.Stderr, "warning: %s still contains merge conflict markers\n", path)
	}

	password := GetNewPassword("Enter new password: ")
	defer crypto.ClearBytes(password)

	if output == "" {
		output = path
	}
	if err := svc.Save(ctx, core.SaveRequest{Path: output, Text: doc.Text, Encrypt: true, Password: password}); err != nil {
		HandleError(err)
	}
}
