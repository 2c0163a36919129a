package cmd

import (
	"context"

	"github.com/illarion/slimedit/internal/core"
)

// Decrypt writes the plaintext of an encrypted file in place, or into output
func Decrypt(ctx context.Context, env *Env, path, output string) {
	svc, closeIndex := env.NewService(printOutcome())
	defer closeIndex()

	info, err := svc.Inspect(path)
	if err != nil {
		HandleError(err)
	}
	if !info.Format.Encrypted() {
		HandleError(core.ErrNotEncrypted)
	}

	doc := openDocument(ctx, svc, path)

	if output == "" {
		output = path
	}
	if err := svc.Save(ctx, core.SaveRequest{Path: output, Text: doc.Text}); err != nil {
		HandleError(err)
	}

	warnExposure(output)
}
