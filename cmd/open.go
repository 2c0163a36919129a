package cmd

import (
	"context"
	"os"

	"github.com/illarion/slimedit/internal/container"
	"github.com/illarion/slimedit/internal/core"
	"github.com/illarion/slimedit/internal/crypto"
)

// openDocument loads path, asking for a password when it is encrypted.
// Legacy containers are only decrypted after confirmation, unless the
// password comes from the environment.
func openDocument(ctx context.Context, svc *core.Service, path string) *core.Document {
	info, err := svc.Inspect(path)
	if err != nil {
		HandleError(err)
	}

	if info.Format == container.FormatLegacy && core.GetPasswordFromEnv() == nil {
		ok, err := core.Confirm(os.Stdin, path+" looks encrypted, decrypt?")
		if err != nil {
			HandleError(err)
		}
		if !ok {
			doc, err := svc.OpenAs(ctx, path, nil, container.FormatPlain)
			if err != nil {
				HandleError(err)
			}
			return doc
		}
	}

	var password []byte
	if info.Format.Encrypted() {
		password = GetPasswordOrExit("Enter password: ")
		defer crypto.ClearBytes(password)
	}

	doc, err := svc.OpenAs(ctx, path, password, info.Format)
	if err != nil {
		HandleError(err)
	}
	return doc
}
