package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/illarion/slimedit/internal/container"
	"github.com/illarion/slimedit/internal/core"
	"github.com/illarion/slimedit/internal/editor"
	"github.com/illarion/slimedit/internal/git"
)

// Edit opens path in the terminal editor
func Edit(ctx context.Context, env *Env, path string) {
	svc, closeIndex := env.NewService()
	defer closeIndex()

	wasEncrypted := false
	if info, err := svc.Inspect(path); err == nil {
		wasEncrypted = info.Format.Encrypted()
	} else if !core.IsNotExist(err) {
		HandleError(err)
	}

	if err := editor.Run(ctx, svc, path); err != nil {
		HandleError(err)
	}

	// Saving with encryption switched off leaves plaintext behind
	if wasEncrypted {
		if info, err := svc.Inspect(path); err == nil && info.Format == container.FormatPlain {
			warnExposure(path)
		}
	}
}

func warnExposure(path string) {
	exposure, err := git.CheckExposure(path)
	if err != nil {
		return
	}
	if warning := git.FormatExposure(exposure); warning != "" {
		fmt.Fprint(os.Stderr, warning)
	}
}
