package cmd

import (
	"context"

	"github.com/illarion/slimedit/internal/core"
	"github.com/illarion/slimedit/internal/crypto"
)

// Passwd re-encrypts a document under a new password
func Passwd(ctx context.Context, env *Env, path string) {
	svc, closeIndex := env.NewService(printOutcome())
	defer closeIndex()

	currentPassword := GetPasswordOrExit("Enter current password: ")
	defer crypto.ClearBytes(currentPassword)

	// Verify before asking for the new password
	if _, err := svc.Open(ctx, path, currentPassword); err != nil {
		HandleError(err)
	}

	newPassword, err := core.ReadPasswordConfirm("Enter new password: ")
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(newPassword)

	if err := svc.ChangePassword(ctx, path, currentPassword, newPassword); err != nil {
		HandleError(err)
	}
}
