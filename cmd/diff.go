package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/illarion/slimedit/internal/core"
	"github.com/illarion/slimedit/internal/crypto"
)

// Diff compares the decrypted document with another file. With markers set,
// it prints both versions merged with conflict markers instead.
func Diff(ctx context.Context, env *Env, path, other string, markers bool) {
	svc, closeIndex := env.NewService()
	defer closeIndex()

	if markers {
		doc := openDocument(ctx, svc, path)
		otherData, err := os.ReadFile(other)
		if err != nil {
			HandleError(&core.IOError{Op: "read", Path: other, Err: err})
		}
		defer crypto.ClearBytes(otherData)

		fmt.Print(string(core.MergeText([]byte(doc.Text), otherData, path, other)))
		return
	}

	info, err := svc.Inspect(path)
	if err != nil {
		HandleError(err)
	}
	var password []byte
	if info.Format.Encrypted() {
		password = GetPasswordOrExit("Enter password: ")
		defer crypto.ClearBytes(password)
	}

	out, err := svc.Diff(ctx, path, password, other)
	if err != nil {
		HandleError(err)
	}
	if out == "" {
		fmt.Println("no differences")
		return
	}
	fmt.Print(out)
}
