package cmd

import (
	"context"
	"fmt"
)

// Cat prints the (decrypted) document to stdout
func Cat(ctx context.Context, env *Env, path string) {
	svc, closeIndex := env.NewService()
	defer closeIndex()

	doc := openDocument(ctx, svc, path)
	fmt.Print(doc.Text)
}
