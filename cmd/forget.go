package cmd

import (
	"context"
	"fmt"
)

// Forget removes documents from the index; the files are left alone
func Forget(ctx context.Context, env *Env, paths []string) {
	svc, closeIndex := env.NewService()
	defer closeIndex()

	for _, path := range paths {
		removed, err := svc.Forget(ctx, path)
		if err != nil {
			HandleError(err)
		}
		if removed {
			fmt.Printf("forgot %s\n", path)
		} else {
			fmt.Printf("%s was not in the index\n", path)
		}
	}
}
