package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/illarion/slimedit/internal/core"
)

// Compact compacts the index database to reclaim unused space
func Compact(ctx context.Context, env *Env) {
	svc, closeIndex := env.NewService()
	defer closeIndex()

	if err := ctx.Err(); err != nil {
		HandleError(err)
	}
	if env.Config.NoIndex {
		HandleError(core.ErrNoIndex)
	}

	info, err := os.Stat(env.Config.IndexPath)
	if err != nil {
		HandleError(&core.IOError{Op: "stat", Path: env.Config.IndexPath, Err: err})
	}
	sizeBefore := info.Size()

	if err := svc.CompactIndex(); err != nil {
		HandleError(err)
	}

	info, err = os.Stat(env.Config.IndexPath)
	if err != nil {
		HandleError(&core.IOError{Op: "stat", Path: env.Config.IndexPath, Err: err})
	}
	sizeAfter := info.Size()

	fmt.Printf("Compacted: %s -> %s\n", formatSize(sizeBefore), formatSize(sizeAfter))
}
