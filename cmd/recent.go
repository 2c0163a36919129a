package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/illarion/slimedit/internal/storage"
)

// Recent lists documents from the index, most recently used first. With
// paths, only those documents are shown.
func Recent(ctx context.Context, env *Env, paths []string) {
	svc, closeIndex := env.NewService()
	defer closeIndex()

	if len(paths) > 0 {
		for _, path := range paths {
			entry, err := svc.Lookup(ctx, path)
			if err != nil {
				HandleError(err)
			}
			if entry == nil {
				fmt.Printf("%s: not indexed\n", path)
				continue
			}
			printEntry(*entry)
		}
		return
	}

	docs, err := svc.Recent(ctx)
	if err != nil {
		HandleError(err)
	}
	if len(docs) == 0 {
		fmt.Println("no recent documents")
		return
	}
	for _, d := range docs {
		printEntry(d)
	}

	// Footer on stderr so completion scripts can parse stdout
	if updated, err := svc.IndexUpdated(); err == nil {
		fmt.Fprintf(os.Stderr, "index updated %s\n", updated.Format("2006-01-02 15:04"))
	}
}

func printEntry(d storage.DocumentEntry) {
	state := ""
	if _, err := os.Stat(d.Path); os.IsNotExist(err) {
		state = " (missing)"
	}
	kdf := ""
	if d.Iterations > 0 {
		kdf = fmt.Sprintf(" %s/%d", d.Digest, d.Iterations)
	}
	fmt.Printf("%s  %-6s %10s  %s%s%s\n",
		d.LastUsed().Format("2006-01-02 15:04"), d.Format, formatSize(d.Size), d.Path, kdf, state)
}
