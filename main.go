package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/illarion/slimedit/cmd"
	"github.com/illarion/slimedit/internal/config"
	"github.com/illarion/slimedit/internal/logger"
)

type command struct {
	summary     string
	help        string
	interactive bool // The editor owns the terminal, so no console logging
	run         func(ctx context.Context, env *cmd.Env, args []string)
}

var commands map[string]command

// The table is filled in init because the handlers refer back to it for usage
func init() {
	commands = map[string]command{
		"edit": {
			summary:     "Open a document in the terminal editor",
			interactive: true,
			run:         runEdit,
			help: `slimedit edit <file>

Opens the file in the terminal editor. A missing file starts empty.
Encrypted files ask for their password first. Files in the older
headerless format ask whether to decrypt them at all.

Keys:
  ^S save      ^E toggle encryption   ^F find       ^R replace all
  ^N replace next   ^Z undo   ^Y redo   ^K copy to clipboard   ^Q quit

Examples:
  slimedit edit notes.txt`,
		},
		"cat": {
			summary: "Print a document, decrypting it if needed",
			run:     runCat,
			help: `slimedit cat <file>

Prints the document to stdout. Encrypted files ask for the password
unless SLIMEDIT_PASSWORD is set.

Examples:
  slimedit cat notes.txt
  SLIMEDIT_PASSWORD=... slimedit cat notes.txt | grep token`,
		},
		"encrypt": {
			summary: "Encrypt a plain text file",
			run:     runEncrypt,
			help: `slimedit encrypt [-o <output>] <file>

Encrypts a plain text file in place, or into the output file.
Prompts for the new password twice.

Flags:
  -o    Write the encrypted file here instead of replacing <file>

Examples:
  slimedit encrypt .env
  slimedit encrypt -o .env.enc .env`,
		},
		"decrypt": {
			summary: "Decrypt an encrypted file",
			run:     runDecrypt,
			help: `slimedit decrypt [-o <output>] <file>

Writes the plaintext of an encrypted file in place, or into the output
file. Warns when the plaintext is inside a git work tree and not ignored.

Flags:
  -o    Write the plaintext here instead of replacing <file>

Examples:
  slimedit decrypt notes.txt
  slimedit decrypt -o /tmp/notes.txt notes.txt`,
		},
		"passwd": {
			summary: "Change the password of an encrypted file",
			run:     runPasswd,
			help: `slimedit passwd <file>

Re-encrypts the file under a new password with a fresh salt.
Requires both the current and new passwords.

Example:
  slimedit passwd notes.txt`,
		},
		"diff": {
			summary: "Compare a document with another file",
			run:     runDiff,
			help: `slimedit diff [-markers] <file> <other>

Prints a unified diff from the decrypted document to the other file.

Flags:
  -markers    Print both versions merged with git-style conflict markers

Examples:
  slimedit diff notes.txt notes.bak
  slimedit diff -markers notes.txt theirs.txt > merged.txt`,
		},
		"recent": {
			summary: "List recently opened and saved documents",
			run:     runRecent,
			help: `slimedit recent [file...]

Lists documents from the index, most recently used first, or the
entries for the given files.
The index stores paths, formats and hashes, never passwords or content.

Examples:
  slimedit recent
  slimedit recent notes.txt`,
		},
		"forget": {
			summary: "Remove documents from the recent list",
			run:     runForget,
			help: `slimedit forget <file> [file...]

Removes the files from the index. The files themselves are untouched.

Example:
  slimedit forget old-notes.txt`,
		},
		"compact": {
			summary: "Compact the document index",
			run:     runCompact,
			help: `slimedit compact

Compacts the index database to reclaim unused disk space.

Example:
  slimedit compact`,
		},
		"completion": {
			summary: "Generate shell completions",
			run:     runCompletion,
			help: `slimedit completion <bash|zsh|fish>

Outputs shell completion script for the specified shell.

Setup:
  # Bash - add to ~/.bashrc
  eval "$(slimedit completion bash)"

  # Zsh - add to ~/.zshrc
  eval "$(slimedit completion zsh)"

  # Fish - add to ~/.config/fish/config.fish
  slimedit completion fish | source`,
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	name := os.Args[1]
	switch name {
	case "help", "-h", "--help":
		if len(os.Args) <= 2 {
			printUsage()
			return
		}
		printCommandHelp(os.Args[2])
		return
	}

	c, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", name)
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	log, closeLog, err := logger.Setup(cfg.LogLevel, cfg.LogFile, c.interactive)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	defer closeLog()

	log.Debug().Str("command", name).Msg("starting")
	c.run(ctx, &cmd.Env{Config: cfg, Log: log}, os.Args[2:])
}

func parseFlags(name string, fs *flag.FlagSet, args []string, nargs int) []string {
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	if nargs >= 0 && fs.NArg() != nargs || nargs < 0 && fs.NArg() == 0 {
		usage, _, _ := strings.Cut(commands[name].help, "\n")
		fmt.Fprintln(os.Stderr, "Usage:", usage)
		os.Exit(1)
	}
	return fs.Args()
}

func runEdit(ctx context.Context, env *cmd.Env, args []string) {
	fs := flag.NewFlagSet("edit", flag.ExitOnError)
	rest := parseFlags("edit", fs, args, 1)
	cmd.Edit(ctx, env, rest[0])
}

func runCat(ctx context.Context, env *cmd.Env, args []string) {
	fs := flag.NewFlagSet("cat", flag.ExitOnError)
	rest := parseFlags("cat", fs, args, 1)
	cmd.Cat(ctx, env, rest[0])
}

func runEncrypt(ctx context.Context, env *cmd.Env, args []string) {
	fs := flag.NewFlagSet("encrypt", flag.ExitOnError)
	output := fs.String("o", "", "Write the encrypted file here")
	rest := parseFlags("encrypt", fs, args, 1)
	cmd.Encrypt(ctx, env, rest[0], *output)
}

func runDecrypt(ctx context.Context, env *cmd.Env, args []string) {
	fs := flag.NewFlagSet("decrypt", flag.ExitOnError)
	output := fs.String("o", "", "Write the plaintext here")
	rest := parseFlags("decrypt", fs, args, 1)
	cmd.Decrypt(ctx, env, rest[0], *output)
}

func runPasswd(ctx context.Context, env *cmd.Env, args []string) {
	fs := flag.NewFlagSet("passwd", flag.ExitOnError)
	rest := parseFlags("passwd", fs, args, 1)
	cmd.Passwd(ctx, env, rest[0])
}

func runDiff(ctx context.Context, env *cmd.Env, args []string) {
	fs := flag.NewFlagSet("diff", flag.ExitOnError)
	markers := fs.Bool("markers", false, "Print a merge with conflict markers")
	rest := parseFlags("diff", fs, args, 2)
	cmd.Diff(ctx, env, rest[0], rest[1], *markers)
}

func runRecent(ctx context.Context, env *cmd.Env, args []string) {
	fs := flag.NewFlagSet("recent", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	cmd.Recent(ctx, env, fs.Args())
}

func runForget(ctx context.Context, env *cmd.Env, args []string) {
	fs := flag.NewFlagSet("forget", flag.ExitOnError)
	rest := parseFlags("forget", fs, args, -1)
	cmd.Forget(ctx, env, rest)
}

func runCompact(ctx context.Context, env *cmd.Env, args []string) {
	fs := flag.NewFlagSet("compact", flag.ExitOnError)
	parseFlags("compact", fs, args, 0)
	cmd.Compact(ctx, env)
}

func runCompletion(_ context.Context, _ *cmd.Env, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: slimedit completion <bash|zsh|fish>")
		os.Exit(1)
	}
	cmd.Completion(args[0])
}

func printUsage() {
	fmt.Println("slimedit - Terminal editor for password-encrypted text files")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  slimedit <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")

	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %-11s %s\n", name, commands[name].summary)
	}
	fmt.Printf("  %-11s %s\n", "help", "Show help for a command")

	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  SLIMEDIT_PASSWORD         Password for non-interactive use")
	fmt.Println("  SLIMEDIT_KDF_ITERATIONS   PBKDF2 iterations for new files (default 100000)")
	fmt.Println("  SLIMEDIT_KDF_DIGEST       PBKDF2 digest, SHA-256 or SHA-512")
	fmt.Println("  SLIMEDIT_LEGACY_FORMAT    Write encrypted files without the format header")
	fmt.Println("  SLIMEDIT_NO_INDEX         Do not record recent documents")
	fmt.Println()
	fmt.Println("Use 'slimedit help <command>' for more information about a command.")
}

func printCommandHelp(name string) {
	c, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", name)
		printUsage()
		return
	}
	fmt.Println(c.help)
}
