package git

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// Exposure describes how a plaintext file relates to its git work tree
type Exposure struct {
	Path    string
	InRepo  bool
	Tracked bool // Committed or staged (bad)
	Ignored bool // Matched by a .gitignore (good)
}

// IsGitRepo checks if dir is inside a git work tree
func IsGitRepo(dir string) bool {
	cmd := exec.Command("git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = dir
	err := cmd.Run()
	return err == nil
}

// IsTracked checks if a file is tracked by git
func IsTracked(dir, path string) bool {
	cmd := exec.Command("git", "ls-files", "--", path)
	cmd.Dir = dir
	output, err := cmd.Output()

	if err != nil {
		return false
	}

	return len(strings.TrimSpace(string(output))) > 0
}

// IsIgnored checks if a file is ignored by git (handles all .gitignore files)
func IsIgnored(dir, path string) bool {
	cmd := exec.Command("git", "check-ignore", "-q", "--", path)
	cmd.Dir = dir
	err := cmd.Run()

	// git check-ignore returns exit code 0 if file is ignored
	return err == nil
}

// CheckExposure inspects the work tree containing path
func CheckExposure(path string) (*Exposure, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	e := &Exposure{Path: path}
	dir, name := filepath.Split(abs)
	if !IsGitRepo(dir) {
		return e, nil
	}

	e.InRepo = true
	e.Tracked = IsTracked(dir, name)
	e.Ignored = IsIgnored(dir, name)
	return e, nil
}

// Exposed reports whether the plaintext could end up in a commit
func (e *Exposure) Exposed() bool {
	return e.InRepo && (e.Tracked || !e.Ignored)
}

// FormatExposure returns a warning for an exposed file, or "" if it is safe
func FormatExposure(e *Exposure) string {
	if e == nil || !e.Exposed() {
		return ""
	}

	var result strings.Builder
	if e.Tracked {
		fmt.Fprintf(&result, "warning: plaintext %s is tracked by git (run: git rm --cached %s)\n", e.Path, e.Path)
	}
	if !e.Ignored {
		fmt.Fprintf(&result, "warning: plaintext %s is not in .gitignore\n", e.Path)
	}
	return result.String()
}
