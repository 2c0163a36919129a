package core

import (
	"fmt"

	"github.com/illarion/slimedit/internal/container"
)

// Op names a document operation reported to a Notifier
type Op string

const (
	OpOpen   Op = "open"
	OpSave   Op = "save"
	OpPasswd Op = "passwd"
)

// Outcome is the result of one operation
type Outcome struct {
	Op     Op
	Path   string
	Format container.Format
	Err    error
}

// Message returns a one-line status text for the outcome
func (o Outcome) Message() string {
	if o.Err != nil {
		return Describe(o.Err)
	}

	kind := "plain text"
	if o.Format.Encrypted() {
		kind = "encrypted"
	}

	switch o.Op {
	case OpOpen:
		return fmt.Sprintf("opened %s (%s)", o.Path, kind)
	case OpSave:
		return fmt.Sprintf("saved %s (%s)", o.Path, kind)
	case OpPasswd:
		return fmt.Sprintf("password changed for %s", o.Path)
	default:
		return fmt.Sprintf("%s %s", o.Op, o.Path)
	}
}

// Notifier receives success and failure outcomes, e.g. a status bar
type Notifier interface {
	Notify(Outcome)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(Outcome)

func (f NotifierFunc) Notify(o Outcome) { f(o) }
