// Package editor is slimedit's terminal text editor, built on bubbletea.
//
// The editor holds the plaintext buffer and the user's encryption choice.
// Passwords are entered in a masked prompt for each open or save and are
// handed to the core service without being kept. Service outcomes arrive
// through a core.Notifier and are shown in the status line.
package editor

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/illarion/slimedit/internal/core"
)

// Run opens path in the editor and blocks until the user quits
func Run(ctx context.Context, svc *core.Service, path string, opts ...Option) error {
	m, err := New(ctx, svc, path, opts...)
	if err != nil {
		return err
	}

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	svc.SetNotifier(core.NotifierFunc(func(o core.Outcome) {
		p.Send(outcomeMsg(o))
	}))
	defer svc.SetNotifier(nil)

	final, err := p.Run()
	if err != nil {
		return err
	}
	if fm, ok := final.(Model); ok && fm.Err() != nil {
		return fm.Err()
	}
	return nil
}
