package editor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/illarion/slimedit/internal/container"
	"github.com/illarion/slimedit/internal/core"
	"github.com/illarion/slimedit/internal/crypto"
)

type harness struct {
	t        *testing.T
	svc      *core.Service
	outcomes []core.Outcome
	copied   string
}

func newHarness(t *testing.T, opts ...core.Option) *harness {
	t.Helper()
	h := &harness{t: t}

	p := crypto.DefaultParams()
	p.Iterations = 1000
	opts = append([]core.Option{
		core.WithParams(p),
		core.WithNotifier(core.NotifierFunc(func(o core.Outcome) {
			h.outcomes = append(h.outcomes, o)
		})),
	}, opts...)
	h.svc = core.New(opts...)
	return h
}

func (h *harness) open(path string) Model {
	h.t.Helper()
	m, err := New(context.Background(), h.svc, path, WithClipboard(func(s string) error {
		h.copied = s
		return nil
	}))
	if err != nil {
		h.t.Fatalf("New failed: %v", err)
	}
	return h.exec(m, m.Init())
}

// exec runs a command that does not block and feeds its message back into
// the model together with any service outcomes, as the runtime would.
func (h *harness) exec(m Model, cmd tea.Cmd) Model {
	if cmd == nil {
		return m
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			m = h.exec(m, c)
		}
		return m
	}

	next, _ := m.Update(msg)
	m = next.(Model)
	for _, o := range h.outcomes {
		next, _ = m.Update(outcomeMsg(o))
		m = next.(Model)
	}
	h.outcomes = nil
	return m
}

// press sends a key and returns the command without running it
func press(m Model, k tea.KeyMsg) (Model, tea.Cmd) {
	next, cmd := m.Update(k)
	return next.(Model), cmd
}

func typeText(m Model, s string) Model {
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return m
}

func enter(m Model) (Model, tea.Cmd) {
	return press(m, tea.KeyMsg{Type: tea.KeyEnter})
}

func ctrl(t tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: t}
}

func wantStatus(t *testing.T, m Model, want string) {
	t.Helper()
	if got, _ := m.Status(); got != want {
		t.Errorf("status = %q, want %q", got, want)
	}
}

func TestNewFileSavePlain(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "notes.txt")

	m := h.open(path)
	wantStatus(t, m, "new file")

	m = typeText(m, "no secrets here")
	if !m.Dirty() {
		t.Error("Typing should mark the buffer dirty")
	}

	m, cmd := press(m, ctrl(tea.KeyCtrlS))
	m = h.exec(m, cmd)

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("File not written: %v", err)
	}
	if string(raw) != "no secrets here" {
		t.Errorf("File content = %q", raw)
	}
	if m.Dirty() {
		t.Error("Buffer should be clean after save")
	}
	wantStatus(t, m, "saved "+path+" (plain text)")
}

func TestEncryptedSaveFlow(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "notes.txt")

	m := h.open(path)
	m = typeText(m, "hello world")
	m, _ = press(m, ctrl(tea.KeyCtrlE))
	wantStatus(t, m, "encryption on: next save is encrypted")

	m, _ = press(m, ctrl(tea.KeyCtrlS))
	if m.mode != modeSavePassword {
		t.Fatalf("Expected password prompt, mode = %d", m.mode)
	}
	m = typeText(m, "correct-horse")
	m, _ = enter(m)
	if m.mode != modeSaveConfirm {
		t.Fatalf("Expected confirmation prompt, mode = %d", m.mode)
	}
	m = typeText(m, "correct-horse")
	m, cmd := enter(m)
	m = h.exec(m, cmd)

	wantStatus(t, m, "saved "+path+" (encrypted)")
	if m.Dirty() {
		t.Error("Buffer should be clean after save")
	}

	doc, err := h.svc.Open(context.Background(), path, []byte("correct-horse"))
	if err != nil {
		t.Fatalf("Saved file does not open: %v", err)
	}
	if doc.Text != "hello world" || doc.Format != container.FormatMarked {
		t.Errorf("Unexpected document: %+v", doc)
	}
}

func TestSavePasswordMismatch(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "notes.txt")

	m := h.open(path)
	m = typeText(m, "x")
	m, _ = press(m, ctrl(tea.KeyCtrlE))
	m, _ = press(m, ctrl(tea.KeyCtrlS))
	m = typeText(m, "one")
	m, _ = enter(m)
	m = typeText(m, "two")
	m, cmd := enter(m)

	if cmd != nil {
		t.Error("Mismatched passwords must not save")
	}
	wantStatus(t, m, "passwords do not match")
	if m.mode != modeEdit {
		t.Errorf("Expected edit mode, got %d", m.mode)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("No file should be written")
	}
}

func TestSaveEmptyPassword(t *testing.T) {
	h := newHarness(t)
	m := h.open(filepath.Join(t.TempDir(), "notes.txt"))
	m, _ = press(m, ctrl(tea.KeyCtrlE))
	m, _ = press(m, ctrl(tea.KeyCtrlS))
	m, _ = enter(m)

	wantStatus(t, m, "password required")
	if m.mode != modeSavePassword {
		t.Errorf("Should stay at the password prompt, mode = %d", m.mode)
	}

	m, _ = press(m, ctrl(tea.KeyEsc))
	if m.mode != modeEdit {
		t.Errorf("Esc should cancel the prompt, mode = %d", m.mode)
	}
}

func TestOpenEncrypted(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "notes.txt")
	ctx := context.Background()

	if err := h.svc.Save(ctx, core.SaveRequest{Path: path, Text: "hello world", Encrypt: true, Password: []byte("correct-horse")}); err != nil {
		t.Fatal(err)
	}
	h.outcomes = nil

	m := h.open(path)
	if m.mode != modeOpenPassword {
		t.Fatalf("Expected password prompt on open, mode = %d", m.mode)
	}

	m = typeText(m, "wrong-password")
	m, cmd := enter(m)
	m = h.exec(m, cmd)

	wantStatus(t, m, "failed to decrypt: incorrect password")
	if m.Text() != "" {
		t.Errorf("Buffer should be unchanged after a failed decryption, got %q", m.Text())
	}
	if m.mode != modeOpenPassword {
		t.Errorf("Should ask for the password again, mode = %d", m.mode)
	}

	m = typeText(m, "correct-horse")
	m, cmd = enter(m)
	m = h.exec(m, cmd)

	if m.Text() != "hello world" {
		t.Errorf("Text = %q", m.Text())
	}
	if !m.encrypt || m.Dirty() {
		t.Errorf("Opened document should be encrypted and clean (encrypt=%v dirty=%v)", m.encrypt, m.Dirty())
	}
	wantStatus(t, m, "opened "+path+" (encrypted)")
}

func TestOpenLegacyPrompt(t *testing.T) {
	h := newHarness(t, core.WithLegacyFormat(true))
	path := filepath.Join(t.TempDir(), "legacy.txt")
	ctx := context.Background()

	if err := h.svc.Save(ctx, core.SaveRequest{Path: path, Text: "secret", Encrypt: true, Password: []byte("pw")}); err != nil {
		t.Fatal(err)
	}
	raw, _ := os.ReadFile(path)

	t.Run("decline", func(t *testing.T) {
		m := h.open(path)
		if m.mode != modeDecryptPrompt {
			t.Fatalf("Expected decrypt prompt, mode = %d", m.mode)
		}
		m, cmd := press(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")})
		m = h.exec(m, cmd)

		if m.Text() != string(raw) {
			t.Error("Declining should show the file as plain text")
		}
		if m.encrypt {
			t.Error("Declined file should not be marked encrypted")
		}
	})

	t.Run("accept", func(t *testing.T) {
		m := h.open(path)
		m, _ = press(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("y")})
		if m.mode != modeOpenPassword {
			t.Fatalf("Expected password prompt, mode = %d", m.mode)
		}
		m = typeText(m, "pw")
		m, cmd := enter(m)
		m = h.exec(m, cmd)

		if m.Text() != "secret" {
			t.Errorf("Text = %q", m.Text())
		}
	})
}

func TestOpenSaveKeepsBytes(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"tab and crlf", "\tx\r\ny"},
		{"indented code", "func main() {\n\treturn\n}\n"},
		{"crlf with trailing newline", "a\r\nb\r\n"},
		{"no trailing newline", "last line"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			path := filepath.Join(t.TempDir(), "doc.txt")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}

			m := h.open(path)
			if m.Text() != tt.content {
				t.Errorf("Text = %q, want %q", m.Text(), tt.content)
			}
			if m.Dirty() || m.readOnly {
				t.Errorf("Fresh buffer should be clean and editable (dirty=%v readOnly=%v)", m.Dirty(), m.readOnly)
			}

			m, cmd := press(m, ctrl(tea.KeyCtrlS))
			m = h.exec(m, cmd)

			raw, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			if string(raw) != tt.content {
				t.Errorf("saved %q, want %q", raw, tt.content)
			}
			if m.Dirty() {
				t.Error("Buffer should be clean after save")
			}
		})
	}
}

func TestTabKeyInsertsTab(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "notes.txt")

	m := h.open(path)
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyTab})
	m = typeText(m, "x")

	m, cmd := press(m, ctrl(tea.KeyCtrlS))
	h.exec(m, cmd)

	raw, _ := os.ReadFile(path)
	if string(raw) != "\tx" {
		t.Errorf("saved %q, want %q", raw, "\tx")
	}
}

func TestUnrepresentableFileIsReadOnly(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "mixed.txt")
	content := "func main() {\n\treturn\n}\r\nend\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	m := h.open(path)
	if !m.readOnly {
		t.Fatal("Mixed line endings should open read-only")
	}
	wantStatus(t, m, readOnlyStatus)

	before := m.Text()
	m = typeText(m, "edit")
	if m.Text() != before {
		t.Error("Typing must not change a read-only buffer")
	}

	m, cmd := press(m, ctrl(tea.KeyCtrlS))
	if cmd != nil {
		t.Error("Saving a read-only buffer must not write")
	}
	wantStatus(t, m, readOnlyStatus)

	raw, _ := os.ReadFile(path)
	if string(raw) != content {
		t.Errorf("file changed to %q", raw)
	}
	if m.Dirty() {
		t.Error("Read-only buffer should never be dirty")
	}
}

func TestOpenBinaryFails(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "blob")
	if err := os.WriteFile(path, []byte{0x00, 0xff, 0x00}, 0644); err != nil {
		t.Fatal(err)
	}

	m := h.open(path)
	if !errors.Is(m.Err(), core.ErrBinaryFile) {
		t.Errorf("Expected ErrBinaryFile, got %v", m.Err())
	}
}

func TestFindNextWraps(t *testing.T) {
	h := newHarness(t)
	m := h.open(filepath.Join(t.TempDir(), "notes.txt"))
	m = typeText(m, "one two one two")

	m, _ = press(m, ctrl(tea.KeyCtrlF))
	m = typeText(m, "two")
	m, _ = enter(m)

	if got := m.cursorOffset(); got != 4 {
		t.Errorf("cursor = %d, want 4", got)
	}
	wantStatus(t, m, "search wrapped, found at line 1")

	// The prompt is prefilled with the last query
	m, _ = press(m, ctrl(tea.KeyCtrlF))
	m, _ = enter(m)
	if got := m.cursorOffset(); got != 12 {
		t.Errorf("cursor = %d, want 12", got)
	}

	m, _ = press(m, ctrl(tea.KeyCtrlF))
	m, _ = press(m, ctrl(tea.KeyCtrlU))
	m = typeText(m, "zzz")
	m, _ = enter(m)
	wantStatus(t, m, "not found: zzz")
}

func TestReplaceAllUndoRedo(t *testing.T) {
	h := newHarness(t)
	m := h.open(filepath.Join(t.TempDir(), "notes.txt"))
	m = typeText(m, "one two one two")

	m, _ = press(m, ctrl(tea.KeyCtrlR))
	m = typeText(m, "one")
	m, _ = enter(m)
	m = typeText(m, "1")
	m, _ = enter(m)

	if m.Text() != "1 two 1 two" {
		t.Errorf("Text = %q", m.Text())
	}
	wantStatus(t, m, "replaced 2 occurrence(s)")

	m, _ = press(m, ctrl(tea.KeyCtrlZ))
	if m.Text() != "one two one two" {
		t.Errorf("After undo: %q", m.Text())
	}
	m, _ = press(m, ctrl(tea.KeyCtrlY))
	if m.Text() != "1 two 1 two" {
		t.Errorf("After redo: %q", m.Text())
	}
}

func TestReplaceNextPrompt(t *testing.T) {
	h := newHarness(t)
	m := h.open(filepath.Join(t.TempDir(), "notes.txt"))
	m = typeText(m, "a-a-a")

	m, _ = press(m, ctrl(tea.KeyCtrlN))
	m = typeText(m, "a")
	m, _ = enter(m)
	m = typeText(m, "b")
	m, _ = enter(m)
	if m.Text() != "b-a-a" {
		t.Errorf("First replace: %q", m.Text())
	}

	// Query and replacement are remembered
	m, _ = press(m, ctrl(tea.KeyCtrlN))
	m, _ = enter(m)
	m, _ = enter(m)
	if m.Text() != "b-b-a" {
		t.Errorf("Second replace: %q", m.Text())
	}
}

func TestUndoTyping(t *testing.T) {
	h := newHarness(t)
	m := h.open(filepath.Join(t.TempDir(), "notes.txt"))

	m = typeText(m, "a")
	m = typeText(m, "b")
	m, _ = press(m, ctrl(tea.KeyCtrlZ))
	if m.Text() != "a" {
		t.Errorf("After undo: %q", m.Text())
	}
	m, _ = press(m, ctrl(tea.KeyCtrlZ))
	m, _ = press(m, ctrl(tea.KeyCtrlZ))
	wantStatus(t, m, "nothing to undo")
}

func TestCopy(t *testing.T) {
	h := newHarness(t)
	m := h.open(filepath.Join(t.TempDir(), "notes.txt"))
	m = typeText(m, "copy me")

	m, _ = press(m, ctrl(tea.KeyCtrlK))
	if h.copied != "copy me" {
		t.Errorf("clipboard = %q", h.copied)
	}
	wantStatus(t, m, "copied to clipboard")
}

func TestQuit(t *testing.T) {
	h := newHarness(t)

	m := h.open(filepath.Join(t.TempDir(), "clean.txt"))
	_, cmd := press(m, ctrl(tea.KeyCtrlQ))
	if cmd == nil {
		t.Fatal("Clean buffer should quit immediately")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("Expected tea.Quit")
	}

	m = h.open(filepath.Join(t.TempDir(), "dirty.txt"))
	m = typeText(m, "unsaved")
	m, cmd = press(m, ctrl(tea.KeyCtrlQ))
	if cmd != nil || m.mode != modeQuitConfirm {
		t.Fatalf("Dirty buffer should ask before quitting, mode = %d", m.mode)
	}

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")})
	if m.mode != modeEdit || m.Text() != "unsaved" {
		t.Error("Answering no should return to the buffer")
	}

	m, _ = press(m, ctrl(tea.KeyCtrlQ))
	_, cmd = press(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("y")})
	if cmd == nil {
		t.Fatal("Answering yes should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("Expected tea.Quit")
	}
}

func TestToggleEncryptionMarksDirty(t *testing.T) {
	h := newHarness(t)
	m := h.open(filepath.Join(t.TempDir(), "notes.txt"))

	m, _ = press(m, ctrl(tea.KeyCtrlE))
	if !m.Dirty() {
		t.Error("Changing the encryption choice should need a save")
	}
	m, _ = press(m, ctrl(tea.KeyCtrlE))
	if m.Dirty() {
		t.Error("Toggling back should restore the clean state")
	}
}

func TestView(t *testing.T) {
	h := newHarness(t)
	m := h.open(filepath.Join(t.TempDir(), "notes.txt"))
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m = next.(Model)

	view := m.View()
	for _, want := range []string{"notes.txt", "[plain]", "^S save", "^Q quit"} {
		if !strings.Contains(view, want) {
			t.Errorf("View should contain %q", want)
		}
	}
}
