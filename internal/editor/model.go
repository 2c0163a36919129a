package editor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/illarion/slimedit/internal/container"
	"github.com/illarion/slimedit/internal/core"
	"github.com/illarion/slimedit/internal/crypto"
)

// Lines taken by the header, prompt and help rows
const chromeHeight = 3

const readOnlyStatus = "read-only: the file has characters the editor cannot keep"

type mode int

const (
	modeEdit mode = iota
	modeDecryptPrompt
	modeOpenPassword
	modeSavePassword
	modeSaveConfirm
	modeFind
	modeReplaceQuery
	modeReplaceWith
	modeQuitConfirm
)

type openedMsg struct {
	doc *core.Document
	err error
}

type savedMsg struct {
	buffer  string // Textarea contents that were saved
	encrypt bool
	err     error
}

// outcomeMsg carries a service outcome into the status line
type outcomeMsg core.Outcome

// Option configures a Model
type Option func(*Model)

// WithClipboard replaces the system clipboard writer
func WithClipboard(write func(string) error) Option {
	return func(m *Model) { m.copyText = write }
}

// Model is the editor's bubbletea model
type Model struct {
	ctx      context.Context
	svc      *core.Service
	path     string
	copyText func(string) error

	textarea textarea.Model
	input    textinput.Model
	mode     mode
	question string

	format       container.Format
	loaded       bool
	codec        bufferCodec
	readOnly     bool // The textarea cannot hold the file without changing it
	encrypt      bool
	savedText    string
	savedEncrypt bool

	hist        *history
	query       string
	replacement string
	replaceAll  bool
	pending     []byte // First password entry while waiting for confirmation

	status    string
	statusErr bool
	err       error // Fatal; ends the program
}

var editorActions = map[actionID]func(Model) (tea.Model, tea.Cmd){
	actSave:          Model.save,
	actToggleEncrypt: Model.toggleEncryption,
	actFind:          Model.find,
	actReplaceAll:    Model.startReplaceAll,
	actReplaceNext:   Model.startReplaceNext,
	actUndo:          Model.undo,
	actRedo:          Model.redo,
	actCopy:          Model.copyBuffer,
	actQuit:          Model.quit,
}

// New inspects path and prepares the editor for it. A missing file starts
// an empty buffer; encrypted files start at a password or decrypt prompt.
func New(ctx context.Context, svc *core.Service, path string, opts ...Option) (Model, error) {
	ta := textarea.New()
	ta.ShowLineNumbers = true
	ta.Prompt = ""
	ta.CharLimit = 0
	ta.MaxHeight = 0

	in := textinput.New()
	in.EchoCharacter = '*'

	m := Model{
		ctx:      ctx,
		svc:      svc,
		path:     path,
		copyText: clipboard.WriteAll,
		textarea: ta,
		input:    in,
		hist:     &history{},
	}
	for _, opt := range opts {
		opt(&m)
	}

	info, err := svc.Inspect(path)
	switch {
	case core.IsNotExist(err):
		m.loaded = true
		m.setStatus("new file", false)
		return m.focusEditor(), nil
	case err != nil:
		return Model{}, err
	}

	m.format = info.Format
	switch info.Format {
	case container.FormatMarked:
		m = m.prompt(modeOpenPassword, "password: ", true, "")
	case container.FormatLegacy:
		m = m.ask(modeDecryptPrompt, "file looks encrypted, decrypt?")
	}
	return m, nil
}

func (m Model) Init() tea.Cmd {
	switch {
	case m.mode == modeEdit && !m.loaded:
		return tea.Batch(textarea.Blink, m.cmdOpen(nil, container.FormatPlain))
	case m.mode == modeOpenPassword:
		return textinput.Blink
	default:
		return textarea.Blink
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.textarea.SetWidth(msg.Width)
		m.textarea.SetHeight(max(1, msg.Height-chromeHeight))
		m.input.Width = max(10, msg.Width-20)
		return m, nil
	case openedMsg:
		return m.opened(msg)
	case savedMsg:
		return m.saved(msg)
	case outcomeMsg:
		o := core.Outcome(msg)
		if m.readOnly && o.Op == core.OpOpen && o.Err == nil {
			return m, nil
		}
		m.setStatus(o.Message(), o.Err != nil)
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	if m.mode == modeEdit {
		m.textarea, cmd = m.textarea.Update(msg)
	} else {
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(m.path))
	if m.encrypt {
		b.WriteString(" " + encryptedStyle.Render("[encrypted]"))
	} else {
		b.WriteString(" " + statusStyle.Render("[plain]"))
	}
	if m.readOnly {
		b.WriteString(" " + errorStyle.Render("[read-only]"))
	}
	if m.Dirty() {
		b.WriteString(" " + modifiedStyle.Render("modified"))
	}
	b.WriteString("\n")

	b.WriteString(m.textarea.View())
	b.WriteString("\n")

	switch m.mode {
	case modeEdit:
		if m.statusErr {
			b.WriteString(errorStyle.Render(m.status))
		} else {
			b.WriteString(statusStyle.Render(m.status))
		}
	case modeDecryptPrompt, modeQuitConfirm:
		b.WriteString(m.question + " [y/n]")
	default:
		if m.statusErr {
			b.WriteString(errorStyle.Render(m.status) + "  ")
		}
		b.WriteString(m.input.View())
	}
	b.WriteString("\n")

	parts := make([]string, 0, len(editBindings))
	for _, eb := range editBindings {
		h := eb.key.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	b.WriteString(helpStyle.Render(strings.Join(parts, "  ")))

	return b.String()
}

// Text returns the current buffer as it would be saved
func (m Model) Text() string {
	return m.codec.toFile(m.textarea.Value())
}

// Status returns the status line text and whether it reports an error
func (m Model) Status() (string, bool) {
	return m.status, m.statusErr
}

// Err returns the error that ended the editor, if any
func (m Model) Err() error {
	return m.err
}

// Dirty reports whether the buffer or the encryption choice differ from
// what was last loaded or saved.
func (m Model) Dirty() bool {
	return m.loaded && (m.textarea.Value() != m.savedText || m.encrypt != m.savedEncrypt)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeEdit:
		return m.handleEditKey(msg)

	case modeDecryptPrompt:
		switch {
		case key.Matches(msg, prompt.yes):
			return m.prompt(modeOpenPassword, "password: ", true, ""), textinput.Blink
		case key.Matches(msg, prompt.no), key.Matches(msg, prompt.cancel):
			return m, m.cmdOpen(nil, container.FormatPlain)
		case msg.String() == "ctrl+c" || msg.String() == "ctrl+q":
			return m, tea.Quit
		}
		return m, nil

	case modeQuitConfirm:
		switch {
		case key.Matches(msg, prompt.yes):
			return m, tea.Quit
		case key.Matches(msg, prompt.no), key.Matches(msg, prompt.cancel):
			return m.focusEditor(), nil
		}
		return m, nil
	}

	switch {
	case msg.String() == "ctrl+c" || msg.String() == "ctrl+q":
		if m.mode == modeOpenPassword {
			return m, tea.Quit
		}
		return m.cancelPrompt()
	case key.Matches(msg, prompt.cancel):
		return m.cancelPrompt()
	case key.Matches(msg, prompt.submit):
		return m.submit(m.input.Value())
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	for _, eb := range editBindings {
		if key.Matches(msg, eb.key) {
			if eb.mutates && m.readOnly {
				m.setStatus(readOnlyStatus, true)
				return m, nil
			}
			return editorActions[eb.id](m)
		}
	}
	if !m.loaded {
		return m, nil
	}

	before := m.snapshot()
	var cmd tea.Cmd
	if msg.Type == tea.KeyTab {
		m.textarea.InsertRune(tabGlyph)
	} else {
		m.textarea, cmd = m.textarea.Update(msg)
	}
	if m.textarea.Value() != before.text {
		if m.readOnly {
			m.restore(before)
			m.setStatus(readOnlyStatus, true)
			return m, cmd
		}
		m.hist.record(before)
	}
	return m, cmd
}

func (m Model) submit(value string) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeOpenPassword:
		password := []byte(value)
		m.input.Reset()
		m.setStatus("decrypting...", false)
		return m, m.cmdOpen(password, m.format)

	case modeSavePassword:
		if value == "" {
			m.setStatus(core.Describe(core.ErrPasswordRequired), true)
			return m, nil
		}
		m.pending = []byte(value)
		return m.prompt(modeSaveConfirm, "confirm password: ", true, ""), nil

	case modeSaveConfirm:
		confirm := []byte(value)
		defer crypto.ClearBytes(confirm)
		password := m.pending
		m.pending = nil
		if !crypto.ConstantTimeCompare(password, confirm) {
			crypto.ClearBytes(password)
			m.setStatus("passwords do not match", true)
			return m.focusEditor(), nil
		}
		m = m.focusEditor()
		return m, m.cmdSave(password)

	case modeFind:
		m.query = value
		m = m.focusEditor()
		return m.findNext(), nil

	case modeReplaceQuery:
		if value == "" {
			m.setStatus("nothing to replace", true)
			return m.focusEditor(), nil
		}
		m.query = value
		return m.prompt(modeReplaceWith, "replace with: ", false, m.replacement), nil

	case modeReplaceWith:
		m.replacement = value
		m = m.focusEditor()
		if m.replaceAll {
			return m.applyReplaceAll(), nil
		}
		return m.applyReplaceNext(), nil
	}
	return m, nil
}

func (m Model) cancelPrompt() (tea.Model, tea.Cmd) {
	crypto.ClearBytes(m.pending)
	m.pending = nil
	if m.mode == modeOpenPassword {
		// Show the raw file rather than an empty buffer that could be saved over it
		return m, m.cmdOpen(nil, container.FormatPlain)
	}
	m.setStatus("cancelled", false)
	return m.focusEditor(), nil
}

func (m Model) opened(msg openedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		if errors.Is(msg.err, crypto.ErrAuthFailed) || errors.Is(msg.err, core.ErrPasswordRequired) {
			m.setStatus(core.Describe(msg.err), true)
			return m.prompt(modeOpenPassword, "password: ", true, ""), nil
		}
		m.err = msg.err
		return m, tea.Quit
	}

	doc := msg.doc
	m.format = doc.Format
	m.encrypt = doc.Format.Encrypted()
	m.savedEncrypt = m.encrypt
	m.loaded = true
	m.hist = &history{}
	m.codec = newBufferCodec(doc.Text)
	m.textarea.SetValue(m.codec.toBuffer(doc.Text))
	m.savedText = m.textarea.Value()
	m.moveCursor(0)

	// Control characters or mixed line endings would not survive a save
	m.readOnly = m.codec.toFile(m.savedText) != doc.Text
	if m.readOnly {
		m.setStatus(readOnlyStatus, true)
	}
	return m.focusEditor(), nil
}

func (m Model) saved(msg savedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		return m, nil
	}
	m.savedText = msg.buffer
	m.savedEncrypt = msg.encrypt
	return m, nil
}

func (m Model) cmdOpen(password []byte, format container.Format) tea.Cmd {
	ctx, svc, path := m.ctx, m.svc, m.path
	return func() tea.Msg {
		defer crypto.ClearBytes(password)
		doc, err := svc.OpenAs(ctx, path, password, format)
		return openedMsg{doc: doc, err: err}
	}
}

func (m Model) cmdSave(password []byte) tea.Cmd {
	ctx, svc := m.ctx, m.svc
	buffer := m.textarea.Value()
	req := core.SaveRequest{
		Path:     m.path,
		Text:     m.codec.toFile(buffer),
		Encrypt:  m.encrypt,
		Password: password,
	}
	return func() tea.Msg {
		defer crypto.ClearBytes(password)
		err := svc.Save(ctx, req)
		return savedMsg{buffer: buffer, encrypt: req.Encrypt, err: err}
	}
}

// Actions

func (m Model) save() (tea.Model, tea.Cmd) {
	if !m.loaded {
		return m, nil
	}
	if m.encrypt {
		return m.prompt(modeSavePassword, "password: ", true, ""), textinput.Blink
	}
	return m, m.cmdSave(nil)
}

func (m Model) toggleEncryption() (tea.Model, tea.Cmd) {
	m.encrypt = !m.encrypt
	if m.encrypt {
		m.setStatus("encryption on: next save is encrypted", false)
	} else {
		m.setStatus("encryption off: next save is plain text", false)
	}
	return m, nil
}

func (m Model) find() (tea.Model, tea.Cmd) {
	return m.prompt(modeFind, "find: ", false, m.query), textinput.Blink
}

func (m Model) startReplaceAll() (tea.Model, tea.Cmd) {
	m.replaceAll = true
	return m.prompt(modeReplaceQuery, "replace all: ", false, m.query), textinput.Blink
}

func (m Model) startReplaceNext() (tea.Model, tea.Cmd) {
	m.replaceAll = false
	return m.prompt(modeReplaceQuery, "replace: ", false, m.query), textinput.Blink
}

func (m Model) undo() (tea.Model, tea.Cmd) {
	s, ok := m.hist.undoTo(m.snapshot())
	if !ok {
		m.setStatus("nothing to undo", false)
		return m, nil
	}
	m.restore(s)
	return m, nil
}

func (m Model) redo() (tea.Model, tea.Cmd) {
	s, ok := m.hist.redoTo(m.snapshot())
	if !ok {
		m.setStatus("nothing to redo", false)
		return m, nil
	}
	m.restore(s)
	return m, nil
}

func (m Model) copyBuffer() (tea.Model, tea.Cmd) {
	if err := m.copyText(m.codec.toFile(m.textarea.Value())); err != nil {
		m.setStatus(fmt.Sprintf("copy failed: %v", err), true)
		return m, nil
	}
	m.setStatus("copied to clipboard", false)
	return m, nil
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	if m.Dirty() {
		return m.ask(modeQuitConfirm, "unsaved changes, quit anyway?"), nil
	}
	return m, tea.Quit
}

// Search and replace

func (m Model) findNext() Model {
	text := m.textarea.Value()
	from := m.cursorOffset()
	// Step past a match under the cursor so repeated finds advance
	if m.query != "" && strings.HasPrefix(text[from:], m.query) {
		from++
	}

	offset, wrapped, ok := FindNext(text, m.query, from)
	if !ok {
		m.setStatus(fmt.Sprintf("not found: %s", m.query), true)
		return m
	}
	m.moveCursor(offset)

	row, _ := Position(text, offset)
	if wrapped {
		m.setStatus(fmt.Sprintf("search wrapped, found at line %d", row+1), false)
	} else {
		m.setStatus(fmt.Sprintf("found at line %d", row+1), false)
	}
	return m
}

func (m Model) applyReplaceAll() Model {
	before := m.snapshot()
	out, n := ReplaceAll(before.text, m.query, m.replacement)
	if n == 0 {
		m.setStatus(fmt.Sprintf("not found: %s", m.query), true)
		return m
	}

	m.hist.record(before)
	m.textarea.SetValue(out)
	m.moveCursor(min(before.offset, len(out)))
	m.setStatus(fmt.Sprintf("replaced %d occurrence(s)", n), false)
	return m
}

func (m Model) applyReplaceNext() Model {
	before := m.snapshot()
	out, at, ok := ReplaceNext(before.text, m.query, m.replacement, before.offset)
	if !ok {
		m.setStatus(fmt.Sprintf("not found: %s", m.query), true)
		return m
	}

	m.hist.record(before)
	m.textarea.SetValue(out)
	m.moveCursor(at + len(m.replacement))
	m.setStatus("replaced 1 occurrence", false)
	return m
}

// Helpers

func (m Model) prompt(md mode, label string, secret bool, value string) Model {
	m.mode = md
	m.textarea.Blur()
	m.input.Reset()
	m.input.Prompt = label
	m.input.EchoMode = textinput.EchoNormal
	if secret {
		m.input.EchoMode = textinput.EchoPassword
	}
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.input.Focus()
	return m
}

func (m Model) ask(md mode, question string) Model {
	m.mode = md
	m.question = question
	m.textarea.Blur()
	m.input.Blur()
	return m
}

func (m Model) focusEditor() Model {
	m.mode = modeEdit
	m.question = ""
	m.input.Reset()
	m.input.Blur()
	m.textarea.Focus()
	return m
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusErr = isErr
}

func (m Model) snapshot() snapshot {
	return snapshot{text: m.textarea.Value(), offset: m.cursorOffset()}
}

func (m *Model) restore(s snapshot) {
	m.textarea.SetValue(s.text)
	m.moveCursor(s.offset)
}

func (m Model) cursorOffset() int {
	li := m.textarea.LineInfo()
	return Offset(m.textarea.Value(), m.textarea.Line(), li.StartColumn+li.ColumnOffset)
}

// moveCursor places the textarea cursor at a byte offset of its value
func (m *Model) moveCursor(offset int) {
	value := m.textarea.Value()
	row, col := Position(value, offset)

	limit := len(value) + m.textarea.LineCount() + 1
	for i := 0; m.textarea.Line() > row && i < limit; i++ {
		m.textarea.CursorUp()
	}
	for i := 0; m.textarea.Line() < row && i < limit; i++ {
		m.textarea.CursorDown()
	}
	m.textarea.SetCursor(col)
}
