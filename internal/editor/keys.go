package editor

import "github.com/charmbracelet/bubbles/key"

// actionID names an editor command in the action table
type actionID string

const (
	actSave          actionID = "save"
	actToggleEncrypt actionID = "toggle-encryption"
	actFind          actionID = "find"
	actReplaceAll    actionID = "replace-all"
	actReplaceNext   actionID = "replace-next"
	actUndo          actionID = "undo"
	actRedo          actionID = "redo"
	actCopy          actionID = "copy"
	actQuit          actionID = "quit"
)

type binding struct {
	key     key.Binding
	id      actionID
	mutates bool // Refused in read-only buffers
}

// editBindings is checked in order before keys reach the textarea
var editBindings = []binding{
	{key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("^S", "save")), actSave, true},
	{key.NewBinding(key.WithKeys("ctrl+e"), key.WithHelp("^E", "encrypt")), actToggleEncrypt, true},
	{key.NewBinding(key.WithKeys("ctrl+f"), key.WithHelp("^F", "find")), actFind, false},
	{key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("^R", "replace all")), actReplaceAll, true},
	{key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("^N", "replace next")), actReplaceNext, true},
	{key.NewBinding(key.WithKeys("ctrl+z"), key.WithHelp("^Z", "undo")), actUndo, true},
	{key.NewBinding(key.WithKeys("ctrl+y"), key.WithHelp("^Y", "redo")), actRedo, true},
	{key.NewBinding(key.WithKeys("ctrl+k"), key.WithHelp("^K", "copy")), actCopy, false},
	{key.NewBinding(key.WithKeys("ctrl+q", "ctrl+c"), key.WithHelp("^Q", "quit")), actQuit, false},
}

type promptKeys struct {
	submit key.Binding
	cancel key.Binding
	yes    key.Binding
	no     key.Binding
}

var prompt = promptKeys{
	submit: key.NewBinding(key.WithKeys("enter")),
	cancel: key.NewBinding(key.WithKeys("esc")),
	yes:    key.NewBinding(key.WithKeys("y", "Y")),
	no:     key.NewBinding(key.WithKeys("n", "N")),
}
