package editor

import (
	"errors"

	"github.com/debemdeboas/site-editor/internal/content"
	"github.com/debemdeboas/site-editor/internal/model"
)

// Stager accepts a candidate change. *content.Store implements it.
type Stager interface {
	SetPendingChange(candidate model.PendingChange) (model.PendingChange, error)
}

type State int

const (
	StateIdle State = iota
	StateEditing
	StateStaged
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEditing:
		return "editing"
	case StateStaged:
		return "staged"
	default:
		return "unknown"
	}
}

type Action int

const (
	ActionNone Action = iota
	ActionCommit
	ActionCancel
)

// Key is a key press inside the inline editor.
type Key struct {
	Name  string
	Shift bool
	Ctrl  bool
	Alt   bool
	Meta  bool
}

func (k Key) modified() bool {
	return k.Shift || k.Ctrl || k.Alt || k.Meta
}

// KeyAction maps a key press to what the editor does with it. Enter with any modifier
// inserts a line break instead of committing.
func KeyAction(k Key) Action {
	switch k.Name {
	case "Enter":
		if k.modified() {
			return ActionNone
		}
		return ActionCommit
	case "Escape":
		return ActionCancel
	default:
		return ActionNone
	}
}

var ErrNotEditing = errors.New("field is not being edited")

// Interaction is the life of one edit on one field:
//
//	idle -> editing -> staged   (commit of changed text)
//	idle -> editing -> idle     (cancel, no-op commit, or a rejected commit)
//
// A staged interaction can be edited again; the store replaces the pending change.
type Interaction struct {
	binding  Binding
	state    State
	original string
}

func NewInteraction(b Binding) *Interaction {
	return &Interaction{binding: b}
}

func (i *Interaction) State() State { return i.state }

// Original is the text the field showed before editing started.
func (i *Interaction) Original() string { return i.original }

// Begin starts editing. original must be the field's cached or default value, never a
// value that is itself only staged.
func (i *Interaction) Begin(original string) {
	i.original = original
	i.state = StateEditing
}

// Commit stages value against the text shown when editing began. The interaction
// returns to idle unless a change was staged; the error tells why.
func (i *Interaction) Commit(s Stager, value string) (model.PendingChange, error) {
	if i.state != StateEditing {
		return model.PendingChange{}, ErrNotEditing
	}

	change, err := s.SetPendingChange(model.PendingChange{
		Section:  i.binding.Section,
		Field:    i.binding.Field,
		OldValue: i.original,
		NewValue: value,
	})
	if err != nil {
		i.state = StateIdle
		return model.PendingChange{}, err
	}

	i.state = StateStaged
	return change, nil
}

func (i *Interaction) Cancel() {
	i.state = StateIdle
}

// HandleKey applies a key press while editing.
func (i *Interaction) HandleKey(s Stager, k Key, value string) (Action, model.PendingChange, error) {
	if i.state != StateEditing {
		return ActionNone, model.PendingChange{}, ErrNotEditing
	}

	action := KeyAction(k)
	switch action {
	case ActionCommit:
		change, err := i.Commit(s, value)
		return action, change, err
	case ActionCancel:
		i.Cancel()
	}
	return action, model.PendingChange{}, nil
}

// Blur commits, like Enter does.
func (i *Interaction) Blur(s Stager, value string) (model.PendingChange, error) {
	return i.Commit(s, value)
}

// silent reports errors the operator never needs to see.
func silent(err error) bool {
	return errors.Is(err, content.ErrNoOpChange)
}
