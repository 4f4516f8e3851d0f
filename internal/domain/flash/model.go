package flash

import (
	"errors"
	"fmt"
)

// Kind is the category tag of a flash message. Kinds are open: any
// non-empty string is accepted, the constants below are the common ones.
type Kind string

// Message kinds
const (
	KindError   Kind = "error"
	KindSuccess Kind = "success"
	KindNotice  Kind = "notice"
	KindAlert   Kind = "alert"
	KindAccess  Kind = "access"
	KindWarning Kind = "warning"
)

// Kinds lists the predefined kinds in display order.
var Kinds = []Kind{KindError, KindSuccess, KindNotice, KindAlert, KindAccess, KindWarning}

// Domain errors
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrEmptyKind       = fmt.Errorf("%w: flash kind is required", ErrInvalidArgument)
	ErrEmptyText       = fmt.Errorf("%w: flash text is required", ErrInvalidArgument)
)

// Message is a single flash notification. Data is an opaque caller payload
// carried alongside the text and handed back on retrieval. Stored messages
// are JSON encoded, so Data must survive an encoding/json round trip; use a
// concrete T when exact types matter.
type Message[T any] struct {
	Kind Kind   `json:"kind"`
	Text string `json:"text"`
	Data T      `json:"data"`
}

// NewMessage builds a message, interpolating values into text.
// PRE: kind and text are non-empty
// POST: Returns the message with final text, or ErrEmptyKind / ErrEmptyText
func NewMessage[T any](kind Kind, text string, values Values, data T) (Message[T], error) {
	m := Message[T]{Kind: kind, Text: text, Data: data}
	if err := m.Validate(); err != nil {
		return Message[T]{}, err
	}
	m.Text = Interpolate(text, values)
	return m, nil
}

// Validate checks the mandatory fields.
// PRE: Message struct is populated
// POST: Returns nil if valid, error otherwise
func (m *Message[T]) Validate() error {
	if m.Kind == "" {
		return ErrEmptyKind
	}
	if m.Text == "" {
		return ErrEmptyText
	}
	return nil
}

// IsKnownKind reports whether k is one of the predefined kinds.
func IsKnownKind(k Kind) bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}
