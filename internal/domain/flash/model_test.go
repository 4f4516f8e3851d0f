package flash_test

import (
	"errors"
	"testing"

	"flashbox/internal/domain/flash"
)

// TestMessage_Validate tests validation of Message.
func TestMessage_Validate(t *testing.T) {
	tests := []struct {
		name    string
		msg     flash.Message[any]
		wantErr error
	}{
		{
			name: "valid predefined kind",
			msg:  flash.Message[any]{Kind: flash.KindError, Text: "teh bomb"},
		},
		{
			name: "valid custom kind",
			msg:  flash.Message[any]{Kind: "celebration", Text: "Party time"},
		},
		{
			name:    "empty kind",
			msg:     flash.Message[any]{Text: "orphan"},
			wantErr: flash.ErrEmptyKind,
		},
		{
			name:    "empty text",
			msg:     flash.Message[any]{Kind: flash.KindError},
			wantErr: flash.ErrEmptyText,
		},
		{
			name:    "nothing at all",
			msg:     flash.Message[any]{},
			wantErr: flash.ErrEmptyKind,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil && !errors.Is(err, flash.ErrInvalidArgument) {
				t.Errorf("Validate() error = %v, want it to match ErrInvalidArgument", err)
			}
		})
	}
}

// TestNewMessage_Interpolates verifies values are applied after validation.
func TestNewMessage_Interpolates(t *testing.T) {
	m, err := flash.NewMessage(flash.KindAccess, "You are %d %s", flash.Args{2, "dorky"}, "payload")
	if err != nil {
		t.Fatalf("NewMessage() error = %v", err)
	}
	if m.Text != "You are 2 dorky" {
		t.Errorf("Text = %q, want %q", m.Text, "You are 2 dorky")
	}
	if m.Data != "payload" {
		t.Errorf("Data = %q, want %q", m.Data, "payload")
	}
}

// TestNewMessage_RejectsMissingText verifies a missing text fails before interpolation.
func TestNewMessage_RejectsMissingText(t *testing.T) {
	_, err := flash.NewMessage[any](flash.KindError, "", flash.Args{"lol"}, nil)
	if !errors.Is(err, flash.ErrEmptyText) {
		t.Errorf("NewMessage() error = %v, want ErrEmptyText", err)
	}
}

func TestIsKnownKind(t *testing.T) {
	for _, k := range flash.Kinds {
		if !flash.IsKnownKind(k) {
			t.Errorf("IsKnownKind(%q) = false, want true", k)
		}
	}
	if flash.IsKnownKind("celebration") {
		t.Error("IsKnownKind(celebration) = true, want false")
	}
}
