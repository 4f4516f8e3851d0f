package flash

import (
	"context"
	"fmt"

	domain "flashbox/internal/domain/flash"
)

// Sugar appends a message whose text comes from the catalog: key is looked
// up, translated, then handled exactly like Append.
// PRE: key resolves to non-empty text in Deps.Catalog
// POST: Returns an error matching domain.ErrEmptyText when it does not
func (s *Store[T]) Sugar(ctx context.Context, kind domain.Kind, key string, values domain.Values, data T) error {
	var text string
	if s.deps.Catalog != nil && key != "" {
		if raw, ok := s.deps.Catalog.Lookup(key); ok {
			text = s.deps.Translator.Translate(raw)
		}
	}
	if text == "" {
		return fmt.Errorf("%w (catalog key %q)", domain.ErrEmptyText, key)
	}
	return s.Append(ctx, kind, text, values, data)
}

// Error appends an error message from the catalog.
func (s *Store[T]) Error(ctx context.Context, key string, values domain.Values, data T) error {
	return s.Sugar(ctx, domain.KindError, key, values, data)
}

// Success appends a success message from the catalog.
func (s *Store[T]) Success(ctx context.Context, key string, values domain.Values, data T) error {
	return s.Sugar(ctx, domain.KindSuccess, key, values, data)
}

// Notice appends a notice message from the catalog.
func (s *Store[T]) Notice(ctx context.Context, key string, values domain.Values, data T) error {
	return s.Sugar(ctx, domain.KindNotice, key, values, data)
}

// Alert appends an alert message from the catalog.
func (s *Store[T]) Alert(ctx context.Context, key string, values domain.Values, data T) error {
	return s.Sugar(ctx, domain.KindAlert, key, values, data)
}

// Access appends an access message from the catalog.
func (s *Store[T]) Access(ctx context.Context, key string, values domain.Values, data T) error {
	return s.Sugar(ctx, domain.KindAccess, key, values, data)
}

// Warning appends a warning message from the catalog.
func (s *Store[T]) Warning(ctx context.Context, key string, values domain.Values, data T) error {
	return s.Sugar(ctx, domain.KindWarning, key, values, data)
}
