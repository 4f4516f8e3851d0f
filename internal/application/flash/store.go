// Package flash stores short-lived typed notifications in a session so that
// one request can leave messages for the next one to display.
//
// The message list lives under a single session key. It is either absent or
// non-empty: any operation that would leave it empty deletes the key instead.
package flash

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	domain "flashbox/internal/domain/flash"
)

// ErrNoRenderer is returned by Render when neither the call nor the store
// supplies a Renderer.
var ErrNoRenderer = errors.New("flash: no renderer configured")

// Store is a façade over one session's message list.
// All methods are safe for concurrent use on the same Store; Stores for the
// same session built separately must share Deps.Locker.
//
// The list is stored as JSON, so message data follows encoding/json decoding
// rules: with T = any, numbers come back as float64 and objects as
// map[string]any. A concrete T round-trips exactly.
type Store[T any] struct {
	sess Session
	cfg  Config
	deps Deps
	mu   sync.Mutex
}

// New creates a Store over sess. Zero fields of cfg take their defaults.
// PRE: sess is non-nil
// POST: Returns a ready Store; nil Deps members are replaced by no-ops
func New[T any](sess Session, cfg Config, deps Deps) *Store[T] {
	merged := DefaultConfig()
	merged.Merge(&cfg)
	return &Store[T]{
		sess: sess,
		cfg:  merged,
		deps: deps.withDefaults(),
	}
}

// Config returns the effective configuration.
func (s *Store[T]) Config() Config {
	return s.cfg
}

// Append adds one message to the end of the list.
// values may be nil, Args (printf-style) or Tokens (substitution).
// PRE: kind and text are non-empty
// POST: Message appended and list written back; storage untouched on error
func (s *Store[T]) Append(ctx context.Context, kind domain.Kind, text string, values domain.Values, data T) error {
	m, err := domain.NewMessage(kind, text, values, data)
	if err != nil {
		return err
	}
	return s.add(ctx, kind, []domain.Message[T]{m})
}

// AppendAll adds one message of kind per text, in order, with no values
// and zero data. An empty texts is a no-op.
// PRE: kind is non-empty, every text is non-empty
// POST: All messages appended in a single write, or none on error
func (s *Store[T]) AppendAll(ctx context.Context, kind domain.Kind, texts []string) error {
	if len(texts) == 0 {
		return nil
	}
	var zero T
	msgs := make([]domain.Message[T], 0, len(texts))
	for _, text := range texts {
		m, err := domain.NewMessage(kind, text, nil, zero)
		if err != nil {
			return err
		}
		msgs = append(msgs, m)
	}
	return s.add(ctx, kind, msgs)
}

func (s *Store[T]) add(ctx context.Context, kind domain.Kind, msgs []domain.Message[T]) error {
	start := time.Now()
	unlock := s.lock()
	defer unlock()

	current, _, err := s.load(ctx)
	if err != nil {
		return err
	}
	if err := s.save(ctx, append(current, msgs...)); err != nil {
		return err
	}

	s.deps.Logger.Debug("flash_appended",
		zap.String("kind", string(kind)),
		zap.Int("added", len(msgs)),
		zap.Int("stored", len(current)+len(msgs)),
	)
	s.emit(ctx, Event{Type: EventAppend, Kind: kind, Count: len(msgs)}, start)
	return nil
}

// Retrieve returns the messages matching f without removing them, or def
// when nothing matches.
func (s *Store[T]) Retrieve(ctx context.Context, f domain.Filter, def []domain.Message[T]) ([]domain.Message[T], error) {
	return s.retrieve(ctx, f, def, false)
}

// RetrieveOnce returns the messages matching f and removes them from the
// session, or returns def when nothing matches.
// POST: Non-matching messages stay stored in their original order
func (s *Store[T]) RetrieveOnce(ctx context.Context, f domain.Filter, def []domain.Message[T]) ([]domain.Message[T], error) {
	return s.retrieve(ctx, f, def, true)
}

func (s *Store[T]) retrieve(ctx context.Context, f domain.Filter, def []domain.Message[T], destructive bool) ([]domain.Message[T], error) {
	start := time.Now()
	unlock := s.lock()
	defer unlock()

	matched, remainder, err := s.match(ctx, f)
	if err != nil {
		return nil, err
	}
	if len(matched) == 0 {
		return def, nil
	}
	if destructive {
		if err := s.commit(ctx, f, remainder); err != nil {
			return nil, err
		}
	}

	s.deps.Logger.Debug("flash_retrieved",
		zap.Stringer("filter", f),
		zap.Int("matched", len(matched)),
		zap.Bool("destructive", destructive),
	)
	s.emit(ctx, Event{Type: EventRetrieve, Count: len(matched), Destructive: destructive}, start)
	return matched, nil
}

// Delete removes the messages matching f. The All filter removes the whole
// list; deleting from an empty session is a no-op.
// POST: Non-matching messages stay stored in their original order
func (s *Store[T]) Delete(ctx context.Context, f domain.Filter) error {
	if !f.IsAll() {
		_, err := s.RetrieveOnce(ctx, f, nil)
		return err
	}

	start := time.Now()
	unlock := s.lock()
	defer unlock()

	if err := s.sess.Delete(ctx, s.cfg.StorageKey); err != nil {
		return fmt.Errorf("flash: delete: %w", err)
	}
	s.deps.Logger.Debug("flash_cleared")
	s.emit(ctx, Event{Type: EventClear}, start)
	return nil
}

// RenderOptions customise Render. The zero value renders destructively with
// the store's default template and renderer.
type RenderOptions struct {
	Keep     bool     // leave rendered messages in the session
	Template string   // template name; empty means Config.DefaultTemplate
	Renderer Renderer // overrides Deps.Renderer for this call
}

// Render renders the messages matching f under the binding "messages".
// It returns "" without invoking the renderer when nothing matches.
// PRE: a Renderer is available when messages match
// POST: Unless opts.Keep, rendered messages are removed; nothing is removed if rendering fails
func (s *Store[T]) Render(ctx context.Context, f domain.Filter, opts RenderOptions) (string, error) {
	start := time.Now()
	unlock := s.lock()
	defer unlock()

	matched, remainder, err := s.match(ctx, f)
	if err != nil {
		return "", err
	}
	if len(matched) == 0 {
		return "", nil
	}

	renderer := opts.Renderer
	if renderer == nil {
		renderer = s.deps.Renderer
	}
	if renderer == nil {
		return "", ErrNoRenderer
	}
	name := opts.Template
	if name == "" {
		name = s.cfg.DefaultTemplate
	}

	out, err := renderer.Render(name, map[string]any{"messages": matched})
	if err != nil {
		return "", fmt.Errorf("flash: render %s: %w", name, err)
	}
	if !opts.Keep {
		if err := s.commit(ctx, f, remainder); err != nil {
			return "", err
		}
	}

	s.deps.Logger.Debug("flash_rendered",
		zap.String("template", name),
		zap.Int("messages", len(matched)),
		zap.Bool("keep", opts.Keep),
	)
	s.emit(ctx, Event{Type: EventRender, Count: len(matched), Template: name, Destructive: !opts.Keep}, start)
	return out, nil
}

// match loads the list and splits it by f. Both results are nil when the
// session holds no messages.
func (s *Store[T]) match(ctx context.Context, f domain.Filter) (matched, remainder []domain.Message[T], err error) {
	msgs, found, err := s.load(ctx)
	if err != nil || !found {
		return nil, nil, err
	}
	matched, remainder = domain.Partition(msgs, f)
	return matched, remainder, nil
}

// commit stores what is left after a destructive read.
func (s *Store[T]) commit(ctx context.Context, f domain.Filter, remainder []domain.Message[T]) error {
	if f.IsAll() {
		remainder = nil
	}
	return s.save(ctx, remainder)
}

// load reads the message list. An empty stored list reads as absent.
func (s *Store[T]) load(ctx context.Context) ([]domain.Message[T], bool, error) {
	raw, found, err := s.sess.Get(ctx, s.cfg.StorageKey)
	if err != nil {
		return nil, false, fmt.Errorf("flash: load: %w", err)
	}
	if !found || len(raw) == 0 {
		return nil, false, nil
	}
	var msgs []domain.Message[T]
	if err := json.Unmarshal(raw, &msgs); err != nil {
		return nil, false, fmt.Errorf("flash: decode: %w", err)
	}
	if len(msgs) == 0 {
		return nil, false, nil
	}
	return msgs, true, nil
}

// save writes msgs, deleting the key instead of storing an empty list.
// INVARIANT: the session never holds an empty list
func (s *Store[T]) save(ctx context.Context, msgs []domain.Message[T]) error {
	if len(msgs) == 0 {
		if err := s.sess.Delete(ctx, s.cfg.StorageKey); err != nil {
			return fmt.Errorf("flash: delete: %w", err)
		}
		return nil
	}
	raw, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("flash: encode: %w", err)
	}
	if err := s.sess.Set(ctx, s.cfg.StorageKey, raw); err != nil {
		return fmt.Errorf("flash: store: %w", err)
	}
	return nil
}

func (s *Store[T]) lock() func() {
	s.mu.Lock()
	if s.deps.Locker != nil {
		s.deps.Locker.Lock()
	}
	return func() {
		if s.deps.Locker != nil {
			s.deps.Locker.Unlock()
		}
		s.mu.Unlock()
	}
}

func (s *Store[T]) emit(ctx context.Context, e Event, start time.Time) {
	e.Timestamp = start
	e.Duration = time.Since(start)
	s.deps.Observer.OnEvent(ctx, e)
}
