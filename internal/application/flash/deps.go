package flash

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Session is one session's slot in session storage.
// Get reports found=false when the key holds no value.
type Session interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Renderer turns a named template and its bindings into a string.
type Renderer interface {
	Render(name string, bindings map[string]any) (string, error)
}

// RendererFunc adapts a plain function to Renderer.
type RendererFunc func(name string, bindings map[string]any) (string, error)

// Render calls f.
func (f RendererFunc) Render(name string, bindings map[string]any) (string, error) {
	return f(name, bindings)
}

// Catalog resolves dotted message keys (e.g. "user.login.error") to text.
type Catalog interface {
	Lookup(key string) (string, bool)
}

// Translator maps catalog text to its display form.
type Translator interface {
	Translate(text string) string
}

// TranslatorFunc adapts a plain function to Translator.
type TranslatorFunc func(text string) string

// Translate calls f.
func (f TranslatorFunc) Translate(text string) string {
	return f(text)
}

// Deps provides the collaborators of a Store. Every field is optional.
type Deps struct {
	Renderer   Renderer
	Catalog    Catalog
	Translator Translator
	Observer   Observer
	Logger     *zap.Logger

	// Locker, when set, is held around every load-modify-store sequence.
	// Stores built for the same session must share it.
	Locker sync.Locker
}

func (d Deps) withDefaults() Deps {
	if d.Translator == nil {
		d.Translator = TranslatorFunc(func(text string) string { return text })
	}
	if d.Observer == nil {
		d.Observer = NopObserver{}
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return d
}
