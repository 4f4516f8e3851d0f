package catalog

import "flashbox/internal/application/flash"

// Identity returns text unchanged.
var Identity = flash.TranslatorFunc(func(text string) string { return text })

// MapTranslator replaces whole strings with their translation and passes
// unknown strings through.
type MapTranslator map[string]string

var _ flash.Translator = MapTranslator(nil)

// Translate returns the translation of text, or text itself.
func (m MapTranslator) Translate(text string) string {
	if t, ok := m[text]; ok {
		return t
	}
	return text
}
