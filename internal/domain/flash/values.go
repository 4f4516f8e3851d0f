package flash

import (
	"fmt"
	"sort"
	"strings"
)

// Values are substituted into a message text when it is set.
// A nil or empty Values leaves the text verbatim.
type Values interface {
	interpolate(text string) string
	empty() bool
}

// Args interpolates positionally: the text is a fmt format string
// consuming the arguments in order.
type Args []any

func (a Args) interpolate(text string) string {
	return fmt.Sprintf(text, a...)
}

func (a Args) empty() bool { return len(a) == 0 }

// Tokens interpolates by substitution: every occurrence of a key is
// replaced by the string form of its value.
// INVARIANT: longer tokens win over their prefixes; replaced text is never rescanned
type Tokens map[string]any

func (t Tokens) interpolate(text string) string {
	keys := make([]string, 0, len(t))
	for k := range t {
		if k == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	pairs := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		pairs = append(pairs, k, fmt.Sprint(t[k]))
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

func (t Tokens) empty() bool { return len(t) == 0 }

// Interpolate applies values to text.
// PRE: none
// POST: Returns text unchanged when values is nil or empty
func Interpolate(text string, values Values) string {
	if values == nil || values.empty() {
		return text
	}
	return values.interpolate(text)
}
