package flash

import (
	"sort"
	"strings"
)

type filterMode uint8

const (
	modeAll filterMode = iota
	modeOnly
	modeExcept
)

// Filter selects messages by kind. The zero value matches everything.
type Filter struct {
	mode  filterMode
	kinds map[Kind]struct{}
}

// All matches every message.
func All() Filter {
	return Filter{}
}

// Only matches messages whose kind is one of kinds.
// An Only filter without kinds matches nothing.
func Only(kinds ...Kind) Filter {
	return Filter{mode: modeOnly, kinds: kindSet(kinds)}
}

// Except matches messages whose kind is not one of kinds.
func Except(kinds ...Kind) Filter {
	return Filter{mode: modeExcept, kinds: kindSet(kinds)}
}

func kindSet(kinds []Kind) map[Kind]struct{} {
	set := make(map[Kind]struct{}, len(kinds))
	for _, k := range kinds {
		set[k] = struct{}{}
	}
	return set
}

// IsAll reports whether f is the match-everything filter.
func (f Filter) IsAll() bool {
	return f.mode == modeAll
}

// Match reports whether a message of kind k satisfies f.
func (f Filter) Match(k Kind) bool {
	switch f.mode {
	case modeOnly:
		_, ok := f.kinds[k]
		return ok
	case modeExcept:
		_, ok := f.kinds[k]
		return !ok
	default:
		return true
	}
}

// String renders the filter for logs, e.g. "only(error,alert)".
func (f Filter) String() string {
	if f.mode == modeAll {
		return "all"
	}
	names := make([]string, 0, len(f.kinds))
	for _, k := range Kinds {
		if _, ok := f.kinds[k]; ok {
			names = append(names, string(k))
		}
	}
	var custom []string
	for k := range f.kinds {
		if !IsKnownKind(k) {
			custom = append(custom, string(k))
		}
	}
	sort.Strings(custom)
	names = append(names, custom...)
	prefix := "only"
	if f.mode == modeExcept {
		prefix = "except"
	}
	return prefix + "(" + strings.Join(names, ",") + ")"
}

// Partition splits messages into those matching f and the remainder,
// preserving relative order within each part.
// PRE: none
// POST: len(matched)+len(remainder) == len(messages)
func Partition[T any](messages []Message[T], f Filter) (matched, remainder []Message[T]) {
	for _, m := range messages {
		if f.Match(m.Kind) {
			matched = append(matched, m)
		} else {
			remainder = append(remainder, m)
		}
	}
	return matched, remainder
}
