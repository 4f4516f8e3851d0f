package flash_test

import (
	"testing"

	"flashbox/internal/domain/flash"
)

// TestFilter_Match tests the three filter shapes.
func TestFilter_Match(t *testing.T) {
	tests := []struct {
		name   string
		filter flash.Filter
		kind   flash.Kind
		want   bool
	}{
		{"zero value matches", flash.Filter{}, flash.KindError, true},
		{"all matches custom", flash.All(), "custom", true},
		{"only single hit", flash.Only(flash.KindError), flash.KindError, true},
		{"only single miss", flash.Only(flash.KindError), flash.KindAlert, false},
		{"only list hit", flash.Only(flash.KindError, flash.KindAlert), flash.KindAlert, true},
		{"only empty matches nothing", flash.Only(), flash.KindError, false},
		{"except hit", flash.Except(flash.KindAlert, flash.KindWarning), flash.KindError, true},
		{"except miss", flash.Except(flash.KindAlert, flash.KindWarning), flash.KindWarning, false},
		{"except empty matches everything", flash.Except(), flash.KindNotice, true},
		{"two-element only is inclusion", flash.Only(flash.KindError, flash.KindAlert), flash.KindNotice, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Match(tt.kind); got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.kind, got, tt.want)
			}
		})
	}
}

func TestFilter_IsAll(t *testing.T) {
	if !flash.All().IsAll() {
		t.Error("All().IsAll() = false")
	}
	if flash.Except().IsAll() {
		t.Error("Except().IsAll() = true, want false")
	}
	if flash.Only(flash.KindError).IsAll() {
		t.Error("Only(error).IsAll() = true, want false")
	}
}

func TestFilter_String(t *testing.T) {
	tests := []struct {
		filter flash.Filter
		want   string
	}{
		{flash.All(), "all"},
		{flash.Only(flash.KindAlert, flash.KindError), "only(error,alert)"},
		{flash.Except("zeta", flash.KindWarning, "beta"), "except(warning,beta,zeta)"},
	}
	for _, tt := range tests {
		if got := tt.filter.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

// TestPartition verifies order is preserved in both halves.
func TestPartition(t *testing.T) {
	msgs := []flash.Message[int]{
		{Kind: flash.KindError, Text: "e1", Data: 1},
		{Kind: flash.KindAlert, Text: "a1", Data: 2},
		{Kind: flash.KindError, Text: "e2", Data: 3},
		{Kind: flash.KindWarning, Text: "w1", Data: 4},
		{Kind: flash.KindAlert, Text: "a2", Data: 5},
	}

	matched, remainder := flash.Partition(msgs, flash.Only(flash.KindError, flash.KindWarning))

	wantMatched := []string{"e1", "e2", "w1"}
	wantRemainder := []string{"a1", "a2"}
	if len(matched) != len(wantMatched) {
		t.Fatalf("matched = %d, want %d", len(matched), len(wantMatched))
	}
	for i, m := range matched {
		if m.Text != wantMatched[i] {
			t.Errorf("matched[%d] = %q, want %q", i, m.Text, wantMatched[i])
		}
	}
	if len(remainder) != len(wantRemainder) {
		t.Fatalf("remainder = %d, want %d", len(remainder), len(wantRemainder))
	}
	for i, m := range remainder {
		if m.Text != wantRemainder[i] {
			t.Errorf("remainder[%d] = %q, want %q", i, m.Text, wantRemainder[i])
		}
	}
}

func TestPartition_Empty(t *testing.T) {
	matched, remainder := flash.Partition[string](nil, flash.All())
	if matched != nil || remainder != nil {
		t.Errorf("Partition(nil) = %v, %v, want nil, nil", matched, remainder)
	}
}
