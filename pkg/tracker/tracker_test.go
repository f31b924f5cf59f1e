package tracker

import "testing"

func TestTermMatches(t *testing.T) {
	tests := []struct {
		name string
		item string
		term string
		want bool
	}{
		{name: "exact", item: "Godly Sprinkler", term: "Godly Sprinkler", want: true},
		{name: "case insensitive", item: "Godly Sprinkler", term: "godly sprinkler", want: true},
		{name: "substring", item: "Godly Sprinkler", term: "godly", want: true},
		{name: "whitespace trimmed", item: "Godly Sprinkler", term: "  godly  ", want: true},
		{name: "no match", item: "Trowel", term: "sprinkler", want: false},
		{name: "term longer than item", item: "Egg", term: "golden egg", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TermMatches(tt.item, tt.term); got != tt.want {
				t.Errorf("TermMatches(%q, %q) = %v, want %v", tt.item, tt.term, got, tt.want)
			}
		})
	}
}

func TestAllWatchTermsIncludesDefaultsFirst(t *testing.T) {
	sub := &Subscriber{ID: "u1", WatchTerms: []string{"rainbow seed"}}
	terms := sub.AllWatchTerms()

	if len(terms) != len(DefaultWatchTerms)+1 {
		t.Fatalf("len = %d, want %d", len(terms), len(DefaultWatchTerms)+1)
	}
	if terms[0] != DefaultWatchTerms[0] {
		t.Errorf("terms[0] = %q, want %q", terms[0], DefaultWatchTerms[0])
	}
	if terms[len(terms)-1] != "rainbow seed" {
		t.Errorf("last term = %q, want custom term", terms[len(terms)-1])
	}
}

func TestCloneIsDeep(t *testing.T) {
	sub := &Subscriber{ID: "u1", WatchTerms: []string{"a"}}
	dup := sub.Clone()
	dup.WatchTerms[0] = "b"

	if sub.WatchTerms[0] != "a" {
		t.Error("Clone shares the WatchTerms backing array")
	}
}
