package searchutil

import "testing"

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"  Re:Zero - Starting Life  ": "re zero starting life",
		"JoJo's Bizarre Adventure":    "jojo s bizarre adventure",
		"":                            "",
		"!!!":                         "",
	}
	for raw, expected := range cases {
		if got := Normalize(raw); got != expected {
			t.Fatalf("Normalize(%q) = %q, expected %q", raw, got, expected)
		}
	}
}

func TestQueryMatches(t *testing.T) {
	query := NewQuery("attack titan")
	if !query.Matches("Shingeki no Kyojin", "Attack on Titan") {
		t.Fatalf("expected token match on english title")
	}
	if query.Matches("Attack No. 1") {
		t.Fatalf("did not expect partial token match")
	}
	if !NewQuery("Re:Zero").Matches("re zero kara hajimeru") {
		t.Fatalf("expected punctuation-insensitive match")
	}
	if NewQuery("  ").Matches("anything") {
		t.Fatalf("empty query must not match")
	}
}

func TestTokenizeNormalizedDropsDuplicates(t *testing.T) {
	tokens := TokenizeNormalized("one piece one")
	if len(tokens) != 2 || tokens[0] != "one" || tokens[1] != "piece" {
		t.Fatalf("unexpected tokens %v", tokens)
	}
}
