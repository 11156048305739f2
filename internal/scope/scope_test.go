package scope

import "testing"

func TestParseRoundTrip(t *testing.T) {
	cases := []string{"", "read", "read write", "a b c"}
	for _, c := range cases {
		s, err := Parse(c)
		if err != nil {
			t.Fatalf("Parse(%q): %v", c, err)
		}
		reparsed, err := Parse(s.String())
		if err != nil {
			t.Fatalf("Parse(Format(%q)): %v", c, err)
		}
		if !s.Equal(reparsed) {
			t.Errorf("round trip mismatch for %q: got %q", c, reparsed.String())
		}
	}
}

func TestParseRejectsForbiddenCharacters(t *testing.T) {
	for _, c := range []string{`read"write`, `read\write`} {
		if _, err := Parse(c); err == nil {
			t.Errorf("Parse(%q) expected error, got nil", c)
		}
	}
}

func TestParseDropsEmptyTokens(t *testing.T) {
	s, err := Parse("  read   write  ")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if s.Len() != 2 {
		t.Fatalf("expected 2 tokens, got %d (%v)", s.Len(), s.Tokens())
	}
}

func TestSubsetTotality(t *testing.T) {
	a := MustParse("read")
	b := MustParse("read write")
	c := MustParse("publish")

	if !a.LessEqual(b) {
		t.Error("expected read <= read write")
	}
	if b.LessEqual(a) {
		t.Error("did not expect read write <= read")
	}
	if a.LessEqual(c) || c.LessEqual(a) {
		t.Error("read and publish should be incomparable")
	}
}

func TestEqualRequiresBothDirections(t *testing.T) {
	a := MustParse("read write")
	b := MustParse("write read")
	if !a.Equal(b) {
		t.Error("expected set equality regardless of token order")
	}
}

func TestAllows(t *testing.T) {
	granted := MustParse("read write admin")
	required := MustParse("read write")
	if !granted.Allows(required) {
		t.Error("expected granted scope to allow required subset")
	}

	insufficient := MustParse("read")
	if insufficient.Allows(required) {
		t.Error("did not expect insufficient scope to allow required scope")
	}
}

func TestIntersectAndUnion(t *testing.T) {
	a := MustParse("read write")
	b := MustParse("write publish")

	i := a.Intersect(b)
	if i.String() != "write" {
		t.Errorf("expected intersection 'write', got %q", i.String())
	}

	u := a.Union(b)
	if u.Len() != 3 {
		t.Errorf("expected union of 3 tokens, got %d", u.Len())
	}
}
