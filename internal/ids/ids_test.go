package ids

import "testing"

func TestContentHashDeterministic(t *testing.T) {
	a := ContentHash([]byte("fn a(){}"))
	b := ContentHash([]byte("fn a(){}"))
	if a != b {
		t.Fatalf("content hash not deterministic: %s != %s", a, b)
	}
	if ContentHash([]byte("fn b(){}")) == a {
		t.Fatal("distinct content hashed to the same value")
	}
}

func TestProjectIDStable(t *testing.T) {
	a := ProjectID("/repo/root")
	b := ProjectID("/repo/root")
	if a != b {
		t.Fatal("project id not stable across calls")
	}
	if len(a) != 16 {
		t.Fatalf("expected 16 hex chars, got %d", len(a))
	}
}

func TestSymbolStableIDSurvivesLineShift(t *testing.T) {
	// Stable ID must not depend on line numbers, only the content tuple.
	id1 := SymbolStableID("pkg.Foo", "function", "pkg/foo.go", "hash1")
	id2 := SymbolStableID("pkg.Foo", "function", "pkg/foo.go", "hash1")
	if id1 != id2 {
		t.Fatal("stable id not deterministic")
	}
}

func TestResultIDDeterministicRoundTrip(t *testing.T) {
	f := ResultIDFields{
		ResultType: "symbol", Repo: "r", Ref: "main", Path: "a.go",
		LineStart: 1, LineEnd: 5, Kind: "function", Name: "Foo",
		QualifiedName: "pkg.Foo", Language: "go", SymbolStableID: "abc",
	}
	if ResultID(f) != ResultID(f) {
		t.Fatal("result id not deterministic")
	}
}

func TestNormalizeRef(t *testing.T) {
	cases := map[string]string{
		"feature/foo-bar": "feature-foo-bar",
		"--leading":       "leading",
		"trailing--":      "trailing",
		"release.2024":    "release.2024",
	}
	for in, want := range cases {
		if got := NormalizeRef(in); got != want {
			t.Errorf("NormalizeRef(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFilePseudoSymbolIDRoundTrip(t *testing.T) {
	id := FilePseudoSymbolID("src/lib.rs")
	path, ok := IsFilePseudoSymbolID(id)
	if !ok || path != "src/lib.rs" {
		t.Fatalf("round trip failed: %q %v", path, ok)
	}
	if _, ok := IsFilePseudoSymbolID("not-a-file-pseudo"); ok {
		t.Fatal("expected false for non-pseudo id")
	}
}
