package docstore

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSplitPath(t *testing.T) {
	tests := []struct {
		path string
		want []string
		err  error
	}{
		{path: "/", want: []string{}},
		{path: "", want: []string{}},
		{path: "//users//a,b@c,com/", want: []string{"users", "a,b@c,com"}},
		{path: "/users/a.b@c.com", err: ErrInvalidKey},
		{path: "/x/$ref", err: ErrInvalidKey},
		{path: "/x/[0]", err: ErrInvalidKey},
	}

	for _, tt := range tests {
		got, err := splitPath(tt.path)
		if !errors.Is(err, tt.err) {
			t.Fatalf("splitPath(%q): expected error %v, got %v", tt.path, tt.err, err)
		}
		if tt.err != nil {
			continue
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("splitPath(%q) mismatch (-want +got):\n%s", tt.path, diff)
		}
	}
}

func TestAssign(t *testing.T) {
	var root any
	root = assign(root, []string{"a", "b"}, "x")
	root = assign(root, []string{"a", "c"}, "y")

	want := map[string]any{"a": map[string]any{"b": "x", "c": "y"}}
	if diff := cmp.Diff(want, root); diff != "" {
		t.Fatalf("after two writes (-want +got):\n%s", diff)
	}

	root = assign(root, []string{"a", "b"}, nil)
	root = assign(root, []string{"a", "c"}, nil)
	if root != nil {
		t.Fatalf("expected empty parents to be pruned, got %v", root)
	}

	// deleting below a leaf leaves it untouched
	root = assign("leaf", []string{"a"}, nil)
	if root != "leaf" {
		t.Fatalf("expected leaf to survive, got %v", root)
	}
}

func TestAssignIntoArray(t *testing.T) {
	root, err := normalize(map[string]any{"ids": []string{"1", "3"}})
	if err != nil {
		t.Fatal(err)
	}

	root = assign(root, []string{"ids", "2"}, "5")

	got, ok := lookup(root, []string{"ids"})
	if !ok {
		t.Fatal("ids disappeared")
	}
	want := map[string]any{"0": "1", "1": "3", "2": "5"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestLookupArrayIndex(t *testing.T) {
	root, err := normalize(map[string]any{"ids": []string{"1", "3"}})
	if err != nil {
		t.Fatal(err)
	}

	if v, ok := lookup(root, []string{"ids", "1"}); !ok || v != "3" {
		t.Fatalf("expected 3, got %v (%v)", v, ok)
	}
	if _, ok := lookup(root, []string{"ids", "7"}); ok {
		t.Fatal("expected out of range index to be missing")
	}
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		a, b []string
		want bool
	}{
		{nil, []string{"users"}, true},
		{[]string{"users", "a"}, []string{"users"}, true},
		{[]string{"users"}, []string{"users", "a"}, true},
		{[]string{"users", "a"}, []string{"users", "b"}, false},
		{[]string{"1"}, []string{"users"}, false},
	}

	for _, tt := range tests {
		if got := overlaps(tt.a, tt.b); got != tt.want {
			t.Errorf("overlaps(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestNormalizePrunesEmpty(t *testing.T) {
	v, err := normalize(map[string]any{"a": map[string]any{}, "b": nil, "c": 1})
	if err != nil {
		t.Fatal(err)
	}

	m, ok := v.(map[string]any)
	if !ok || len(m) != 1 {
		t.Fatalf("expected only c to remain, got %v", v)
	}
}
