package pathutil

import (
	"path/filepath"
	"testing"
)

func TestSegments(t *testing.T) {
	tests := []struct {
		name string
		path string
		want int
	}{
		{
			name: "root",
			path: string(filepath.Separator),
			want: 0,
		},
		{
			name: "single segment",
			path: filepath.Join(string(filepath.Separator), "tmp"),
			want: 1,
		},
		{
			name: "nested",
			path: filepath.Join(string(filepath.Separator), "tmp", "watch", "sample.txt"),
			want: 3,
		},
		{
			name: "trailing slash removed",
			path: filepath.Join(string(filepath.Separator), "tmp", "watch") + string(filepath.Separator),
			want: 2,
		},
		{
			name: "dot-dot normalised",
			path: filepath.Join(string(filepath.Separator), "tmp", "x", "..", "watch"),
			want: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Segments(tt.path); got != tt.want {
				t.Errorf("Segments(%q) = %d, want %d", tt.path, got, tt.want)
			}
		})
	}
}

func TestUnder(t *testing.T) {
	sep := string(filepath.Separator)
	base := filepath.Join(sep, "tmp", "watch")

	tests := []struct {
		name   string
		target string
		want   bool
	}{
		{"base itself", base, true},
		{"direct child", filepath.Join(base, "a.txt"), true},
		{"nested child", filepath.Join(base, "1", "2", "a.txt"), true},
		{"sibling", filepath.Join(sep, "tmp", "other"), false},
		{"prefix but not child", base + "2", false},
		{"parent", filepath.Join(sep, "tmp"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Under(base, tt.target); got != tt.want {
				t.Errorf("Under(%q, %q) = %v, want %v", base, tt.target, got, tt.want)
			}
		})
	}
}

func TestDepth(t *testing.T) {
	sep := string(filepath.Separator)
	root := filepath.Join(sep, "tmp", "watch")

	if got := Depth(root, root); got != 0 {
		t.Errorf("Depth(root, root) = %d, want 0", got)
	}
	if got := Depth(root, filepath.Join(root, "1")); got != 1 {
		t.Errorf("depth of direct child = %d, want 1", got)
	}
	if got := Depth(root, filepath.Join(root, "1", "2", "sample.txt")); got != 3 {
		t.Errorf("depth of nested file = %d, want 3", got)
	}
}

func TestCanonicalize(t *testing.T) {
	got, err := Canonicalize(filepath.Join(string(filepath.Separator), "tmp", "x", "..", "watch") + string(filepath.Separator))
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	want := filepath.Join(string(filepath.Separator), "tmp", "watch")
	if got != want {
		t.Errorf("Canonicalize = %q, want %q", got, want)
	}
}
