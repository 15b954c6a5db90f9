package runtime

import (
	"slices"
	"testing"
)

func TestDeclaredNames(t *testing.T) {
	cases := []struct {
		src  string
		want []string
	}{
		{"x := 1", []string{"x"}},
		{"a, _ := 1, 2", []string{"a"}},
		{"func sq(n int) int { return n * n }", []string{"sq"}},
		{"type T struct{}\nfunc (T) M() {}", []string{"T"}},
		{"const (\n\tA = 1\n\tB = 2\n)", []string{"A", "B"}},
		{"var w, h int", []string{"w", "h"}},
		{"import \"strings\"\nvar up = strings.ToUpper(\"a\")", []string{"up"}},
		{"fmt.Println(1)", nil},
		{"x := ", nil},
	}
	for _, tc := range cases {
		if got := declaredNames(tc.src); !slices.Equal(got, tc.want) {
			t.Fatalf("declaredNames(%q) = %v, want %v", tc.src, got, tc.want)
		}
	}
}
