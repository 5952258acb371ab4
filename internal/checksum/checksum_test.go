package checksum

import (
	"testing"

	"github.com/starford/corkboard/internal/board"
)

func TestItemsNilEqualsEmpty(t *testing.T) {
	a, err := Items(nil)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := Items([]board.Item{})
	if a != b {
		t.Errorf("nil = %s, empty = %s", a, b)
	}
	if a != Sum([]byte("[]")) {
		t.Errorf("empty digest = %s, want digest of []", a)
	}
}

func TestItemsChangesWithContent(t *testing.T) {
	items := []board.Item{{
		ID:   "n1",
		Size: board.Size{Width: 10, Height: 10},
		Body: board.Note{Content: "a"},
	}}
	a, _ := Items(items)
	items[0].Body = board.Note{Content: "b"}
	b, _ := Items(items)
	if a == b {
		t.Error("digest did not change with content")
	}
}

func TestMatches(t *testing.T) {
	sum := "abc"
	cases := []struct {
		header string
		want   bool
	}{
		{`"abc"`, true},
		{`W/"abc"`, true},
		{`"x", "abc"`, true},
		{`*`, true},
		{`"abd"`, false},
		{``, false},
	}
	for _, c := range cases {
		if got := Matches(c.header, sum); got != c.want {
			t.Errorf("Matches(%q) = %v, want %v", c.header, got, c.want)
		}
	}
	if ETag(sum) != `"abc"` {
		t.Errorf("ETag = %s", ETag(sum))
	}
}
