package normalize

import (
	"reflect"
	"testing"
)

func TestLines(t *testing.T) {
	text := "First  item\r\n\r\n\tSecond\titem\r• Third item\n   \n"
	got := Lines(text)
	want := []string{"First item", "Second item", "- Third item"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Lines = %q, want %q", got, want)
	}
}

func TestLinesNoInternalNewlines(t *testing.T) {
	for _, line := range Lines("a\nb\r\nc\rd") {
		if len(line) == 0 {
			t.Error("empty line survived")
		}
		for _, r := range line {
			if r == '\n' || r == '\r' {
				t.Errorf("line %q contains a newline", line)
			}
		}
	}
}

func TestLinesBullets(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"• HW 3 due", "- HW 3 due"},
		{"* Quiz 2", "- Quiz 2"},
		{"– Project proposal", "- Project proposal"},
		{"no bullet here", "no bullet here"},
	}
	for _, tt := range tests {
		got := Lines(tt.in)
		if len(got) != 1 || got[0] != tt.want {
			t.Errorf("Lines(%q) = %q, want [%q]", tt.in, got, tt.want)
		}
	}
}

func TestDenoise(t *testing.T) {
	lines := []string{
		"Midterm exam Oct 12, Room 204",
		"CS 3500 Lecture, Zoom",
		"Final project due Dec 1 https://lms.example.edu/a/41",
		"Mon, Wed",
	}
	got := Denoise(lines)
	want := []string{
		"Midterm exam Oct 12",
		"Lecture",
		"Final project due Dec 1",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Denoise = %q, want %q", got, want)
	}
}

func TestDenoisePreservesContent(t *testing.T) {
	// Words containing noise substrings must survive whole-token anchoring.
	lines := []string{"Monday Night Lecture Series kickoff"}
	got := Denoise(lines)
	if len(got) != 1 || got[0] != "Monday Night Lecture Series kickoff" {
		t.Fatalf("legitimate content corrupted: %q", got)
	}
}

func TestJoin(t *testing.T) {
	if Join([]string{"a", "b"}) != "a\nb" {
		t.Fatal("join mismatch")
	}
}
