package internal

import "testing"

func TestChapterFilename(t *testing.T) {
	cases := map[int]string{
		1:    "chapter_001.txt",
		42:   "chapter_042.txt",
		123:  "chapter_123.txt",
		1000: "chapter_1000.txt",
	}
	for number, want := range cases {
		if got := ChapterFilename(number); got != want {
			t.Errorf("ChapterFilename(%d) = %q, want %q", number, got, want)
		}
	}
}

func TestChapterNumber(t *testing.T) {
	valid := map[string]int{
		"chapter_001.txt":  1,
		"chapter_042.txt":  42,
		"chapter_1000.txt": 1000,
	}
	for filename, want := range valid {
		got, err := ChapterNumber(filename)
		if err != nil {
			t.Errorf("ChapterNumber(%q) failed: %v", filename, err)
			continue
		}
		if got != want {
			t.Errorf("ChapterNumber(%q) = %d, want %d", filename, got, want)
		}
	}

	invalid := []string{
		"notes.txt",
		"chapter_abc.txt",
		"chapter_001.html",
		"cover.jpg",
		"chapter.txt",
	}
	for _, filename := range invalid {
		if _, err := ChapterNumber(filename); err == nil {
			t.Errorf("ChapterNumber(%q) should fail", filename)
		}
	}
}
