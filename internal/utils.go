package internal

import (
	"fmt"
	"strconv"
	"strings"
)

// ChapterFilename returns the canonical filename for a chapter number.
// Format: chapter_NNN.txt (zero-padded to three digits).
func ChapterFilename(number int) string {
	return fmt.Sprintf("chapter_%03d.txt", number)
}

// ChapterNumber extracts the chapter ordinal from a filename following the
// chapter_NNN.txt convention. Returns an error for anything else so that
// stray files in a chapter directory are skipped rather than processed.
func ChapterNumber(filename string) (int, error) {
	name := strings.TrimSuffix(filename, ".txt")
	if name == filename {
		return 0, fmt.Errorf("not a chapter file: %s", filename)
	}

	parts := strings.Split(name, "_")
	if len(parts) < 2 {
		return 0, fmt.Errorf("no chapter number in filename: %s", filename)
	}

	number, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid chapter number in %s: %w", filename, err)
	}

	return number, nil
}
