package site

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/sirupsen/logrus"

	"codeberg.org/ptrkv/fictionflow/internal"
	"codeberg.org/ptrkv/fictionflow/internal/validate"
)

// OutputDirName is the per-book site directory.
const OutputDirName = "docs"

// Generator renders translated chapters into a static, mobile-friendly site.
type Generator struct {
	translatedDir string
	marker        string
	log           *logrus.Logger
}

// NewGenerator creates a site generator. translatedDir is the per-book
// subdirectory holding the chapter text files.
func NewGenerator(translatedDir string, log *logrus.Logger) *Generator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Generator{
		translatedDir: translatedDir,
		marker:        validate.DefaultMarker,
		log:           log,
	}
}

// GenerateBook renders the book's chapters into bookDir/docs: a stylesheet,
// an index page and one page per chapter with prev/next navigation.
func (g *Generator) GenerateBook(bookDir string) error {
	srcDir := filepath.Join(bookDir, g.translatedDir)
	outDir := filepath.Join(bookDir, OutputDirName)

	chapters, err := listChapters(srcDir)
	if err != nil {
		return err
	}
	if len(chapters) == 0 {
		return fmt.Errorf("no translated chapters in %s", srcDir)
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("failed to create site directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(outDir, "style.css"), []byte(styleCSS), 0644); err != nil {
		return fmt.Errorf("failed to write stylesheet: %w", err)
	}

	if err := g.writeIndex(outDir, filepath.Base(bookDir), chapters); err != nil {
		return err
	}

	for i := range chapters {
		if err := g.writeChapter(srcDir, outDir, chapters, i); err != nil {
			return err
		}
	}

	g.log.WithFields(logrus.Fields{
		"book":     filepath.Base(bookDir),
		"chapters": len(chapters),
	}).Info("Site generated")
	return nil
}

// GenerateLibraryIndex writes a root index page linking every book that has
// a generated site, plus a copy of the stylesheet.
func (g *Generator) GenerateLibraryIndex(libraryDir string) error {
	entries, err := os.ReadDir(libraryDir)
	if err != nil {
		return fmt.Errorf("failed to read library directory: %w", err)
	}

	var books []indexEntry
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		indexPath := filepath.Join(libraryDir, entry.Name(), OutputDirName, "index.html")
		if _, err := os.Stat(indexPath); err != nil {
			continue
		}
		books = append(books, indexEntry{
			Href:  entry.Name() + "/" + OutputDirName + "/index.html",
			Title: bookTitle(entry.Name()),
		})
	}
	sort.Slice(books, func(i, j int) bool { return books[i].Title < books[j].Title })

	if err := os.WriteFile(filepath.Join(libraryDir, "style.css"), []byte(styleCSS), 0644); err != nil {
		return fmt.Errorf("failed to write stylesheet: %w", err)
	}

	data := indexData{
		Title:   "Library",
		Heading: "Library",
		Entries: books,
		Script:  template.HTML(themeScript),
	}
	return renderTo(filepath.Join(libraryDir, "index.html"), indexTemplate, data)
}

func (g *Generator) writeIndex(outDir, book string, chapters []int) error {
	entries := make([]indexEntry, 0, len(chapters))
	for _, number := range chapters {
		entries = append(entries, indexEntry{
			Href:  pageFilename(number),
			Title: fmt.Sprintf("Chapter %d", number),
		})
	}
	data := indexData{
		Title:   bookTitle(book),
		Heading: "Translated Chapters",
		Entries: entries,
		Script:  template.HTML(themeScript),
	}
	return renderTo(filepath.Join(outDir, "index.html"), indexTemplate, data)
}

func (g *Generator) writeChapter(srcDir, outDir string, chapters []int, i int) error {
	number := chapters[i]
	raw, err := os.ReadFile(filepath.Join(srcDir, internal.ChapterFilename(number)))
	if err != nil {
		return fmt.Errorf("failed to read chapter %d: %w", number, err)
	}

	// The completion marker is a pipeline artifact, not prose.
	text := strings.TrimSpace(strings.ReplaceAll(string(raw), g.marker, ""))

	data := chapterData{
		Title:   fmt.Sprintf("Chapter %d", number),
		Content: renderMarkdown(text),
		Script:  template.HTML(themeScript),
	}
	if i > 0 {
		data.Prev = pageFilename(chapters[i-1])
	}
	if i < len(chapters)-1 {
		data.Next = pageFilename(chapters[i+1])
	}

	return renderTo(filepath.Join(outDir, pageFilename(number)), chapterTemplate, data)
}

// renderMarkdown converts chapter text to HTML. Parser instances are not
// reusable across documents, so build one per call.
func renderMarkdown(text string) template.HTML {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	return template.HTML(markdown.ToHTML([]byte(text), p, renderer))
}

func renderTo(path string, tmpl *template.Template, data any) error {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("failed to render %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// listChapters returns the sorted ordinals of the translated chapter files.
func listChapters(dir string) ([]int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read translated chapters: %w", err)
	}

	var chapters []int
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		number, err := internal.ChapterNumber(entry.Name())
		if err != nil {
			continue
		}
		chapters = append(chapters, number)
	}
	sort.Ints(chapters)
	return chapters, nil
}

func pageFilename(number int) string {
	return fmt.Sprintf("chapter_%03d.html", number)
}

// bookTitle turns a directory name like "martial-world" into "Martial World".
func bookTitle(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool {
		return r == '-' || r == '_'
	})
	for i, w := range words {
		// First rune, not first byte: CJK directory names stay intact.
		r, size := utf8.DecodeRuneInString(w)
		words[i] = strings.ToUpper(string(r)) + w[size:]
	}
	if len(words) == 0 {
		return name
	}
	return strings.Join(words, " ")
}
