package epub

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"

	"codeberg.org/ptrkv/fictionflow/internal"
)

// minChapterRunes filters out covers, title pages and tables of contents.
const minChapterRunes = 100

type container struct {
	XMLName   xml.Name `xml:"container"`
	Rootfiles []struct {
		FullPath  string `xml:"full-path,attr"`
		MediaType string `xml:"media-type,attr"`
	} `xml:"rootfiles>rootfile"`
}

type packageDoc struct {
	XMLName  xml.Name `xml:"package"`
	Manifest manifest `xml:"manifest"`
	Spine    spine    `xml:"spine"`
}

type manifest struct {
	Items []manifestItem `xml:"item"`
}

type manifestItem struct {
	ID        string `xml:"id,attr"`
	Href      string `xml:"href,attr"`
	MediaType string `xml:"media-type,attr"`
}

type spine struct {
	ItemRefs []itemRef `xml:"itemref"`
}

type itemRef struct {
	IDRef string `xml:"idref,attr"`
}

// Extract pulls the readable chapters out of an EPUB in spine order and
// writes them to outDir as sequentially numbered text files. Documents
// shorter than minChapterRunes are skipped. Returns the chapter count.
func Extract(epubPath, outDir string, log *logrus.Logger) (int, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	reader, err := zip.OpenReader(epubPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open EPUB: %w", err)
	}
	defer reader.Close()

	files := make(map[string]*zip.File, len(reader.File))
	for _, f := range reader.File {
		files[path.Clean(f.Name)] = f
	}

	opfPath, err := rootfilePath(files)
	if err != nil {
		return 0, err
	}

	var pkg packageDoc
	if err := readXML(files, opfPath, &pkg); err != nil {
		return 0, fmt.Errorf("failed to parse package document: %w", err)
	}

	hrefByID := make(map[string]string, len(pkg.Manifest.Items))
	for _, item := range pkg.Manifest.Items {
		hrefByID[item.ID] = item.Href
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create output directory: %w", err)
	}

	baseDir := path.Dir(opfPath)
	count := 0
	for _, ref := range pkg.Spine.ItemRefs {
		href, ok := hrefByID[ref.IDRef]
		if !ok {
			log.Debugf("Spine references unknown manifest id %s", ref.IDRef)
			continue
		}

		docPath := path.Clean(path.Join(baseDir, href))
		file, ok := files[docPath]
		if !ok {
			log.Warnf("Spine document %s missing from archive", docPath)
			continue
		}

		text, err := documentText(file)
		if err != nil {
			log.Warnf("Failed to extract %s: %v", docPath, err)
			continue
		}
		if utf8.RuneCountInString(text) < minChapterRunes {
			continue
		}

		count++
		outPath := filepath.Join(outDir, internal.ChapterFilename(count))
		if err := os.WriteFile(outPath, []byte(text), 0644); err != nil {
			return count, fmt.Errorf("failed to write chapter %d: %w", count, err)
		}
		log.WithField("chapter", count).Debugf("Extracted %s", docPath)
	}

	log.Infof("Extracted %d chapters to %s", count, outDir)
	return count, nil
}

// rootfilePath resolves META-INF/container.xml to the OPF location.
func rootfilePath(files map[string]*zip.File) (string, error) {
	var c container
	if err := readXML(files, "META-INF/container.xml", &c); err != nil {
		return "", fmt.Errorf("failed to parse container.xml: %w", err)
	}
	for _, rf := range c.Rootfiles {
		if rf.FullPath != "" {
			return path.Clean(rf.FullPath), nil
		}
	}
	return "", fmt.Errorf("container.xml declares no rootfile")
}

func readXML(files map[string]*zip.File, name string, v any) error {
	file, ok := files[path.Clean(name)]
	if !ok {
		return fmt.Errorf("%s not found in archive", name)
	}
	rc, err := file.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	return xml.NewDecoder(rc).Decode(v)
}

// documentText extracts the visible text of one XHTML document, with block
// elements separated by blank lines.
func documentText(file *zip.File) (string, error) {
	rc, err := file.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}
	doc, err := html.Parse(strings.NewReader(string(data)))
	if err != nil {
		return "", err
	}

	var paragraphs []string
	var current strings.Builder

	flush := func() {
		if text := strings.TrimSpace(current.String()); text != "" {
			paragraphs = append(paragraphs, text)
		}
		current.Reset()
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "head":
				return
			case "br":
				flush()
				return
			}
		}
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				if current.Len() > 0 {
					current.WriteString(" ")
				}
				current.WriteString(text)
			}
		}

		block := n.Type == html.ElementNode && isBlock(n.Data)
		if block {
			flush()
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			flush()
		}
	}
	walk(doc)
	flush()

	return strings.Join(paragraphs, "\n\n"), nil
}

func isBlock(tag string) bool {
	switch tag {
	case "p", "div", "h1", "h2", "h3", "h4", "h5", "h6",
		"li", "blockquote", "section", "article", "tr":
		return true
	}
	return false
}
