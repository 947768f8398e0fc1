// Package epub extracts chapter text from EPUB archives: container.xml is
// resolved to the package document, the spine gives the reading order and
// each XHTML document's visible text is written out as a numbered chapter
// file ready for translation.
package epub
