// Package site renders translated chapter files into a static browsable
// site: a stylesheet with light and dark themes, an index page per book,
// chapter pages with prev/next navigation and a cross-book library index.
package site
