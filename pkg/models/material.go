package models

import (
	"regexp"
	"strings"
)

// Source identifies which upstream catalog a material came from.
type Source string

const (
	SourceStudyX          Source = "StudyX"
	SourceDotNotes        Source = "DotNotes"
	SourceFifteenFourteen Source = "FifteenFourteen"
)

// Sources lists every catalog in merge order.
var Sources = []Source{SourceStudyX, SourceDotNotes, SourceFifteenFourteen}

// Category is the fixed classification of a material.
type Category string

const (
	CategoryNotes    Category = "notes"
	CategoryPYQs     Category = "pyqs"
	CategoryBooks    Category = "books"
	CategoryLab      Category = "lab"
	CategoryAkash    Category = "akash"
	CategorySyllabus Category = "syllabus"
	CategoryVideos   Category = "videos"
)

// Categories is the display order used everywhere a full set is built.
var Categories = []Category{
	CategoryNotes,
	CategoryPYQs,
	CategoryBooks,
	CategoryLab,
	CategoryAkash,
	CategorySyllabus,
	CategoryVideos,
}

// ParseCategory maps a catalog folder name onto a Category.
// Folders outside the fixed set (viva, midsem, ...) report false.
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Categories {
		if c == known {
			return c, true
		}
	}
	return "", false
}

// Title is the human label of a category, used when synthesizing names.
func (c Category) Title() string {
	switch c {
	case CategoryPYQs:
		return "PYQs"
	case CategoryLab:
		return "Lab"
	default:
		s := string(c)
		if s == "" {
			return "Material"
		}
		return strings.ToUpper(s[:1]) + s[1:]
	}
}

// Material is the normalized form of a single downloadable file.
//
// Every catalog is mapped into this structure at the loader boundary;
// catalog-specific field names never leak past it.
type Material struct {
	Name        string `json:"name,omitempty"`
	ID          string `json:"id,omitempty"`
	DownloadURL string `json:"downloadUrl"`
	PreviewURL  string `json:"previewUrl,omitempty"`
	WebViewURL  string `json:"webViewUrl,omitempty"`
	Source      Source `json:"source,omitempty"`
}

var driveIDPattern = regexp.MustCompile(`[?&]id=([a-zA-Z0-9_-]+)`)

// ExtractFileID pulls the Drive file id out of a download URL.
func ExtractFileID(downloadURL string) string {
	m := driveIDPattern.FindStringSubmatch(downloadURL)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

// FileID returns the explicit id, falling back to the one in the download URL.
func (m Material) FileID() string {
	if m.ID != "" {
		return m.ID
	}
	return ExtractFileID(m.DownloadURL)
}

// DisplayName returns the name, or one synthesized from the file id.
func (m Material) DisplayName() string {
	if m.Name != "" {
		return m.Name
	}
	id := m.FileID()
	if id == "" {
		return "Untitled Document.pdf"
	}
	if len(id) > 8 {
		id = id[:8]
	}
	return "Document_" + id + ".pdf"
}

// PreviewLink is the URL used for inline viewing.
func (m Material) PreviewLink() string {
	if m.PreviewURL != "" {
		return m.PreviewURL
	}
	return "https://drive.google.com/file/d/" + m.FileID() + "/preview"
}

// WebViewLink is the URL used for the "open in source" action.
func (m Material) WebViewLink() string {
	if m.WebViewURL != "" {
		return m.WebViewURL
	}
	return "https://drive.google.com/file/d/" + m.FileID() + "/view"
}

// IsPDF reports whether the display name looks like a PDF.
func (m Material) IsPDF() bool {
	return strings.HasSuffix(strings.ToLower(m.DisplayName()), ".pdf")
}

// Normalize fills the synthesized id and name so consumers never
// see a material without either.
func (m Material) Normalize() Material {
	if m.ID == "" {
		m.ID = ExtractFileID(m.DownloadURL)
	}
	if m.Name == "" {
		m.Name = m.DisplayName()
	}
	return m
}

// MaterialSet groups materials per category for one subject.
type MaterialSet map[Category][]Material

// NewMaterialSet returns a set with every category present and empty.
func NewMaterialSet() MaterialSet {
	set := make(MaterialSet, len(Categories))
	for _, c := range Categories {
		set[c] = []Material{}
	}
	return set
}

// Total counts materials across all categories.
func (s MaterialSet) Total() int {
	n := 0
	for _, items := range s {
		n += len(items)
	}
	return n
}
