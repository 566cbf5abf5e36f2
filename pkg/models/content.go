package models

// Syllabus maps a unit label ("Unit 1", ...) onto its text.
type Syllabus map[string]string

// VideoDescriptor describes one embeddable lecture video or playlist.
type VideoDescriptor struct {
	Title        string `json:"title"`
	Author       string `json:"author,omitempty"`
	EmbedURL     string `json:"embedUrl,omitempty"`
	PlaylistURL  string `json:"playlistUrl,omitempty"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
}
