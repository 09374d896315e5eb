package chunker

import (
	"path/filepath"
	"strings"
	"time"

	"fincheck/internal/domain"
)

const maxHeaderLines = 20

// ParseHeader reads leading "key: value" lines. A blank line ends the header
// and is consumed; any other line without a colon ends the header and
// belongs to the body.
func ParseHeader(text string) (map[string]string, string) {
	meta := make(map[string]string)
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	bodyStart := 0
	for i, line := range lines {
		if i >= maxHeaderLines {
			break
		}
		if strings.TrimSpace(line) == "" {
			bodyStart = i + 1
			break
		}
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			break
		}
		meta[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(val)
		bodyStart = i + 1
	}

	body := strings.TrimSpace(strings.Join(lines[bodyStart:], "\n"))
	return meta, body
}

// NewDocument parses a raw corpus file into a Document.
func NewDocument(id, path string, modTime time.Time, raw string) domain.Document {
	meta, body := ParseHeader(strings.TrimSpace(raw))

	source := meta["source"]
	if source == "" {
		source = filepath.Base(path)
	}
	publishDate := meta["date"]
	if publishDate == "" {
		publishDate = meta["publish_date"]
	}

	return domain.Document{
		ID:          id,
		Path:        path,
		Source:      source,
		Title:       meta["title"],
		PublishDate: publishDate,
		URL:         meta["url"],
		Body:        body,
		ModTime:     modTime,
	}
}
