package chunker

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"fincheck/internal/domain"
)

func words(n int) string {
	w := make([]string, n)
	for i := range w {
		w[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(w, " ")
}

func TestWordChunkerBasic(t *testing.T) {
	chunker := NewWordChunker(4, 1)

	doc := domain.Document{
		ID:     "doc1",
		Source: "Reuters",
		Title:  "Earnings",
		URL:    "https://reuters.com/x",
		Body:   words(10),
	}

	chunks := chunker.Chunk(doc)

	// stride 3: starts at 0, 3, 6, 9
	if len(chunks) != 4 {
		t.Fatalf("expected 4 chunks, got %d", len(chunks))
	}
	if chunks[0].Text != "w0 w1 w2 w3" {
		t.Errorf("unexpected first chunk %q", chunks[0].Text)
	}
	if chunks[3].Text != "w9" {
		t.Errorf("expected short final window, got %q", chunks[3].Text)
	}

	for i, chunk := range chunks {
		if chunk.ChunkIndex != i {
			t.Errorf("chunk %d has index %d", i, chunk.ChunkIndex)
		}
		if chunk.Source != "Reuters" || chunk.Title != "Earnings" || chunk.URL != "https://reuters.com/x" {
			t.Errorf("chunk %d lost document metadata: %+v", i, chunk)
		}
	}
}

func TestWordChunkerDeterministic(t *testing.T) {
	chunker := NewWordChunker(7, 3)
	doc := domain.Document{Source: "s", Body: words(53)}

	first := chunker.Chunk(doc)
	second := chunker.Chunk(doc)

	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}

func TestWordChunkerCoverage(t *testing.T) {
	chunker := NewWordChunker(5, 2)
	body := words(23)
	windows := chunker.Split(body)

	// Rebuild the word sequence by dropping the overlapped prefix of every
	// window after the first.
	var rebuilt []string
	stride := chunker.Stride()
	for i, w := range windows {
		ws := strings.Fields(w)
		if i == 0 {
			rebuilt = append(rebuilt, ws...)
			continue
		}
		covered := len(rebuilt) - i*stride
		if covered < len(ws) {
			rebuilt = append(rebuilt, ws[covered:]...)
		}
	}

	if strings.Join(rebuilt, " ") != body {
		t.Errorf("windows do not reconstruct body:\n got %q\nwant %q", strings.Join(rebuilt, " "), body)
	}
}

func TestWordChunkerOverlapAtLeastChunkSize(t *testing.T) {
	chunker := NewWordChunker(3, 5)

	if chunker.Stride() != 1 {
		t.Fatalf("expected stride 1, got %d", chunker.Stride())
	}

	windows := chunker.Split("a b c d")
	expected := []string{"a b c", "b c d", "c d", "d"}
	if len(windows) != len(expected) {
		t.Fatalf("expected %d windows, got %d: %v", len(expected), len(windows), windows)
	}
	for i := range expected {
		if windows[i] != expected[i] {
			t.Errorf("window %d: expected %q, got %q", i, expected[i], windows[i])
		}
	}
}

func TestWordChunkerEmptyContent(t *testing.T) {
	chunker := NewWordChunker(50, 10)

	chunks := chunker.Chunk(domain.Document{ID: "doc1", Body: "   \n\t "})
	if len(chunks) != 0 {
		t.Errorf("expected 0 chunks for blank body, got %d", len(chunks))
	}
}

func TestWordChunkerShortBody(t *testing.T) {
	chunker := NewWordChunker(200, 40)

	chunks := chunker.Chunk(domain.Document{Body: "Tesla  reported\nrecord deliveries"})
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != "Tesla reported record deliveries" {
		t.Errorf("unexpected text %q", chunks[0].Text)
	}
}

func TestParseHeader(t *testing.T) {
	raw := "Title: Q3 results\nSOURCE: Reuters\ndate: 2025-10-21\nurl: https://www.reuters.com/a\n\nApple beat estimates.\nMore text."

	meta, body := ParseHeader(raw)

	if meta["title"] != "Q3 results" {
		t.Errorf("expected lowercased title key, got %v", meta)
	}
	if meta["source"] != "Reuters" {
		t.Errorf("expected source Reuters, got %q", meta["source"])
	}
	if meta["url"] != "https://www.reuters.com/a" {
		t.Errorf("url value should keep its colons, got %q", meta["url"])
	}
	if body != "Apple beat estimates.\nMore text." {
		t.Errorf("unexpected body %q", body)
	}
}

func TestParseHeaderStopsAtPlainLine(t *testing.T) {
	raw := "source: SEC\nThis line has no separator\nsecond: line"

	meta, body := ParseHeader(raw)

	if len(meta) != 1 {
		t.Errorf("expected one header field, got %v", meta)
	}
	if body != "This line has no separator\nsecond: line" {
		t.Errorf("unexpected body %q", body)
	}
}

func TestParseHeaderScanLimit(t *testing.T) {
	var lines []string
	for i := 0; i < 25; i++ {
		lines = append(lines, fmt.Sprintf("k%d: v%d", i, i))
	}

	meta, body := ParseHeader(strings.Join(lines, "\n"))

	if len(meta) != maxHeaderLines {
		t.Errorf("expected %d header fields, got %d", maxHeaderLines, len(meta))
	}
	if !strings.HasPrefix(body, "k20: v20") {
		t.Errorf("expected body to start after the scan limit, got %q", body)
	}
}

func TestNewDocumentFallbacks(t *testing.T) {
	doc := NewDocument("id", "/corpus/apple_q3.txt", time.Time{}, "publish_date: 2025-01-02\n\nBody text")

	if doc.Source != "apple_q3.txt" {
		t.Errorf("expected file name as source, got %q", doc.Source)
	}
	if doc.PublishDate != "2025-01-02" {
		t.Errorf("expected publish_date fallback, got %q", doc.PublishDate)
	}
	if doc.Body != "Body text" {
		t.Errorf("unexpected body %q", doc.Body)
	}

	doc = NewDocument("id", "/corpus/x.txt", time.Time{}, "date: 2024\npublish_date: 2025\n\nBody")
	if doc.PublishDate != "2024" {
		t.Errorf("date should win over publish_date, got %q", doc.PublishDate)
	}
}

func TestNewDocumentHeaderOnly(t *testing.T) {
	doc := NewDocument("id", "/corpus/x.txt", time.Time{}, "title: only a header\nsource: AP\n")
	if doc.Body != "" {
		t.Errorf("expected empty body, got %q", doc.Body)
	}
}
