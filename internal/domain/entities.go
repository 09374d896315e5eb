package domain

import "time"

// Verdict labels the model is asked to choose from.
const (
	VerdictTrue         = "True"
	VerdictFalse        = "False"
	VerdictMisleading   = "Misleading"
	VerdictUnverifiable = "Unverifiable"
)

// Chat roles stored in session history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Document is a raw corpus file after header parsing.
type Document struct {
	ID          string
	Path        string
	Source      string
	Title       string
	PublishDate string
	URL         string
	Body        string
	ModTime     time.Time
}

// Chunk is one word window of a document body. It doubles as the metadata
// record stored at the same position as its embedding.
type Chunk struct {
	Source      string `json:"source"`
	Title       string `json:"title,omitempty"`
	PublishDate string `json:"publish_date,omitempty"`
	URL         string `json:"url,omitempty"`
	ChunkIndex  int    `json:"chunk_index"`
	Text        string `json:"text"`
}

// Index is the persisted similarity index: Vectors[i] embeds Metadata[i].
type Index struct {
	Model     string
	Dimension int
	ChunkSize int
	Overlap   int
	BuiltAt   time.Time
	Vectors   [][]float32
	Metadata  []Chunk
}

func (i *Index) Len() int {
	return len(i.Vectors)
}

// EvidenceItem is a retrieval result, local or online.
type EvidenceItem struct {
	Text       string  `json:"text"`
	Source     string  `json:"source"`
	ChunkIndex *int    `json:"chunk_index"`
	Score      float64 `json:"score"`
	URL        string  `json:"url,omitempty"`
	Title      string  `json:"title,omitempty"`
	Published  string  `json:"published,omitempty"`
}

// VerdictResult is the structured verdict for one claim.
type VerdictResult struct {
	Verdict    string   `json:"verdict"`
	Confidence float64  `json:"confidence"`
	Reasoning  string   `json:"reasoning"`
	Citations  []string `json:"citations"`
}

type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatResult struct {
	Answer    string   `json:"answer"`
	Citations []string `json:"citations"`
}

// Article is a candidate fetched from an online source before ranking.
type Article struct {
	Title     string
	URL       string
	Source    string
	Published string
	Text      string
}
