package analyzer

import (
	"bufio"
	"os"
	"regexp"
	"strings"
	"unicode"
)

// DefaultMaxKeywords caps the number of keywords handed to news search.
const DefaultMaxKeywords = 6

var (
	tickerPattern    = regexp.MustCompile(`\b[A-Z]{1,5}\b`)
	properPattern    = regexp.MustCompile(`\b[A-Z][a-z]{2,}\b`)
	qualifierPattern = regexp.MustCompile(`(?i)\b(Q[1-4]|\d{4}|\d+%|bps|YoY)\b`)
)

// KeywordExtractor pulls ticker-like tokens, proper nouns and financial
// qualifiers (Q3, 2025, bps) out of a claim to narrow an online news query.
type KeywordExtractor struct {
	symbols   map[string]struct{}
	stopwords map[string]struct{}
	max       int
}

func NewKeywordExtractor(symbols []string, max int) *KeywordExtractor {
	if max <= 0 {
		max = DefaultMaxKeywords
	}
	set := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		if s = normalizeSymbol(s); s != "" {
			set[s] = struct{}{}
		}
	}
	return &KeywordExtractor{
		symbols:   set,
		stopwords: defaultStopwords(),
		max:       max,
	}
}

// Extract returns keywords in order of first appearance, deduplicated
// case-insensitively.
func (k *KeywordExtractor) Extract(text string) []string {
	var candidates []string

	for _, tok := range tickerPattern.FindAllString(text, -1) {
		if _, known := k.symbols[tok]; known || len(tok) >= 2 {
			candidates = append(candidates, tok)
		}
	}

	for _, tok := range properPattern.FindAllString(text, -1) {
		if _, stop := k.stopwords[strings.ToLower(tok)]; !stop {
			candidates = append(candidates, tok)
		}
	}

	for _, m := range qualifierPattern.FindAllStringSubmatch(text, -1) {
		candidates = append(candidates, m[1])
	}

	seen := make(map[string]struct{}, len(candidates))
	keywords := make([]string, 0, k.max)
	for _, c := range candidates {
		key := strings.ToUpper(c)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keywords = append(keywords, c)
		if len(keywords) == k.max {
			break
		}
	}
	return keywords
}

// LoadSymbols reads a ticker list, one symbol per line. A missing file
// yields an empty list; blank lines and lines starting with # are ignored.
func LoadSymbols(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var symbols []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if s := normalizeSymbol(line); s != "" {
			symbols = append(symbols, s)
		}
	}
	return symbols, scanner.Err()
}

// normalizeSymbol uppercases s and returns "" unless it is 1-6 letters.
func normalizeSymbol(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) < 1 || len(s) > 6 {
		return ""
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return ""
		}
	}
	return s
}

func defaultStopwords() map[string]struct{} {
	stops := []string{
		"the", "a", "an", "and", "or", "to", "of", "in", "on",
		"by", "for", "with", "at", "from", "is", "are", "was",
		"were", "this", "that", "it", "as", "about",
	}
	m := make(map[string]struct{}, len(stops))
	for _, s := range stops {
		m[s] = struct{}{}
	}
	return m
}
