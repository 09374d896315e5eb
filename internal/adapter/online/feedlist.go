package online

import (
	"bufio"
	"os"
	"strings"
)

// LoadFeedList reads feed URLs, one per line, from each existing file.
// Missing files are skipped; blank lines and # comments are ignored.
func LoadFeedList(paths ...string) ([]string, error) {
	var feeds []string
	for _, path := range paths {
		lines, err := readLines(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		feeds = append(feeds, lines...)
	}
	return feeds, nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines, scanner.Err()
}
