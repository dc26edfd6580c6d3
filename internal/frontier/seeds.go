package frontier

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// ParseSeeds reads newline-delimited identifiers. Blank lines and lines
// starting with '#' are ignored; duplicates keep their first position.
func ParseSeeds(r io.Reader) ([]string, error) {
	var seeds []string
	seen := make(map[string]struct{})
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		seeds = append(seeds, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read seeds: %w", err)
	}
	return seeds, nil
}
