package feeder

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// NewLineFeeder reads one row per non-blank line.
func NewLineFeeder(path string) (*SliceFeeder, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input file: %w", err)
	}
	defer file.Close()

	var rows []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\ufeff"))
		if line == "" {
			continue
		}
		rows = append(rows, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read input file: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("input file has no rows")
	}
	return NewSliceFeeder(rows), nil
}
