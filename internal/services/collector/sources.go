package collector

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// ReadSources loads the data source URL list, one URL per line. Blank lines
// and lines starting with # are skipped.
func ReadSources(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sources file %s: %w", path, err)
	}
	defer file.Close()

	urls := []string{}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sources file %s: %w", path, err)
	}

	return urls, nil
}
