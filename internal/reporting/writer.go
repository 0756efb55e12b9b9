package reporting

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteFiles writes floor_prices.csv and FLOOR_PRICE_REPORT.md into dir,
// creating it if needed. Returns the written paths.
func WriteFiles(dir string, r *Report) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	files := []struct {
		name    string
		content string
	}{
		{CSVFileName, RenderCSV(r.Estimates)},
		{MarkdownFileName, RenderMarkdown(r)},
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := os.WriteFile(path, []byte(f.content), 0644); err != nil {
			return paths, fmt.Errorf("write %s: %w", f.name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
