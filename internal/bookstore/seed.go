package bookstore

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sanonone/shelfdb/pkg/core"
)

//go:embed books.yaml
var defaultSeed []byte

// LoadSeed reads the seed documents from path, or the embedded book list
// when path is empty.
func LoadSeed(path string) ([]core.Document, error) {
	if path == "" {
		return DecodeSeed(bytes.NewReader(defaultSeed))
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open seed file: %w", err)
	}
	defer file.Close()

	return DecodeSeed(file)
}

// DecodeSeed decodes a YAML sequence of mappings into documents.
func DecodeSeed(r io.Reader) ([]core.Document, error) {
	var raw []map[string]any
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil && err != io.EOF {
		return nil, fmt.Errorf("YAML syntax error in seed: %w", err)
	}

	docs := make([]core.Document, 0, len(raw))
	for i, m := range raw {
		doc := core.Document(m)
		if err := doc.Validate(); err != nil {
			return nil, fmt.Errorf("seed document %d: %w", i, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
