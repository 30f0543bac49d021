package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nstehr/eocatr-core/rules"
)

// document is the on-disk export format.
type document struct {
	Rules []rules.Record `json:"rules" yaml:"rules"`
}

// WriteFile exports recs to path as JSON when the extension is .json and as
// YAML otherwise.
func WriteFile(path string, recs []rules.Record) error {
	doc := document{Rules: recs}
	if doc.Rules == nil {
		doc.Rules = []rules.Record{}
	}

	var data []byte
	var err error
	if isJSON(path) {
		data, err = json.MarshalIndent(doc, "", "  ")
	} else {
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err = enc.Encode(doc); err == nil {
			err = enc.Close()
		}
		data = buf.Bytes()
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ReadFile imports a file written by WriteFile. YAML is a superset of JSON,
// so JSON files decode either way.
func ReadFile(path string) ([]rules.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var doc document
	if isJSON(path) {
		err = json.Unmarshal(data, &doc)
	} else {
		err = yaml.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return doc.Rules, nil
}

func isJSON(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}
