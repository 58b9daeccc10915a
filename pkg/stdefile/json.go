package stdefile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ha1tch/webstde/pkg/stde"
)

// ParseJSON decodes and validates an exported diagram. Unknown fields are
// rejected so that typos in hand-edited files surface early.
func ParseJSON(data []byte) (*stde.StateMachine, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var doc stde.Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode diagram: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("decode diagram: trailing data after document")
	}
	return stde.FromDocument(&doc)
}

// ToJSON converts a machine to its JSON document.
func ToJSON(m *stde.StateMachine, pretty bool) ([]byte, error) {
	doc, err := m.Serialize()
	if err != nil {
		return nil, err
	}
	if pretty {
		return json.MarshalIndent(doc, "", "  ")
	}
	return json.Marshal(doc)
}

// ReadFile loads a diagram from a JSON file.
func ReadFile(path string) (*stde.StateMachine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := ParseJSON(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// WriteFile writes a diagram to a JSON file.
func WriteFile(path string, m *stde.StateMachine, pretty bool) error {
	data, err := ToJSON(m, pretty)
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}
