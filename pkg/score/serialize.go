package score

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/0xfe/vf-musicxml-sub003/pkg/errors"
)

// Marshal serializes a score to indented JSON. Field order is fixed by the
// struct definitions, so identical scores marshal byte-identically.
func Marshal(s *Score) ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// Unmarshal deserializes JSON bytes to a validated score.
func Unmarshal(data []byte) (*Score, error) {
	var s Score
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode score JSON")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Read decodes a JSON score from r and validates it.
func Read(r io.Reader) (*Score, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Unmarshal(data)
}

// ReadFile loads a score fixture. The codec is chosen by extension:
// .yaml/.yml decode as YAML, everything else as JSON. Raw score markup is
// rejected; parsing it to the canonical model is the parser's job.
func ReadFile(path string) (*Score, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "score file %s", path)
	}
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml", ".musicxml", ".mxl":
		return nil, errors.New(errors.ErrCodeUnsupported,
			"%s is raw score markup; convert it to the canonical JSON or YAML model first", path)
	case ".yaml", ".yml":
		var s Score
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode score YAML %s", path)
		}
		if err := s.Validate(); err != nil {
			return nil, err
		}
		return &s, nil
	default:
		return Unmarshal(data)
	}
}

// WriteFile writes a score as indented JSON.
func WriteFile(s *Score, path string) error {
	data, err := Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
