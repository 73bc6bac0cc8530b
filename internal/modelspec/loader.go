package modelspec

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML spec on top of Default().
// KnownFields(true): 오타/미사용 필드 즉시 실패
func Load(path string) (*Spec, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model spec: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML bytes on top of Default() and validates the result
func Parse(data []byte) (*Spec, error) {
	spec := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(spec); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode model spec: %w", err)
	}

	if err := Validate(spec); err != nil {
		return nil, err
	}

	return spec, nil
}

// Hash returns the SHA256 of the canonical JSON form of the spec
func Hash(spec *Spec) (string, error) {
	jsonBytes, err := json.Marshal(spec)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}
