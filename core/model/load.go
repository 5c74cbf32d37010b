package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadRequest reads a request document from a JSON or YAML file.
func LoadRequest(path string) (Request, error) {
	f, err := os.Open(path)
	if err != nil {
		return Request{}, err
	}
	defer func() { _ = f.Close() }()
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	req, err := DecodeRequest(f, format)
	if err != nil {
		return Request{}, fmt.Errorf("%s: %w", path, err)
	}
	return req, nil
}

// DecodeRequest reads a request document in the given format ("json",
// "yaml" or "yml"). YAML documents are converted to JSON first so both
// formats share the JSON field names and decoding rules.
func DecodeRequest(r io.Reader, format string) (Request, error) {
	var req Request
	switch strings.ToLower(format) {
	case "json":
		dec := json.NewDecoder(r)
		if err := dec.Decode(&req); err != nil {
			return req, fmt.Errorf("decode request: %w", err)
		}
	case "yaml", "yml":
		data, err := yamlToJSON(r)
		if err != nil {
			return req, err
		}
		if err := json.Unmarshal(data, &req); err != nil {
			return req, fmt.Errorf("decode request: %w", err)
		}
	default:
		return req, fmt.Errorf("unsupported request format: %q", format)
	}
	return req, nil
}

// YAMLToJSON converts a YAML document into its JSON form.
func YAMLToJSON(data []byte) ([]byte, error) {
	return yamlToJSON(bytes.NewReader(data))
}

func yamlToJSON(r io.Reader) ([]byte, error) {
	var doc any
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("convert yaml: %w", err)
	}
	return data, nil
}
