// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package yamlio provides strict YAML file reading and writing.
package yamlio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// ReadFileStrict reads the YAML file at filePath into v, rejecting unknown fields.
func ReadFileStrict(filePath string, v any) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	if err := UnmarshalStrict(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", filePath, err)
	}
	return nil
}

// WriteFile marshals v as YAML and writes it to filePath, creating the file if needed.
func WriteFile(filePath string, v any) (retErr error) {
	file, err := os.Create(filePath)
	if err != nil {
		return err
	}
	defer func() {
		retErr = errors.Join(retErr, file.Close())
	}()
	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(2)
	if err := encoder.Encode(v); err != nil {
		return err
	}
	return encoder.Close()
}

// UnmarshalStrict unmarshals the data as YAML with strict field checking.
//
// If the data length is 0, this is a no-op.
func UnmarshalStrict(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := NewDecoderStrict(bytes.NewReader(data)).Decode(v); err != nil {
		return fmt.Errorf("could not unmarshal as YAML: %w", err)
	}
	return nil
}

// NewDecoderStrict creates a new YAML decoder from the reader with strict field checking.
func NewDecoderStrict(reader io.Reader) *yaml.Decoder {
	yamlDecoder := yaml.NewDecoder(reader)
	// Reject unknown fields.
	yamlDecoder.KnownFields(true)
	return yamlDecoder
}
