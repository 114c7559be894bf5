package io

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/routegraph/pkg/errors"
)

// Format is a document encoding.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
	TOML Format = "toml"
)

// FormatFromPath picks the format by file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return JSON, nil
	case ".yaml", ".yml":
		return YAML, nil
	case ".toml":
		return TOML, nil
	}
	return "", errors.Invalid(errors.ErrCodeInvalidFormat, "path", path, "unsupported document extension (want .json, .yaml, .yml or .toml)")
}

// ParseFormat parses a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case JSON, YAML, TOML:
		return f, nil
	case "yml":
		return YAML, nil
	}
	return "", errors.Invalid(errors.ErrCodeInvalidFormat, "format", s, "unknown document format")
}

// Read decodes a document from r. Unknown fields are rejected.
// Read does not close r.
func Read(r io.Reader, f Format) (*Document, error) {
	var doc Document
	switch f {
	case JSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, decodeError(f, err)
		}
	case YAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil && err != io.EOF {
			return nil, decodeError(f, err)
		}
	case TOML:
		md, err := toml.NewDecoder(r).Decode(&doc)
		if err != nil {
			return nil, decodeError(f, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, errors.Invalid(errors.ErrCodeInvalidFormat, "document", undecoded[0].String(), "unknown field in toml document")
		}
	default:
		return nil, errors.Invalid(errors.ErrCodeInvalidFormat, "format", string(f), "unknown document format")
	}
	return &doc, nil
}

func decodeError(f Format, err error) error {
	if errors.IsValidation(err) {
		return err
	}
	return errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode %s document", f)
}

// ReadFile reads the document at path, picking the format by extension.
func ReadFile(path string) (*Document, error) {
	f, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()
	return Read(file, f)
}

// Write encodes doc to w.
func Write(w io.Writer, doc *Document, f Format) error {
	switch f {
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode: %w", err)
		}
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode: %w", err)
		}
		return enc.Close()
	case TOML:
		if err := toml.NewEncoder(w).Encode(doc); err != nil {
			return fmt.Errorf("encode: %w", err)
		}
	default:
		return errors.Invalid(errors.ErrCodeInvalidFormat, "format", string(f), "unknown document format")
	}
	return nil
}

// WriteFile writes doc to path in the format matching its extension.
func WriteFile(doc *Document, path string) error {
	f, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := Write(&buf, doc, f); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}
