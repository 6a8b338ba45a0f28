package tokenz

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Codec decodes a watched payload.
type Codec interface {
	// Decode parses data into v.
	Decode(data []byte, v any) error

	// ContentType returns the MIME type, for signals and debugging.
	ContentType() string
}

// JSONCodec decodes JSON. When Strict is set, unknown fields are
// rejected.
type JSONCodec struct {
	Strict bool
}

// Decode parses data as a single JSON value.
func (c JSONCodec) Decode(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if c.Strict {
		dec.DisallowUnknownFields()
	}
	return dec.Decode(v)
}

// ContentType returns the JSON MIME type.
func (JSONCodec) ContentType() string {
	return "application/json"
}

// YAMLCodec decodes YAML with gopkg.in/yaml.v3. When Strict is set,
// unknown fields are rejected.
type YAMLCodec struct {
	Strict bool
}

// Decode parses the first YAML document in data. An empty payload
// decodes to the zero value.
func (c YAMLCodec) Decode(data []byte, v any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(c.Strict)
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ContentType returns the YAML MIME type.
func (YAMLCodec) ContentType() string {
	return "application/x-yaml"
}

// CodecFor picks a codec from the extension of path.
func CodecFor(path string) (Codec, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return JSONCodec{}, nil
	case ".yaml", ".yml":
		return YAMLCodec{}, nil
	default:
		return nil, fmt.Errorf("tokenz: no codec for %q", path)
	}
}

var (
	_ Codec = JSONCodec{}
	_ Codec = YAMLCodec{}
)
