package paperdoc

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	ErrInvalidDocument = errors.New("paperdoc: invalid document")
	ErrFileRead        = errors.New("paperdoc: file read failure")
)

//go:embed schema/document.schema.json
var documentSchemaJSON string

var documentSchema = jsonschema.MustCompileString("document.schema.json", documentSchemaJSON)

// Serialize encodes doc as indented JSON. A document without a version is
// written with the current one so that it can be read back. Scene payloads
// are written as given, without HTML escaping.
func Serialize(doc Document) ([]byte, error) {
	if strings.TrimSpace(doc.Version) == "" {
		doc.Version = Version
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("paperdoc: encode: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Deserialize decodes a serialized document. Any failure, including a
// missing version marker, is reported as ErrInvalidDocument.
func Deserialize(data []byte) (Document, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return Document{}, fmt.Errorf("%w: top level is not an object", ErrInvalidDocument)
	}
	if v, _ := obj["version"].(string); strings.TrimSpace(v) == "" {
		return Document{}, fmt.Errorf("%w: missing version", ErrInvalidDocument)
	}
	if err := documentSchema.Validate(raw); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	doc.Scene = CompactScene(doc.Scene)
	return doc, nil
}

// CompactScene returns s with every raw payload in compact form, the form
// Deserialize produces. Payloads that are not valid JSON are kept as is.
func CompactScene(s Scene) Scene {
	out := Scene{Elements: compactAll(s.Elements)}
	out.AppState = compactMap(s.AppState)
	out.Files = compactMap(s.Files)
	return out
}

func compactAll(in []json.RawMessage) []json.RawMessage {
	if in == nil {
		return nil
	}
	out := make([]json.RawMessage, len(in))
	for i, e := range in {
		out[i] = compactRaw(e)
	}
	return out
}

func compactMap(in map[string]json.RawMessage) map[string]json.RawMessage {
	if in == nil {
		return nil
	}
	out := make(map[string]json.RawMessage, len(in))
	for k, v := range in {
		out[k] = compactRaw(v)
	}
	return out
}

func compactRaw(in json.RawMessage) json.RawMessage {
	if in == nil {
		return nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, in); err != nil {
		return in
	}
	return json.RawMessage(buf.Bytes())
}
