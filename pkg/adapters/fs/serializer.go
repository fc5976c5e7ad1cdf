package fs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aethel-dev/aethel/pkg/core"
)

// Serializer converts documents to and from their on-disk representation.
type Serializer interface {
	Parse(r io.Reader) (core.Document, error)
	Serialize(doc core.Document) ([]byte, error)
}

const delimiter = "---"

// MarkdownSerializer reads and writes Markdown files with a YAML front matter header.
type MarkdownSerializer struct{}

// NewMarkdownSerializer creates a new Markdown serializer.
func NewMarkdownSerializer() *MarkdownSerializer {
	return &MarkdownSerializer{}
}

func (s *MarkdownSerializer) Parse(r io.Reader) (core.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return core.Document{}, &core.Error{Kind: core.KindIO, Msg: "failed to read document", Err: err}
	}
	return ParseMarkdown(data)
}

func (s *MarkdownSerializer) Serialize(doc core.Document) ([]byte, error) {
	return SerializeMarkdown(doc)
}

// ParseMarkdown parses a front matter document.
//
// Leading blank lines are skipped; the first other line must be the opening "---".
// Delimiter lines may carry trailing whitespace or a CR. Everything after the
// closing delimiter line is the body, byte for byte.
func ParseMarkdown(data []byte) (core.Document, error) {
	rest := data
	for {
		line, next, more := cutLine(rest)
		if strings.TrimSpace(line) == "" {
			if !more {
				return core.Document{}, &core.Error{Kind: core.KindMissingOpeningDelimiter, Msg: "document is empty"}
			}
			rest = next
			continue
		}
		if !isDelimiter(line) {
			return core.Document{}, &core.Error{Kind: core.KindMissingOpeningDelimiter, Msg: "content found before front matter"}
		}
		if !more {
			return core.Document{}, &core.Error{Kind: core.KindMissingClosingDelimiter}
		}
		rest = next
		break
	}

	header := rest
	offset := 0
	var body []byte
	for {
		line, next, more := cutLine(rest)
		if isDelimiter(line) {
			body = next
			break
		}
		if !more {
			return core.Document{}, &core.Error{Kind: core.KindMissingClosingDelimiter}
		}
		offset += len(line) + 1
		rest = next
	}

	doc, err := decodeFrontmatter(header[:offset])
	if err != nil {
		return core.Document{}, err
	}
	doc.Body = string(body)
	return doc, nil
}

func cutLine(b []byte) (line string, rest []byte, more bool) {
	i := bytes.IndexByte(b, '\n')
	if i < 0 {
		return string(b), nil, false
	}
	return string(b[:i]), b[i+1:], true
}

func isDelimiter(line string) bool {
	return strings.TrimRight(line, " \t\r") == delimiter
}

func decodeFrontmatter(block []byte) (core.Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(block, &root); err != nil {
		return core.Document{}, &core.Error{Kind: core.KindMalformedYAML, Err: err}
	}

	var mapping *yaml.Node
	switch {
	case root.Kind == 0:
		mapping = &yaml.Node{Kind: yaml.MappingNode}
	case root.Kind == yaml.DocumentNode && len(root.Content) == 1 && root.Content[0].Kind == yaml.MappingNode:
		mapping = root.Content[0]
	default:
		return core.Document{}, &core.Error{Kind: core.KindMalformedYAML, Msg: "front matter must be a mapping"}
	}

	doc := core.Document{Tags: []string{}, Extra: core.Fields{}}
	seen := make(map[string]bool)
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		key, val := mapping.Content[i].Value, mapping.Content[i+1]
		if seen[key] {
			return core.Document{}, &core.Error{Kind: core.KindMalformedYAML, Key: key, Msg: fmt.Sprintf("duplicate front matter key %q", key)}
		}
		seen[key] = true

		var err error
		switch key {
		case core.KeyID:
			var s string
			if s, err = scalar(key, val); err == nil {
				doc.ID, err = core.ParseID(s)
			}
		case core.KeyType:
			doc.Type, err = scalar(key, val)
		case core.KeyCreated:
			doc.Created, err = timestamp(key, val)
		case core.KeyUpdated:
			doc.Updated, err = timestamp(key, val)
		case core.KeySchemaVersion:
			var s string
			if s, err = scalar(key, val); err == nil {
				err = core.ValidateVersion(s)
				doc.SchemaVersion = s
			}
		case core.KeyTags:
			doc.Tags, err = tags(val)
		default:
			var v any
			if v, err = nodeValue(val); err != nil {
				err = &core.Error{Kind: core.KindMalformedYAML, Key: key, Err: err}
				break
			}
			if doc.Extra[key], err = core.NormalizeValue(v); err != nil {
				err = &core.Error{Kind: core.KindMalformedYAML, Key: key, Msg: fmt.Sprintf("value of %q is not JSON-compatible", key), Err: err}
			}
		}
		if err != nil {
			return core.Document{}, err
		}
	}

	for _, key := range []string{core.KeyID, core.KeyType, core.KeyCreated, core.KeyUpdated, core.KeySchemaVersion} {
		if !seen[key] {
			return core.Document{}, &core.Error{Kind: core.KindMissingRequiredField, Field: key}
		}
	}
	return doc, nil
}

// nodeValue decodes n like yaml.Node.Decode into an interface value, except
// that integers outside the int64 range become exact json.Number values.
func nodeValue(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		// Plain integers past uint64 resolve as !!float.
		if n.Tag == "!!int" || n.Tag == "!!float" {
			plain := strings.ReplaceAll(n.Value, "_", "")
			if _, err := strconv.ParseInt(plain, 0, 64); err != nil {
				if i, ok := new(big.Int).SetString(plain, 0); ok {
					return json.Number(i.String()), nil
				}
			}
		}
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, item := range n.Content {
			v, err := nodeValue(item)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.MappingNode:
		if plainKeys(n) {
			out := make(map[string]any, len(n.Content)/2)
			for i := 0; i+1 < len(n.Content); i += 2 {
				v, err := nodeValue(n.Content[i+1])
				if err != nil {
					return nil, err
				}
				out[n.Content[i].Value] = v
			}
			return out, nil
		}
	}
	var v any
	err := n.Decode(&v)
	return v, err
}

// plainKeys reports whether every key of the mapping is an ordinary string.
func plainKeys(n *yaml.Node) bool {
	for i := 0; i < len(n.Content); i += 2 {
		k := n.Content[i]
		if k.Kind != yaml.ScalarNode || k.Tag != "!!str" || k.Value == "<<" {
			return false
		}
	}
	return true
}

func scalar(key string, n *yaml.Node) (string, error) {
	if n.Kind != yaml.ScalarNode || n.Tag == "!!null" {
		return "", &core.Error{Kind: core.KindMalformedYAML, Key: key, Msg: fmt.Sprintf("%q must be a scalar", key)}
	}
	return n.Value, nil
}

func timestamp(key string, n *yaml.Node) (time.Time, error) {
	s, err := scalar(key, n)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(core.TimeLayout, s)
	if err != nil {
		return time.Time{}, &core.Error{Kind: core.KindInvalidTimestampFormat, Field: key, Got: s, Err: err}
	}
	return t.UTC(), nil
}

func tags(n *yaml.Node) ([]string, error) {
	if n.Kind == yaml.ScalarNode && n.Tag == "!!null" {
		return []string{}, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, &core.Error{Kind: core.KindMalformedYAML, Key: core.KeyTags, Msg: "tags must be a list of strings"}
	}
	out := make([]string, 0, len(n.Content))
	for _, item := range n.Content {
		if item.Kind != yaml.ScalarNode || item.Tag == "!!null" {
			return nil, &core.Error{Kind: core.KindMalformedYAML, Key: core.KeyTags, Msg: "tags must be a list of strings"}
		}
		out = append(out, item.Value)
	}
	return out, nil
}

// SerializeMarkdown renders doc with reserved keys first, in fixed order,
// followed by extra keys in lexicographic order.
func SerializeMarkdown(doc core.Document) ([]byte, error) {
	mapping := &yaml.Node{Kind: yaml.MappingNode}
	add := func(key string, val *yaml.Node) {
		mapping.Content = append(mapping.Content, str(key), val)
	}

	add(core.KeyID, str(doc.ID.String()))
	add(core.KeyType, str(doc.Type))
	add(core.KeyCreated, str(doc.Created.UTC().Format(core.TimeLayout)))
	add(core.KeyUpdated, str(doc.Updated.UTC().Format(core.TimeLayout)))
	add(core.KeySchemaVersion, str(doc.SchemaVersion))

	tagList := &yaml.Node{Kind: yaml.SequenceNode}
	if len(doc.Tags) == 0 {
		tagList.Style = yaml.FlowStyle
	}
	for _, t := range doc.Tags {
		tagList.Content = append(tagList.Content, str(t))
	}
	add(core.KeyTags, tagList)

	for _, key := range doc.Extra.Keys() {
		if core.IsReserved(key) {
			continue
		}
		var val yaml.Node
		if err := val.Encode(yamlValue(doc.Extra[key])); err != nil {
			return nil, &core.Error{Kind: core.KindMalformedYAML, Key: key, Err: err}
		}
		add(key, &val)
	}

	var buf bytes.Buffer
	buf.WriteString(delimiter + "\n")
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(mapping); err != nil {
		return nil, &core.Error{Kind: core.KindMalformedYAML, Err: err}
	}
	if err := encoder.Close(); err != nil {
		return nil, &core.Error{Kind: core.KindMalformedYAML, Err: err}
	}
	buf.WriteString(delimiter + "\n")
	buf.WriteString(doc.Body)
	return buf.Bytes(), nil
}

func str(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

// yamlValue turns json.Number leaves into native numbers so they are emitted unquoted.
func yamlValue(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if _, ok := new(big.Int).SetString(t.String(), 10); ok {
			// Tagged as the resolver sees it so the digits are emitted bare.
			return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: t.String()}
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = yamlValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = yamlValue(val)
		}
		return out
	default:
		return v
	}
}
