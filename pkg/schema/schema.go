// Package schema compiles JSON Schemas and reports the first violation of an instance.
//
// Schemas default to draft 2020-12 unless they declare "$schema". Format
// keywords such as "date-time" are asserted, and references never leave the
// schema document itself.
package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"slices"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/aethel-dev/aethel/pkg/core"
)

//go:embed frontmatter.schema.json
var frontmatterSchema []byte

var base = MustCompile(frontmatterSchema)

// resourceURL is where every schema document is registered with its compiler.
const resourceURL = "mem:///schema.json"

var printer = message.NewPrinter(language.English)

// Frontmatter returns the built-in schema for the reserved front matter keys.
func Frontmatter() *Schema {
	return base
}

// Schema is a compiled JSON Schema.
type Schema struct {
	raw      json.RawMessage
	compiled *jsonschema.Schema
}

// Violation describes the first failing constraint of a validation.
type Violation struct {
	Pointer  string
	Message  string
	Expected string
	Got      string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("%s: %s", v.pointerOrRoot(), v.Message)
}

func (v *Violation) pointerOrRoot() string {
	if v.Pointer == "" {
		return "/"
	}
	return v.Pointer
}

// AsError converts v into a KindSchemaValidation error.
func (v *Violation) AsError() *core.Error {
	return &core.Error{
		Kind:     core.KindSchemaValidation,
		Pointer:  v.Pointer,
		Expected: v.Expected,
		Got:      v.Got,
		Msg:      v.Message,
	}
}

// offline refuses every external reference.
type offline struct{}

func (offline) Load(url string) (any, error) {
	return nil, fmt.Errorf("external schema references are not supported: %s", url)
}

// Compile parses and checks a schema document.
// Malformed JSON yields KindJSONProcessing; a schema that parses but cannot be
// used (unknown types, bad patterns, unresolvable references) yields KindSchemaCompilation.
func Compile(data []byte) (*Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, &core.Error{Kind: core.KindJSONProcessing, Msg: "schema is not valid JSON", Err: err}
	}
	if _, ok := doc.(map[string]any); !ok {
		return nil, &core.Error{Kind: core.KindSchemaCompilation, Msg: "schema must be a JSON object"}
	}

	c := jsonschema.NewCompiler()
	c.DefaultDraft(jsonschema.Draft2020)
	c.AssertFormat()
	c.UseLoader(offline{})
	if err := c.AddResource(resourceURL, doc); err != nil {
		return nil, &core.Error{Kind: core.KindSchemaCompilation, Err: err}
	}
	compiled, err := c.Compile(resourceURL)
	if err != nil {
		return nil, &core.Error{Kind: core.KindSchemaCompilation, Msg: "schema does not compile", Err: err}
	}

	return &Schema{raw: slices.Clone(data), compiled: compiled}, nil
}

// MustCompile is like Compile but panics on error. Used for embedded schemas.
func MustCompile(data []byte) *Schema {
	s, err := Compile(data)
	if err != nil {
		panic(fmt.Sprintf("schema: %v", err))
	}
	return s
}

// Raw returns the schema source.
func (s *Schema) Raw() json.RawMessage {
	return s.raw
}

// Validate checks instance against the schema and returns the first violation,
// or nil. instance must be built from JSON-compatible values.
// Violations are ordered by pointer so the result is deterministic.
func (s *Schema) Validate(instance any) *Violation {
	err := s.compiled.Validate(instance)
	if err == nil {
		return nil
	}
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return &Violation{Message: err.Error()}
	}

	var violations []*Violation
	for _, leaf := range leaves(verr) {
		violations = append(violations, toViolation(leaf, instance))
	}
	if len(violations) == 0 {
		return &Violation{Message: "instance does not match schema"}
	}
	slices.SortStableFunc(violations, func(a, b *Violation) int {
		return strings.Compare(a.Pointer, b.Pointer)
	})
	return violations[0]
}

// leaves returns the errors of the tree that have no causes of their own.
func leaves(e *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(e.Causes) == 0 {
		if e.ErrorKind == nil {
			return nil
		}
		return []*jsonschema.ValidationError{e}
	}
	var out []*jsonschema.ValidationError
	for _, c := range e.Causes {
		out = append(out, leaves(c)...)
	}
	return out
}

func toViolation(e *jsonschema.ValidationError, instance any) *Violation {
	pointer := toPointer(e.InstanceLocation)
	var expected string

	switch k := e.ErrorKind.(type) {
	case *kind.Required:
		pointer = child(pointer, k.Missing)
		expected = "required property"
	case *kind.DependentRequired:
		pointer = child(pointer, k.Missing)
		expected = fmt.Sprintf("required when %q is present", k.Prop)
	case *kind.Dependency:
		pointer = child(pointer, k.Missing)
		expected = fmt.Sprintf("required when %q is present", k.Prop)
	case *kind.AdditionalProperties:
		pointer = child(pointer, k.Properties)
		expected = "no additional properties"
	case *kind.UniqueItems:
		pointer = child(pointer, []string{strconv.Itoa(k.Duplicates[1])})
		expected = "unique items"
	case *kind.Type:
		expected = strings.Join(k.Want, " or ")
	case *kind.Enum:
		expected = "one of " + render(k.Want)
	case *kind.Const:
		expected = render(k.Want)
	case *kind.Format:
		expected = k.Want
	case *kind.Pattern:
		expected = "match " + k.Want
	case *kind.Minimum:
		expected = ">= " + ratString(k.Want)
	case *kind.Maximum:
		expected = "<= " + ratString(k.Want)
	case *kind.ExclusiveMinimum:
		expected = "> " + ratString(k.Want)
	case *kind.ExclusiveMaximum:
		expected = "< " + ratString(k.Want)
	case *kind.MultipleOf:
		expected = "multiple of " + ratString(k.Want)
	case *kind.MinLength:
		expected = fmt.Sprintf("length >= %d", k.Want)
	case *kind.MaxLength:
		expected = fmt.Sprintf("length <= %d", k.Want)
	case *kind.MinItems:
		expected = fmt.Sprintf("at least %d items", k.Want)
	case *kind.MaxItems:
		expected = fmt.Sprintf("at most %d items", k.Want)
	case *kind.MinProperties:
		expected = fmt.Sprintf("at least %d properties", k.Want)
	case *kind.MaxProperties:
		expected = fmt.Sprintf("at most %d properties", k.Want)
	case *kind.FalseSchema:
		expected = "no value"
	case *kind.Not:
		expected = "value not matching the negated schema"
	case *kind.OneOf:
		expected = "exactly one matching subschema"
	}

	out := &Violation{
		Pointer:  pointer,
		Message:  e.ErrorKind.LocalizedString(printer),
		Expected: expected,
	}
	if got, ok := lookup(instance, pointer); ok {
		out.Got = render(got)
	}
	if expected == "" {
		out.Expected = out.Message
	}
	return out
}

func child(pointer string, names []string) string {
	if len(names) == 0 {
		return pointer
	}
	return pointer + "/" + escape(names[0])
}

// toPointer renders instance location tokens as a JSON pointer.
func toPointer(tokens []string) string {
	var sb strings.Builder
	for _, tok := range tokens {
		sb.WriteByte('/')
		sb.WriteString(escape(tok))
	}
	return sb.String()
}

func escape(token string) string {
	return strings.NewReplacer("~", "~0", "/", "~1").Replace(token)
}

func unescape(token string) string {
	return strings.NewReplacer("~1", "/", "~0", "~").Replace(token)
}

// lookup resolves pointer in a JSON-compatible value.
func lookup(doc any, pointer string) (any, bool) {
	if pointer == "" {
		return doc, true
	}
	cur := doc
	for _, tok := range strings.Split(pointer[1:], "/") {
		tok = unescape(tok)
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[tok]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			i, err := strconv.Atoi(tok)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

func ratString(r *big.Rat) string {
	if r == nil {
		return ""
	}
	if r.IsInt() {
		return r.RatString()
	}
	f, _ := r.Float64()
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func render(v any) string {
	if v == nil {
		return "null"
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
