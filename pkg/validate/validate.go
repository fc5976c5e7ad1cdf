// Package validate checks documents against the pack registry of a vault.
package validate

import (
	"log/slog"

	"github.com/aethel-dev/aethel/pkg/core"
	"github.com/aethel-dev/aethel/pkg/pack"
	"github.com/aethel-dev/aethel/pkg/schema"
)

// Validator checks a document in four steps, stopping at the first failure:
//
//  1. the pack named by the document type must be installed;
//  2. the pack must declare the type;
//  3. the reserved front matter must satisfy the built-in base schema;
//  4. the complete front matter must satisfy the type schema.
type Validator struct {
	logger *slog.Logger
}

// New returns a Validator. A nil logger disables logging.
func New(logger *slog.Logger) *Validator {
	return &Validator{logger: logger}
}

// Validate checks doc against packs.
func (v *Validator) Validate(packs []*pack.Pack, doc core.Document) error {
	_, entry, err := pack.Resolve(packs, doc.Type)
	if err != nil {
		return core.WithContext(err, doc.ID.String(), "")
	}

	if viol := schema.Frontmatter().Validate(doc.Reserved()); viol != nil {
		return v.fail(doc, "base", viol)
	}

	fm, err := core.NormalizeFields(doc.Frontmatter())
	if err != nil {
		return core.WithContext(err, doc.ID.String(), "")
	}
	if viol := entry.Schema.Validate(map[string]any(fm)); viol != nil {
		return v.fail(doc, entry.ID, viol)
	}
	return nil
}

func (v *Validator) fail(doc core.Document, against string, viol *schema.Violation) error {
	if v.logger != nil {
		v.logger.Debug("document rejected", "id", doc.ID, "schema", against, "pointer", viol.Pointer, "message", viol.Message)
	}
	e := viol.AsError()
	e.ID = doc.ID.String()
	e.Name = against
	return e
}

// Document loads the packs installed under root and validates doc against them.
func Document(root string, doc core.Document) error {
	packs, err := pack.LoadAll(root)
	if err != nil {
		return err
	}
	return New(nil).Validate(packs, doc)
}
