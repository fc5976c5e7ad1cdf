package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// PatchMode selects how a patch is applied.
type PatchMode string

const (
	ModeCreate           PatchMode = "create"
	ModeAppend           PatchMode = "append"
	ModeMergeFrontmatter PatchMode = "merge_frontmatter"
	ModeReplaceBody      PatchMode = "replace_body"
)

// Valid reports whether m is one of the known modes.
func (m PatchMode) Valid() bool {
	switch m {
	case ModeCreate, ModeAppend, ModeMergeFrontmatter, ModeReplaceBody:
		return true
	}
	return false
}

// Patch is a request to create or modify exactly one document.
type Patch struct {
	ID          *uuid.UUID     `json:"id"`
	Type        *string        `json:"type"`
	Frontmatter map[string]any `json:"frontmatter"`
	Body        *string        `json:"body"`
	Mode        PatchMode      `json:"mode"`
}

// WriteResult reports the outcome of an applied patch.
type WriteResult struct {
	ID        uuid.UUID `json:"id"`
	Path      string    `json:"path"`
	Committed bool      `json:"committed"`
	Warnings  []string  `json:"warnings"`
}

// DecodePatch reads a JSON patch from r.
// Numbers in the front matter are kept as json.Number.
func DecodePatch(r io.Reader) (Patch, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Patch{}, &Error{Kind: KindIO, Msg: "failed to read patch", Err: err}
	}

	var wire struct {
		ID          *string        `json:"id"`
		Type        *string        `json:"type"`
		Frontmatter map[string]any `json:"frontmatter"`
		Body        *string        `json:"body"`
		Mode        *string        `json:"mode"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&wire); err != nil {
		return Patch{}, &Error{Kind: KindMalformedRequestJSON, Err: err}
	}
	if dec.More() {
		return Patch{}, &Error{Kind: KindMalformedRequestJSON, Msg: "trailing data after patch object"}
	}

	if wire.Mode == nil {
		return Patch{}, &Error{Kind: KindMissingRequiredField, Field: "mode"}
	}
	mode := PatchMode(*wire.Mode)
	if !mode.Valid() {
		return Patch{}, &Error{Kind: KindUnknownPatchMode, Got: *wire.Mode}
	}

	p := Patch{
		Type:        wire.Type,
		Frontmatter: wire.Frontmatter,
		Body:        wire.Body,
		Mode:        mode,
	}
	if wire.ID != nil {
		id, err := ParseID(*wire.ID)
		if err != nil {
			return Patch{}, err
		}
		p.ID = &id
	}
	return p, nil
}

// ParseID parses a document identifier.
func ParseID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil || len(s) != 36 {
		if err == nil {
			err = errors.New("id must be in canonical 8-4-4-4-12 form")
		}
		return uuid.Nil, &Error{Kind: KindInvalidIDFormat, Field: KeyID, Got: s, Err: err}
	}
	return id, nil
}

func (p Patch) String() string {
	id := "<new>"
	if p.ID != nil {
		id = p.ID.String()
	}
	return fmt.Sprintf("%s %s", p.Mode, id)
}
