package patch

import (
	"time"

	"github.com/google/uuid"

	"github.com/aethel-dev/aethel/pkg/core"
	"github.com/aethel-dev/aethel/pkg/pack"
)

// bodySeparator joins appended text to a non-empty body.
const bodySeparator = "\n\n"

// Check enforces the per-mode required fields and rejects reserved keys.
// It performs no I/O.
func Check(p core.Patch) error {
	switch p.Mode {
	case core.ModeCreate:
		if p.Type == nil || *p.Type == "" {
			return &core.Error{Kind: core.KindMissingRequiredField, Field: core.KeyType, Mode: string(p.Mode)}
		}
		if p.ID != nil {
			return &core.Error{Kind: core.KindInvalidPatch, Mode: string(p.Mode), Msg: "id must be absent for create"}
		}
	case core.ModeReplaceBody:
		if p.Body == nil {
			return &core.Error{Kind: core.KindMissingRequiredField, Field: "body", Mode: string(p.Mode)}
		}
	case core.ModeAppend, core.ModeMergeFrontmatter:
	default:
		return &core.Error{Kind: core.KindUnknownPatchMode, Got: string(p.Mode)}
	}

	for _, key := range core.Fields(p.Frontmatter).Keys() {
		if core.IsProtected(key) {
			return &core.Error{Kind: core.KindAttemptToSetReservedKey, Key: key}
		}
	}
	return nil
}

// WouldChange reports whether applying p to doc alters it.
// p.Frontmatter must already be normalized.
//
// A front matter key changes the document when it is absent or holds a
// different value. An append changes it whenever the appended text is non-empty,
// even if that text repeats the existing body.
func WouldChange(doc core.Document, p core.Patch) bool {
	if p.Mode == core.ModeCreate {
		return true
	}
	for k, v := range p.Frontmatter {
		cur, ok := doc.Extra[k]
		if !ok || !core.Equal(cur, v) {
			return true
		}
	}
	switch p.Mode {
	case core.ModeAppend:
		return p.Body != nil && *p.Body != ""
	case core.ModeReplaceBody:
		return p.Body != nil && *p.Body != doc.Body
	}
	return false
}

// Mutate returns a copy of doc with p applied and updated refreshed to now.
// updated never precedes created.
func Mutate(doc core.Document, p core.Patch, now time.Time) core.Document {
	out := doc.Clone()
	for k, v := range p.Frontmatter {
		out.Extra[k] = v
	}

	switch p.Mode {
	case core.ModeAppend:
		if p.Body != nil && *p.Body != "" {
			if out.Body != "" {
				out.Body += bodySeparator
			}
			out.Body += *p.Body
		}
	case core.ModeReplaceBody:
		if p.Body != nil {
			out.Body = *p.Body
		}
	}

	out.Updated = now.UTC()
	if out.Updated.Before(out.Created) {
		out.Updated = out.Created
	}
	return out
}

// NewDocument builds the document a create patch resolves to.
func NewDocument(entry *pack.TypeEntry, p core.Patch, id uuid.UUID, now time.Time) core.Document {
	now = now.UTC()
	doc := core.Document{
		ID:            id,
		Type:          entry.ID,
		Created:       now,
		Updated:       now,
		SchemaVersion: entry.Version,
		Tags:          []string{},
		Extra:         core.Fields(p.Frontmatter).Clone(),
	}
	if p.Body != nil {
		doc.Body = *p.Body
	}
	return doc
}

