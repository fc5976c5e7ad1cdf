// Package typed offers type-safe access to the documents of one document type.
//
// The extra front matter of a document is decoded into a user struct T via
// its JSON form, so T's json tags name the front matter keys.
package typed

import (
	"context"

	"github.com/google/uuid"

	"github.com/aethel-dev/aethel/pkg/core"
)

// Service reads and writes documents of a single type through a core.Store.
type Service[T any] struct {
	store  core.Store
	typeID string
}

// NewService creates a typed service for documents of typeID.
func NewService[T any](store core.Store, typeID string) *Service[T] {
	return &Service[T]{store: store, typeID: typeID}
}

// Type returns the document type served.
func (s *Service[T]) Type() string {
	return s.typeID
}

// Create stores a new document holding data and body.
func (s *Service[T]) Create(ctx context.Context, data T, body string) (*DocumentModel[T], error) {
	doc := &DocumentModel[T]{Data: data, Body: body}
	if err := s.Save(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Get reads a document and decodes its front matter into T.
// A document of another type yields KindTypeMismatchOnUpdate.
func (s *Service[T]) Get(ctx context.Context, id uuid.UUID) (*DocumentModel[T], error) {
	doc, err := s.store.Read(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.Type != s.typeID {
		return nil, &core.Error{Kind: core.KindTypeMismatchOnUpdate, Expected: s.typeID, Got: doc.Type, ID: id.String()}
	}
	return fromCore(doc, s)
}

// Save creates doc when it has no id yet, otherwise merges its data into the
// stored front matter and replaces the body.
func (s *Service[T]) Save(ctx context.Context, doc *DocumentModel[T]) error {
	fields, err := toFields(doc.Data)
	if err != nil {
		return err
	}

	p := core.Patch{
		Type:        &s.typeID,
		Frontmatter: fields,
		Body:        &doc.Body,
		Mode:        core.ModeReplaceBody,
	}
	if doc.ID == uuid.Nil {
		p.Mode = core.ModeCreate
	} else {
		id := doc.ID
		p.ID = &id
	}

	res, err := s.store.ApplyPatch(ctx, p)
	if err != nil {
		return err
	}
	doc.ID = res.ID
	if doc.Saver == nil {
		doc.Saver = s
	}
	if res.Committed {
		if fresh, err := s.store.Read(ctx, res.ID); err == nil {
			doc.Meta = fresh
		}
	}
	return nil
}

// Merge sets the keys of data on an existing document without touching its body.
// Fields that encode to JSON null are written as null.
func (s *Service[T]) Merge(ctx context.Context, id uuid.UUID, data T) (core.WriteResult, error) {
	fields, err := toFields(data)
	if err != nil {
		return core.WriteResult{}, err
	}
	return s.store.ApplyPatch(ctx, core.Patch{
		ID:          &id,
		Type:        &s.typeID,
		Frontmatter: fields,
		Mode:        core.ModeMergeFrontmatter,
	})
}

// Append adds text to the body of an existing document.
func (s *Service[T]) Append(ctx context.Context, id uuid.UUID, text string) (core.WriteResult, error) {
	return s.store.ApplyPatch(ctx, core.Patch{
		ID:   &id,
		Type: &s.typeID,
		Body: &text,
		Mode: core.ModeAppend,
	})
}
