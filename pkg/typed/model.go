package typed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/aethel-dev/aethel/pkg/core"
)

// DocumentModel is a typed view of a document: its extra front matter decoded into T.
type DocumentModel[T any] struct {
	// ID is uuid.Nil until the document has been created.
	ID   uuid.UUID
	Body string
	Data T
	// Meta holds the reserved fields as last read or written.
	Meta  core.Document
	Saver Saver[T]
}

// Saver persists a DocumentModel.
type Saver[T any] interface {
	Save(ctx context.Context, doc *DocumentModel[T]) error
}

// Save persists the document using the attached saver.
func (d *DocumentModel[T]) Save(ctx context.Context) error {
	if d.Saver == nil {
		return fmt.Errorf("document is detached (missing Saver)")
	}
	return d.Saver.Save(ctx, d)
}

// toFields converts typed data into front matter fields via its JSON form.
func toFields(data any) (map[string]any, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, &core.Error{Kind: core.KindJSONProcessing, Msg: "failed to marshal typed data", Err: err}
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, &core.Error{Kind: core.KindJSONProcessing, Msg: "typed data must encode as a JSON object", Err: err}
	}
	return fields, nil
}

func fromCore[T any](doc core.Document, saver Saver[T]) (*DocumentModel[T], error) {
	raw, err := json.Marshal(doc.Extra)
	if err != nil {
		return nil, &core.Error{Kind: core.KindJSONProcessing, ID: doc.ID.String(), Msg: "front matter marshal failed", Err: err}
	}
	var data T
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, &core.Error{Kind: core.KindJSONProcessing, ID: doc.ID.String(), Msg: "front matter does not match the typed model", Err: err}
	}
	return &DocumentModel[T]{
		ID:    doc.ID,
		Body:  doc.Body,
		Data:  data,
		Meta:  doc,
		Saver: saver,
	}, nil
}
