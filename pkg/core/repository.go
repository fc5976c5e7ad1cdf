package core

import (
	"context"

	"github.com/google/uuid"
)

// Writer applies patches. *vault.Vault is the canonical implementation.
type Writer interface {
	ApplyPatch(ctx context.Context, p Patch) (WriteResult, error)
}

// Reader retrieves documents by id.
type Reader interface {
	Read(ctx context.Context, id uuid.UUID) (Document, error)
}

// Store is the read/write contract combined.
type Store interface {
	Reader
	Writer
}
