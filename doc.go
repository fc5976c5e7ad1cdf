// Package aethel is the composition root of the aethel document vault.
//
// A vault is a directory holding Markdown documents with YAML front matter
// under docs/ and schema packs under packs/. Every document declares a type
// (for example "journal.morning"); the pack named by the type's prefix ships
// a JSON Schema that the document's front matter must satisfy.
//
// All writes go through ApplyPatch, which checks, merges and validates a
// Patch before atomically replacing the file on disk. Writes to one vault are
// serialized; reads are lock-free.
//
// Usage:
//
//	v, err := aethel.Init("./vault", aethel.WithLogger(logger))
//
//	typ := "journal.morning"
//	res, err := v.ApplyPatch(ctx, aethel.Patch{
//		Mode:        aethel.ModeCreate,
//		Type:        &typ,
//		Frontmatter: map[string]any{"mood": "calm"},
//	})
//
//	doc, err := v.Read(ctx, res.ID)
package aethel
