package aethel_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/aethel-dev/aethel"
)

// writeJournalPack writes a minimal pack into dir and returns its path.
func writeJournalPack(dir string) string {
	src := filepath.Join(dir, "journal-pack")
	files := map[string]string{
		"pack.json": `{
			// hujson: comments and trailing commas are allowed
			"name": "journal",
			"version": "1.0.0",
			"protocolVersion": "0.1.0",
			"types": [
				{"id": "journal.morning", "version": "1.0.0", "schema": "types/morning.json"},
			],
		}`,
		"types/morning.json": `{
			"type": "object",
			"required": ["mood"],
			"properties": {"mood": {"type": "string", "enum": ["calm", "tired", "happy"]}}
		}`,
	}
	for name, content := range files {
		path := filepath.Join(src, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			log.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			log.Fatal(err)
		}
	}
	return src
}

// Example_basic creates a vault, installs a pack and writes a document.
func Example_basic() {
	tmpDir, err := os.MkdirTemp("", "aethel-example-*")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	ctx := context.Background()
	v, err := aethel.Init(filepath.Join(tmpDir, "vault"))
	if err != nil {
		log.Fatal(err)
	}
	if _, err := v.AddPack(ctx, writeJournalPack(tmpDir)); err != nil {
		log.Fatal(err)
	}

	typ := "journal.morning"
	res, err := v.ApplyPatch(ctx, aethel.Patch{
		Mode:        aethel.ModeCreate,
		Type:        &typ,
		Frontmatter: map[string]any{"mood": "calm"},
	})
	if err != nil {
		log.Fatal(err)
	}

	// Merging the same value again changes nothing.
	again, err := v.ApplyPatch(ctx, aethel.Patch{
		Mode:        aethel.ModeMergeFrontmatter,
		ID:          &res.ID,
		Frontmatter: map[string]any{"mood": "calm"},
	})
	if err != nil {
		log.Fatal(err)
	}

	doc, err := v.Read(ctx, res.ID)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(doc.Type, doc.Extra["mood"], res.Committed, again.Committed)
	// Output:
	// journal.morning calm true false
}

// ExampleNewTypedService shows type-safe access to the documents of one type.
func ExampleNewTypedService() {
	tmpDir, err := os.MkdirTemp("", "aethel-typed-example-*")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	ctx := context.Background()
	v, err := aethel.Init(filepath.Join(tmpDir, "vault"))
	if err != nil {
		log.Fatal(err)
	}
	if _, err := v.AddPack(ctx, writeJournalPack(tmpDir)); err != nil {
		log.Fatal(err)
	}

	type Morning struct {
		Mood string `json:"mood"`
	}

	mornings := aethel.NewTypedService[Morning](v, "journal.morning")
	created, err := mornings.Create(ctx, Morning{Mood: "happy"}, "Slept well.")
	if err != nil {
		log.Fatal(err)
	}

	got, err := mornings.Get(ctx, created.ID)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("%s: %s\n", got.Data.Mood, got.Body)
	// Output:
	// happy: Slept well.
}

// ExampleOpen_validationError shows the structured error for a rejected write.
func ExampleOpen_validationError() {
	tmpDir, err := os.MkdirTemp("", "aethel-error-example-*")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	ctx := context.Background()
	v, err := aethel.Init(filepath.Join(tmpDir, "vault"))
	if err != nil {
		log.Fatal(err)
	}
	if _, err := v.AddPack(ctx, writeJournalPack(tmpDir)); err != nil {
		log.Fatal(err)
	}

	typ := "journal.morning"
	_, err = v.ApplyPatch(ctx, aethel.Patch{
		Mode:        aethel.ModeCreate,
		Type:        &typ,
		Frontmatter: map[string]any{"mood": "angry"},
	})

	resp := aethel.Render(err)
	fmt.Println(resp.Code, resp.Data.Pointer)
	// Output:
	// 42200 /mood
}
