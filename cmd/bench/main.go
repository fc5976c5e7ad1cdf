package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/aethel-dev/aethel"
	"github.com/aethel-dev/aethel/internal/metrics"
)

func main() {
	count := flag.Int("count", 1000, "Number of documents to generate")
	writers := flag.Int("writers", 8, "Concurrent writers for the append run")
	keep := flag.Bool("keep", false, "Keep the benchmark vault after running")
	flag.Parse()

	benchDir, err := os.MkdirTemp("", "aethel_bench_")
	if err != nil {
		panic(err)
	}
	defer func() {
		if !*keep {
			os.RemoveAll(benchDir)
		} else {
			fmt.Printf("Keeping bench dir: %s\n", benchDir)
		}
	}()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	ctx := context.Background()

	v, err := aethel.Init(benchDir, aethel.WithLogger(logger))
	if err != nil {
		panic(err)
	}
	if _, err := v.AddPack(ctx, writeBenchPack(benchDir)); err != nil {
		panic(err)
	}

	// Files are written directly to simulate an existing vault.
	fmt.Printf("Generating %d documents in %s...\n", *count, benchDir)
	startGen := time.Now()
	ids := make([]uuid.UUID, *count)
	stamp := time.Now().UTC().Format(time.RFC3339)
	for i := range ids {
		ids[i] = uuid.New()
		content := fmt.Sprintf("---\nid: %s\ntype: bench.note\ncreated: %s\nupdated: %s\nschemaVersion: 1.0.0\ntags: [benchmark]\ntitle: Note %d\n---\n# Benchmark Note %d\n",
			ids[i], stamp, stamp, i, i)
		dir := filepath.Join(benchDir, "docs", fmt.Sprintf("%02d", i%100))
		if err := os.MkdirAll(dir, 0755); err != nil {
			panic(err)
		}
		if err := os.WriteFile(filepath.Join(dir, ids[i].String()+".md"), []byte(content), 0644); err != nil {
			panic(err)
		}
	}
	fmt.Printf("Generation took: %v\n", time.Since(startGen))

	// Run 1: Cold (populates the index)
	startList := time.Now()
	list, err := v.List(ctx, "")
	if err != nil {
		panic(err)
	}
	cold := time.Since(startList)

	// Run 2: Warm, from a fresh vault value to simulate a new CLI invocation.
	v2, err := aethel.Open(benchDir, aethel.WithLogger(logger))
	if err != nil {
		panic(err)
	}
	startList2 := time.Now()
	list2, err := v2.List(ctx, "")
	if err != nil {
		panic(err)
	}
	warm := time.Since(startList2)

	// Run 3: concurrent appends through a shared session.
	collector := metrics.New(prometheus.NewRegistry())
	session := aethel.NewSession(aethel.WithLogger(logger), aethel.WithMetrics(collector))
	startAppend := time.Now()
	var wg sync.WaitGroup
	for w := 0; w < *writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			sv, err := session.Open(benchDir)
			if err != nil {
				panic(err)
			}
			for i := w; i < len(ids); i += *writers {
				body := fmt.Sprintf("appended by writer %d", w)
				if _, err := sv.ApplyPatch(ctx, aethel.Patch{Mode: aethel.ModeAppend, ID: &ids[i], Body: &body}); err != nil {
					panic(err)
				}
			}
		}(w)
	}
	wg.Wait()
	appends := time.Since(startAppend)
	committed := testutil.ToFloat64(collector.PatchesTotal.WithLabelValues(string(aethel.ModeAppend), "committed"))

	fmt.Printf("--------------------------------------------------\n")
	fmt.Printf("Benchmark Result (%d documents):\n", *count)
	fmt.Printf("  List cold: %v (items: %d)\n", cold, len(list))
	fmt.Printf("  List warm: %v (items: %d)\n", warm, len(list2))
	fmt.Printf("  Appends:   %v (%.0f committed, %d writers)\n", appends, committed, *writers)
	fmt.Printf("--------------------------------------------------\n")
}

func writeBenchPack(dir string) string {
	src := filepath.Join(dir, ".bench-pack")
	if err := os.MkdirAll(src, 0755); err != nil {
		panic(err)
	}
	manifest := `{"name": "bench", "version": "1.0.0", "protocolVersion": "0.1.0",
		"types": [{"id": "bench.note", "version": "1.0.0", "schema": "note.json"}]}`
	schema := `{"type": "object", "properties": {"title": {"type": "string"}}}`
	if err := os.WriteFile(filepath.Join(src, "pack.json"), []byte(manifest), 0644); err != nil {
		panic(err)
	}
	if err := os.WriteFile(filepath.Join(src, "note.json"), []byte(schema), 0644); err != nil {
		panic(err)
	}
	return src
}
