package lifecycle_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/aethel-dev/aethel/pkg/adapters/lifecycle"
	"github.com/aethel-dev/aethel/pkg/core"
)

func collect(t *testing.T, src *lifecycle.Source) []lifecycle.Change {
	t.Helper()
	var got []lifecycle.Change
	timeout := time.After(time.Second)
	for {
		select {
		case e, ok := <-src.Events():
			if !ok {
				return got
			}
			got = append(got, e.(lifecycle.Change))
		case <-timeout:
			t.Fatal("output not closed after input closed")
		}
	}
}

func TestSource(t *testing.T) {
	docs := filepath.Join(t.TempDir(), "docs")
	events := []core.Event{
		{Type: core.EventCreate, ID: "a", Path: filepath.Join(docs, "2024", "a.md"), Timestamp: 1},
		{Type: core.EventModify, ID: "b", Path: filepath.Join(docs, "b.md"), Timestamp: 2},
		{Type: core.EventDelete, ID: "c", Path: filepath.Join(docs, "2024", "07", "c.md"), Timestamp: 3},
	}

	tests := []struct {
		name    string
		opts    []lifecycle.Option
		wantIDs []string
	}{
		{name: "Everything", wantIDs: []string{"a", "b", "c"}},
		{name: "Only Types", opts: []lifecycle.Option{lifecycle.OnlyTypes(core.EventCreate, core.EventDelete)}, wantIDs: []string{"a", "c"}},
		{name: "Matching Pattern", opts: []lifecycle.Option{lifecycle.Matching("2024/**")}, wantIDs: []string{"a", "c"}},
		{name: "Both", opts: []lifecycle.Option{lifecycle.OnlyTypes(core.EventDelete), lifecycle.Matching("*.md")}, wantIDs: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := make(chan core.Event, len(events))
			for _, e := range events {
				in <- e
			}
			close(in)

			src, err := lifecycle.NewSource(docs, in, tt.opts...)
			if err != nil {
				t.Fatal(err)
			}
			if err := src.Start(context.Background()); err != nil {
				t.Fatal(err)
			}

			got := collect(t, src)
			var ids []string
			for _, c := range got {
				ids = append(ids, c.ID)
			}
			if len(ids) != len(tt.wantIDs) {
				t.Fatalf("ids = %v, want %v", ids, tt.wantIDs)
			}
			for i := range ids {
				if ids[i] != tt.wantIDs[i] {
					t.Errorf("ids = %v, want %v", ids, tt.wantIDs)
				}
			}
		})
	}
}

func TestSource_RelativePaths(t *testing.T) {
	docs := filepath.Join(t.TempDir(), "docs")
	in := make(chan core.Event, 1)
	in <- core.Event{Type: core.EventCreate, ID: "0190f2a4-1111-7000-8000-0000000000aa", Path: filepath.Join(docs, "2024", "a.md"), Timestamp: 7}
	close(in)

	src, err := lifecycle.NewSource(docs, in)
	if err != nil {
		t.Fatal(err)
	}
	if err := src.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	got := collect(t, src)
	if len(got) != 1 {
		t.Fatalf("expected one change, got %v", got)
	}
	want := lifecycle.Change{Type: core.EventCreate, ID: "0190f2a4-1111-7000-8000-0000000000aa", Path: "2024/a.md", At: 7}
	if got[0] != want {
		t.Errorf("change = %+v, want %+v", got[0], want)
	}
	if s := got[0].String(); s != "CREATE 0190f2a4-1111-7000-8000-0000000000aa 2024/a.md" {
		t.Errorf("String() = %q", s)
	}
}

func TestSource_StopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src, err := lifecycle.NewSource(t.TempDir(), make(chan core.Event))
	if err != nil {
		t.Fatal(err)
	}
	if err := src.Start(ctx); err != nil {
		t.Fatal(err)
	}
	cancel()
	if got := collect(t, src); len(got) != 0 {
		t.Errorf("unexpected changes %v", got)
	}
}

func TestNewSource_InvalidPattern(t *testing.T) {
	_, err := lifecycle.NewSource(t.TempDir(), make(chan core.Event), lifecycle.Matching("[unclosed"))
	if core.KindOf(err) != core.KindInvalidArgument {
		t.Errorf("expected invalid argument, got %v", err)
	}
}
