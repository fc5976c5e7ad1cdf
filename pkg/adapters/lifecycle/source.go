// Package lifecycle exposes vault change events as a lifecycle.Source.
package lifecycle

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/aretw0/lifecycle"
	"github.com/bmatcuk/doublestar/v4"

	"github.com/aethel-dev/aethel/pkg/core"
)

// Change is a vault event as delivered by Source.
type Change struct {
	Type core.EventType `json:"event"`
	ID   string         `json:"id"`
	// Path is slash-separated and relative to docs/.
	Path string `json:"path"`
	At   int64  `json:"at"`
}

func (c Change) String() string {
	return fmt.Sprintf("%s %s %s", c.Type, c.ID, c.Path)
}

// Option narrows the changes a Source emits.
type Option func(*Source)

// OnlyTypes keeps changes of the given kinds. No kinds means all of them.
func OnlyTypes(types ...core.EventType) Option {
	return func(s *Source) {
		s.types = types
	}
}

// Matching keeps changes whose docs-relative path matches a doublestar pattern.
func Matching(pattern string) Option {
	return func(s *Source) {
		s.pattern = pattern
	}
}

// Source turns the raw events of vault.Vault.Watch into Change values.
type Source struct {
	docs    string
	events  <-chan core.Event
	types   []core.EventType
	pattern string
	out     chan lifecycle.Event
}

var _ lifecycle.Source = (*Source)(nil)

// NewSource reads events produced for the docs directory docsDir. The output
// channel closes when events closes or the context passed to Start is cancelled.
func NewSource(docsDir string, events <-chan core.Event, opts ...Option) (*Source, error) {
	s := &Source{
		docs:   docsDir,
		events: events,
		out:    make(chan lifecycle.Event),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.pattern != "" && !doublestar.ValidatePattern(s.pattern) {
		return nil, &core.Error{Kind: core.KindInvalidArgument, Got: s.pattern, Msg: "invalid watch pattern"}
	}
	return s, nil
}

func (s *Source) Events() <-chan lifecycle.Event {
	return s.out
}

func (s *Source) Start(ctx context.Context) error {
	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(s.out)
		for {
			select {
			case <-ctx.Done():
				return nil
			case e, ok := <-s.events:
				if !ok {
					return nil
				}
				c, keep := s.change(e)
				if !keep {
					continue
				}
				select {
				case s.out <- c:
				case <-ctx.Done():
					return nil
				}
			}
		}
	})
	return nil
}

func (s *Source) change(e core.Event) (Change, bool) {
	if len(s.types) > 0 && !slices.Contains(s.types, e.Type) {
		return Change{}, false
	}
	rel := e.Path
	if r, err := filepath.Rel(s.docs, e.Path); err == nil && filepath.IsLocal(r) {
		rel = r
	}
	rel = filepath.ToSlash(rel)
	if s.pattern != "" {
		if ok, _ := doublestar.Match(s.pattern, rel); !ok {
			return Change{}, false
		}
	}
	return Change{Type: e.Type, ID: e.ID, Path: rel, At: e.Timestamp}, true
}
