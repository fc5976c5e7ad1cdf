// Document is the central entity of the domain.
package core

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Reserved front matter keys. They are owned by the system and may not appear
// in Document.Extra or be set through a patch.
const (
	KeyID            = "id"
	KeyType          = "type"
	KeyCreated       = "created"
	KeyUpdated       = "updated"
	KeySchemaVersion = "schemaVersion"
	KeyTags          = "tags"
)

// ReservedKeys lists the reserved keys in serialization order.
var ReservedKeys = []string{KeyID, KeyType, KeyCreated, KeyUpdated, KeySchemaVersion, KeyTags}

// legacyKeys are older spellings of reserved keys. Patches may not set them,
// but a document read from disk keeps them in Extra untouched.
var legacyKeys = []string{"uuid", "v"}

// IsReserved reports whether key is a system-owned front matter key.
func IsReserved(key string) bool {
	return slices.Contains(ReservedKeys, key)
}

// IsProtected reports whether a patch is forbidden to set key: the reserved
// keys and their legacy spellings.
func IsProtected(key string) bool {
	return IsReserved(key) || slices.Contains(legacyKeys, key)
}

// TimeLayout is the textual form of created/updated timestamps.
const TimeLayout = time.RFC3339Nano

// Fields holds the type-specific front matter of a document.
// Values are JSON-compatible: string, bool, json.Number, nil, []any, map[string]any.
type Fields map[string]any

// Keys returns the keys in lexicographic order.
func (f Fields) Keys() []string {
	return slices.Sorted(maps.Keys(f))
}

// Clone returns a shallow copy of f.
func (f Fields) Clone() Fields {
	if f == nil {
		return Fields{}
	}
	return maps.Clone(f)
}

// Document is a single Markdown file with a YAML front matter header.
type Document struct {
	ID            uuid.UUID
	Type          string
	Created       time.Time
	Updated       time.Time
	SchemaVersion string
	Tags          []string
	Extra         Fields
	Body          string
}

// PackName is the namespace part of the document type ("journal" for "journal.entry").
func (d Document) PackName() string {
	return PackOf(d.Type)
}

// Clone returns a deep enough copy of d to mutate Tags and Extra independently.
func (d Document) Clone() Document {
	cp := d
	cp.Tags = slices.Clone(d.Tags)
	cp.Extra = d.Extra.Clone()
	return cp
}

// Reserved returns the reserved part of the front matter as a JSON-compatible object.
func (d Document) Reserved() map[string]any {
	tags := make([]any, 0, len(d.Tags))
	for _, t := range d.Tags {
		tags = append(tags, t)
	}
	return map[string]any{
		KeyID:            d.ID.String(),
		KeyType:          d.Type,
		KeyCreated:       d.Created.UTC().Format(TimeLayout),
		KeyUpdated:       d.Updated.UTC().Format(TimeLayout),
		KeySchemaVersion: d.SchemaVersion,
		KeyTags:          tags,
	}
}

// Frontmatter returns the complete front matter (reserved keys plus Extra)
// as a JSON-compatible object.
func (d Document) Frontmatter() map[string]any {
	out := d.Reserved()
	for k, v := range d.Extra {
		if IsReserved(k) {
			continue
		}
		out[k] = v
	}
	return out
}

// PackOf returns the substring of typeID before the first '.'.
func PackOf(typeID string) string {
	name, _, _ := strings.Cut(typeID, ".")
	return name
}

// Entry is a lightweight listing record for a stored document.
type Entry struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Path string `json:"path"`
}

// EventType represents the type of change in the vault.
type EventType string

const (
	EventCreate EventType = "CREATE"
	EventModify EventType = "MODIFY"
	EventDelete EventType = "DELETE"
)

// Event represents a change in the vault.
type Event struct {
	Type      EventType
	ID        string
	Path      string
	Timestamp int64 // Unix timestamp
}

func (e Event) String() string {
	return fmt.Sprintf("%s %s", e.Type, e.ID)
}
