// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Camoto-Go contributors
// Source: github.com/camoto-go/gamearchive

package gamearchive

// Certainty is the confidence a strategy's signature check reports for a
// candidate stream. Ordered DefinitelyNo < Unsure < PossiblyYes < DefinitelyYes.
type Certainty int

const (
	DefinitelyNo Certainty = iota
	Unsure
	PossiblyYes
	DefinitelyYes
)

func (c Certainty) String() string {
	switch c {
	case DefinitelyNo:
		return "definitely-no"
	case Unsure:
		return "unsure"
	case PossiblyYes:
		return "possibly-yes"
	case DefinitelyYes:
		return "definitely-yes"
	default:
		return "unknown"
	}
}

// EntryAttr is a per-entry attribute bit flag set.
type EntryAttr uint8

const (
	AttrCompressed EntryAttr = 1 << iota
	AttrEncrypted
	AttrFolder
	AttrDefault
	AttrHidden
	AttrVacant
)

func (a EntryAttr) Has(flag EntryAttr) bool { return a&flag != 0 }

// FILETYPE_GENERIC is the type string used when a strategy has no more
// specific classification for an entry.
const FileTypeGeneric = "FILETYPE_GENERIC"

// Entry is one logical file tracked by the FAT engine. Strategies extend it
// via StrategyData rather than subclassing: a strategy that needs extra
// per-entry state stores it there and type-asserts on access.
type Entry struct {
	// Index is this entry's slot in the on-disk FAT, distinct from its
	// position in the engine's file vector.
	Index int
	// Offset is the byte offset of this entry's record (header + data).
	Offset int64
	// HeaderLen is the size of a per-file header embedded at Offset,
	// preceding the data; zero for external-FAT formats.
	HeaderLen int64
	// StoredSize is the on-disk data length, post-filter.
	StoredSize int64
	// RealSize is the decoded length, pre-filter; equals StoredSize when
	// no filter applies.
	RealSize int64
	// Name is the logical filename presented to callers.
	Name string
	// Type is a mime-like classification string.
	Type string
	// Attrs is the attribute bit set driving filter selection.
	Attrs EntryAttr
	// Filter is the registered filter name to apply on open, or "".
	Filter string
	// Valid is false once the entry has been removed. Held Handles remain
	// non-nil but further operations against them fail.
	Valid bool
	// StrategyData is an opaque slot for per-format extra state. None of
	// the bundled strategies use it.
	StrategyData any
}

// FileInfo is an immutable snapshot of one entry, returned by Archive.Files.
type FileInfo struct {
	Handle     Handle
	Name       string
	Type       string
	Offset     int64
	StoredSize int64
	RealSize   int64
	Attrs      EntryAttr
	Valid      bool
}

// Handle is an opaque, stable reference to an Entry. It remains valid
// across offset-changing mutations; Valid() turns false once the entry is
// removed.
type Handle struct {
	entry *Entry
}

// Valid reports whether the referenced entry is still live.
func (h Handle) Valid() bool { return h.entry != nil && h.entry.Valid }

// IsZero reports whether this handle was never bound to an entry.
func (h Handle) IsZero() bool { return h.entry == nil }

func handleFor(e *Entry) Handle { return Handle{entry: e} }

func infoFor(e *Entry) FileInfo {
	return FileInfo{
		Handle:     handleFor(e),
		Name:       e.Name,
		Type:       e.Type,
		Offset:     e.Offset,
		StoredSize: e.StoredSize,
		RealSize:   e.RealSize,
		Attrs:      e.Attrs,
		Valid:      e.Valid,
	}
}

// AttributeKind classifies an archive-level Attribute's value domain.
type AttributeKind int

const (
	AttrKindEnum AttributeKind = iota
	AttrKindText
	AttrKindInteger
)

// Attribute is one archive-level typed field (e.g. "Version", "Description").
// Strategies consult Changed during Flush rather than hooking every setter.
type Attribute struct {
	Kind          AttributeKind
	Name          string
	Description   string
	AllowedValues []string // populated for AttrKindEnum
	Value         string
	changed       bool
}

// SetValue updates the attribute and marks it changed.
func (a *Attribute) SetValue(v string) {
	a.Value = v
	a.changed = true
}

// Changed reports whether SetValue has been called since the last Flush.
func (a *Attribute) Changed() bool { return a.changed }

func (a *Attribute) clearChanged() { a.changed = false }

// FormatInfo is the static metadata a Strategy advertises to the registry.
type FormatInfo struct {
	Code         string
	FriendlyName string
	Extensions   []string
	Games        []string
}
