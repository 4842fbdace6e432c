// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Camoto-Go contributors
// Source: github.com/camoto-go/gamearchive

package gamearchive

import (
	"io"
	"sync"
	"weak"
)

// BackingStream is the random-access bidirectional byte stream a format
// strategy reads and writes. The segmented stream layer adapts one of
// these into insert/remove semantics. Concrete implementations must be
// comparable (a pointer to a file handle or in-memory buffer, as every
// example in this module is) since Registry.Open uses the value as a map
// key to reject a second Archive over the same stream.
type BackingStream interface {
	io.ReadWriteSeeker
	Truncate(n int64) error
}

// Hooks is the strategy hook contract a format plugin implements. Every
// method has a sensible default via BaseHooks; a strategy embeds BaseHooks
// and overrides only the hooks its format needs.
type Hooks interface {
	// BindArchive gives the strategy a back-reference to the engine
	// instance it serves, called once by NewArchive. Strategies use it to
	// reach Stream/ShiftFiles/EntryCount from inside their hooks, e.g. to
	// grow an embedded FAT table that sits ahead of the data region.
	BindArchive(a *Archive)
	// CreateNewFATEntry allocates a new Entry, letting the strategy extend
	// StrategyData before the engine populates the common fields.
	CreateNewFATEntry() *Entry
	// UpdateFileName persists a renamed entry's new name on disk.
	UpdateFileName(e *Entry, name string) error
	// UpdateFileOffset is called during shiftFiles for every entry whose
	// offset moved by delta; the default is a no-op for formats that don't
	// store offsets explicitly.
	UpdateFileOffset(e *Entry, delta int64) error
	// UpdateFileSize persists a resized entry's new size on disk.
	UpdateFileSize(e *Entry, delta int64) error
	// PreInsert writes the new on-disk FAT record and sets new.HeaderLen.
	PreInsert(before, newEntry *Entry) error
	// PostInsert runs after the new entry is live (e.g. bump file count).
	PostInsert(newEntry *Entry) error
	// PreRemove deletes the on-disk FAT record for e.
	PreRemove(e *Entry) error
	// PostRemove runs after e is marked tombstoned (e.g. decrement file count).
	PostRemove(e *Entry) error
	// Attribute handles an archive-level attribute write at index i.
	Attribute(i int, v string) error
	// Flush commits any strategy-private buffered stream (e.g. an
	// encrypted FAT) before the segmented stream commits.
	Flush() error
	// SupportedAttributes reports which per-entry attribute bits this
	// format honors; Insert rejects attrs outside this set.
	SupportedAttributes() EntryAttr
}

// BaseHooks implements every Hooks method with the default behavior the
// hook contract table specifies. Strategies embed it and override only
// what their format needs, following the "composition over deep
// inheritance" guidance for per-entry extension.
type BaseHooks struct {
	Archive *Archive
}

func (h *BaseHooks) BindArchive(a *Archive) { h.Archive = a }

func (BaseHooks) CreateNewFATEntry() *Entry { return &Entry{} }

func (BaseHooks) UpdateFileName(*Entry, string) error {
	return &NotSupportedError{Msg: "this format has no filenames"}
}

func (BaseHooks) UpdateFileOffset(*Entry, int64) error { return nil }

func (BaseHooks) UpdateFileSize(*Entry, int64) error { return nil }

func (BaseHooks) PreInsert(*Entry, *Entry) error { return nil }

func (BaseHooks) PostInsert(*Entry) error { return nil }

func (BaseHooks) PreRemove(*Entry) error { return nil }

func (BaseHooks) PostRemove(*Entry) error { return nil }

func (BaseHooks) Attribute(int, string) error { return nil }

func (BaseHooks) Flush() error { return nil }

func (BaseHooks) SupportedAttributes() EntryAttr {
	return AttrCompressed | AttrEncrypted | AttrFolder | AttrDefault | AttrHidden | AttrVacant
}

// Factory is what a format package registers: format metadata plus the
// three strategy entry points (signature check, open-existing,
// create-new).
type Factory struct {
	Info FormatInfo
	// Identify performs the cheap signature classification from the first
	// bytes of a candidate stream.
	Identify func(r io.ReaderAt, size int64) (Certainty, error)
	// Open parses an existing archive's header and FAT into an *Archive.
	// supp carries any supplemental streams the format needs (keyed by
	// the strategy's own convention, e.g. "FAT" for Doofus G-D).
	Open func(rw BackingStream, supp map[string]BackingStream) (*Archive, error)
	// New builds an empty archive of this format. Nil if the format
	// cannot be created from scratch (e.g. Doofus G-D).
	New func(rw BackingStream, supp map[string]BackingStream) (*Archive, error)
}

// Registry maps format codes to factories and supports probe-based open.
type Registry struct {
	mu          sync.Mutex
	factories   []Factory
	byCode      map[string]int
	liveStreams map[BackingStream]weak.Pointer[Archive]
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byCode:      make(map[string]int),
		liveStreams: make(map[BackingStream]weak.Pointer[Archive]),
	}
}

// claimStream records rw as owned by arc, rejecting the claim if another
// still-live Archive already wraps the same backing stream. The claim is
// tracked weakly, the same way Archive tracks its own open sub-streams, so
// it releases itself once that Archive is collected rather than needing an
// explicit Close call.
func (r *Registry) claimStream(rw BackingStream, arc *Archive) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if wp, ok := r.liveStreams[rw]; ok && wp.Value() != nil {
		return ErrSameUnderlyingStream
	}
	r.liveStreams[rw] = weak.Make(arc)
	return nil
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide registry that format packages
// register themselves into via init().
func DefaultRegistry() *Registry { return defaultRegistry }

// Register adds a factory. Re-registering the same code replaces it.
func (r *Registry) Register(f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if idx, ok := r.byCode[f.Info.Code]; ok {
		r.factories[idx] = f
		return
	}

	r.byCode[f.Info.Code] = len(r.factories)
	r.factories = append(r.factories, f)
}

// ByCode returns the factory registered under code, if any.
func (r *Registry) ByCode(code string) (Factory, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, ok := r.byCode[code]
	if !ok {
		return Factory{}, false
	}
	return r.factories[idx], true
}

// OpenOptions configures probe-based Open.
type OpenOptions struct {
	// Code forces a specific format instead of probing; empty means probe.
	Code string `json:"code,omitempty" yaml:"code,omitempty"`
	// Force allows opening a PossiblyYes/Unsure match; by default only
	// DefinitelyYes matches are opened automatically.
	Force bool `json:"force,omitempty" yaml:"force,omitempty"`
	// Supp carries supplemental streams keyed by the strategy's convention.
	Supp map[string]BackingStream `json:"-" yaml:"-"`
}

// Open probes every registered factory against rw (unless opts.Code pins
// one), opens the archive with the highest-confidence match, and returns
// it along with the format info that matched.
func (r *Registry) Open(rw BackingStream, opts *OpenOptions) (*Archive, FormatInfo, error) {
	if opts == nil {
		opts = &OpenOptions{}
	}

	if opts.Code != "" {
		f, ok := r.ByCode(opts.Code)
		if !ok {
			return nil, FormatInfo{}, ErrNoStrategyMatch
		}
		arc, err := f.Open(rw, opts.Supp)
		if err != nil {
			return nil, FormatInfo{}, err
		}
		if err := r.claimStream(rw, arc); err != nil {
			return nil, FormatInfo{}, err
		}
		return arc, f.Info, nil
	}

	size, err := streamSize(rw)
	if err != nil {
		return nil, FormatInfo{}, err
	}

	r.mu.Lock()
	candidates := make([]Factory, len(r.factories))
	copy(candidates, r.factories)
	r.mu.Unlock()

	best := -1
	bestCert := DefinitelyNo
	for i, f := range candidates {
		if _, err := rw.Seek(0, io.SeekStart); err != nil {
			return nil, FormatInfo{}, err
		}
		ra, ok := rw.(io.ReaderAt)
		if !ok {
			return nil, FormatInfo{}, &NotSupportedError{Msg: "backing stream does not support ReaderAt for probing"}
		}
		cert, err := f.Identify(ra, size)
		if err != nil {
			continue
		}
		if cert > bestCert || best == -1 {
			best, bestCert = i, cert
		}
	}

	if best == -1 || bestCert == DefinitelyNo {
		return nil, FormatInfo{}, ErrNoStrategyMatch
	}
	if bestCert != DefinitelyYes && !opts.Force {
		return nil, FormatInfo{}, &NotSupportedError{Msg: "best match is only " + bestCert.String() + "; pass Force to open anyway"}
	}

	if _, err := rw.Seek(0, io.SeekStart); err != nil {
		return nil, FormatInfo{}, err
	}
	f := candidates[best]
	arc, err := f.Open(rw, opts.Supp)
	if err != nil {
		return nil, FormatInfo{}, err
	}
	if err := r.claimStream(rw, arc); err != nil {
		return nil, FormatInfo{}, err
	}
	return arc, f.Info, nil
}

func streamSize(rw BackingStream) (int64, error) {
	cur, err := rw.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	size, err := rw.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	if _, err := rw.Seek(cur, io.SeekStart); err != nil {
		return 0, err
	}
	return size, nil
}
