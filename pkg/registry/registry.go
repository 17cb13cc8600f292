// Package registry is the write gate between record producers and the output
// sink. Within one pass every record name is written at most once, so any
// number of call sites can safely request the same shared dependency.
package registry

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/chazu/vrexport/pkg/animcache"
	"github.com/chazu/vrexport/pkg/record"
)

// ErrDuplicateName is returned in strict mode when two different records
// claim the same name within one pass.
var ErrDuplicateName = errors.New("registry: duplicate record name")

// Options configures a Registry.
type Options struct {
	Formatter record.Formatter
	Logger    *slog.Logger

	// StrictNames turns name collisions between records with different
	// content into ErrDuplicateName instead of keeping the first write.
	StrictNames bool

	// Cache enables animated export. Nil means single-frame passes.
	Cache *animcache.Cache
}

// Stats counts registry activity since creation.
type Stats struct {
	Writes   int // physical sink writes
	Skipped  int // requests for names already written this pass
	Held     int // animated requests the cache decided not to write
	GapFills int // extra keyframes closing held intervals
}

// Registry deduplicates records by name and writes them to a sink. It is not
// safe for concurrent use.
type Registry struct {
	sink   Sink
	format record.Formatter
	log    *slog.Logger
	strict bool
	cache  *animcache.Cache

	written map[string]record.Hash
	held    map[string]bool // held this frame only because untouched
	frame   int
	inFrame bool
	stats   Stats
}

// New creates a registry writing to sink.
func New(sink Sink, opts Options) *Registry {
	if sink == nil {
		panic("registry: nil sink")
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	f := opts.Formatter
	if f.Logger == nil {
		f.Logger = log
	}
	return &Registry{
		sink:    sink,
		format:  f,
		log:     log,
		strict:  opts.StrictNames,
		cache:   opts.Cache,
		written: make(map[string]record.Hash),
		held:    make(map[string]bool),
	}
}

// Animated reports whether the registry writes keyframes.
func (r *Registry) Animated() bool { return r.cache != nil }

// Cache returns the animation cache, or nil.
func (r *Registry) Cache() *animcache.Cache { return r.cache }

// Stats returns the counters.
func (r *Registry) Stats() Stats { return r.stats }

// Frame returns the current frame of an animated run.
func (r *Registry) Frame() int { return r.frame }

// Reset starts a new single-frame pass: every name may be written again.
func (r *Registry) Reset() {
	clear(r.written)
	clear(r.held)
	r.inFrame = false
}

// BeginFrame starts the pass for one animation frame.
func (r *Registry) BeginFrame(frame int) {
	if r.cache == nil {
		panic("registry: BeginFrame without an animation cache")
	}
	clear(r.written)
	clear(r.held)
	r.frame = frame
	r.inFrame = true
}

// Written reports whether name was written in the current pass.
func (r *Registry) Written(name string) bool {
	_, ok := r.written[name]
	return ok
}

// Len returns the number of names claimed in the current pass.
func (r *Registry) Len() int { return len(r.written) }

// Export writes rec unless its name was already written in this pass. The
// record counts as touched for the Simple animation gate.
func (r *Registry) Export(rec *record.Record) error {
	return r.ExportTouched(rec, true)
}

// ExportTouched is Export with an explicit "changed this frame" flag, used by
// the Simple and Both animation policies.
func (r *Registry) ExportTouched(rec *record.Record, touched bool) error {
	if rec == nil || rec.Name == "" {
		panic("registry: record without a name")
	}

	if prev, ok := r.written[rec.Name]; ok {
		if touched && r.held[rec.Name] {
			return r.retouch(rec)
		}
		r.stats.Skipped++
		if r.strict {
			if h := record.ContentHash(rec); h != prev {
				return fmt.Errorf("%w: %q (%s) written earlier with %s",
					ErrDuplicateName, rec.Name, h.Short(), prev.Short())
			}
		}
		return nil
	}

	var h record.Hash
	if r.strict {
		h = record.ContentHash(rec)
	}

	if r.cache == nil {
		if err := r.sink.Write(r.format.Record(rec)); err != nil {
			return fmt.Errorf("registry: write %q: %w", rec.Name, err)
		}
		r.written[rec.Name] = h
		r.stats.Writes++
		return nil
	}

	if !r.inFrame {
		panic("registry: animated export outside BeginFrame")
	}
	r.written[rec.Name] = h

	emissions := r.cache.Decide(rec.Name, r.frame, touched, rec)
	if len(emissions) == 0 {
		r.stats.Held++
		if !touched {
			r.held[rec.Name] = true
		}
		return nil
	}
	return r.emit(rec.Name, emissions)
}

// retouch handles a touched request for a name that an untouched request
// held earlier in the same frame.
func (r *Registry) retouch(rec *record.Record) error {
	delete(r.held, rec.Name)
	emissions := r.cache.Retouch(rec.Name, r.frame, rec)
	if len(emissions) == 0 {
		r.stats.Skipped++
		return nil
	}
	r.stats.Held--
	return r.emit(rec.Name, emissions)
}

func (r *Registry) emit(name string, emissions []animcache.Emission) error {
	for _, e := range emissions {
		if e.GapFill {
			r.stats.GapFills++
			r.log.Debug("registry: gap-fill keyframe",
				"record", name,
				"frame", e.Frame)
		}
		if err := r.sink.Write(r.format.RecordAt(e.Record, e.Frame)); err != nil {
			return fmt.Errorf("registry: write %q at frame %d: %w", name, e.Frame, err)
		}
		r.stats.Writes++
	}
	return nil
}

// WriteRaw writes text that is not a record (headers, comments).
func (r *Registry) WriteRaw(text string) error {
	return r.sink.Write(text)
}
