// Package animcache decides, frame by frame, which records of an animated
// export have to be rewritten. Entities whose content hash did not change are
// held; when a held value finally changes, an extra keyframe closes the held
// interval so the renderer does not interpolate across it.
package animcache

import (
	"fmt"
	"strings"

	"github.com/chazu/vrexport/pkg/record"
)

// Policy selects how re-emission is decided.
type Policy int

const (
	// PolicyNone writes every entity on every frame.
	PolicyNone Policy = iota
	// PolicySimple writes an entity only when the caller reports it touched.
	PolicySimple
	// PolicyHash writes an entity only when its content hash changed.
	PolicyHash
	// PolicyBoth applies the Simple gate, then the Hash rule.
	PolicyBoth
)

func (p Policy) String() string {
	switch p {
	case PolicyNone:
		return "none"
	case PolicySimple:
		return "simple"
	case PolicyHash:
		return "hash"
	case PolicyBoth:
		return "both"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy parses the lower-case policy names used in configuration.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "":
		return PolicyNone, nil
	case "simple":
		return PolicySimple, nil
	case "hash":
		return PolicyHash, nil
	case "both":
		return PolicyBoth, nil
	}
	return PolicyNone, fmt.Errorf("animcache: unknown policy %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (p Policy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Policy) UnmarshalText(b []byte) error {
	v, err := ParsePolicy(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Emission is one write the caller has to perform.
type Emission struct {
	Frame  int
	Record *record.Record
	// GapFill marks the extra keyframe that closes a held interval.
	GapFill bool
}

// entry is the cache slot of one entity. The slot owns its snapshot.
type entry struct {
	hash     record.Hash
	frame    int
	snapshot *record.Record
}

// Cache holds per-entity state for one animated export run. It is not safe
// for concurrent use.
type Cache struct {
	policy    Policy
	frameStep int
	entries   map[string]*entry
	// last frame seen per entity, for every policy
	seen map[string]int
}

// New creates a cache. frameStep must be positive.
func New(policy Policy, frameStep int) *Cache {
	if frameStep <= 0 {
		panic(fmt.Sprintf("animcache: frame step must be positive, got %d", frameStep))
	}
	return &Cache{
		policy:    policy,
		frameStep: frameStep,
		entries:   make(map[string]*entry),
		seen:      make(map[string]int),
	}
}

// Policy returns the configured policy.
func (c *Cache) Policy() Policy { return c.policy }

// FrameStep returns the configured frame step.
func (c *Cache) FrameStep() int { return c.frameStep }

// Len returns the number of entities with hash state.
func (c *Cache) Len() int { return len(c.entries) }

// Reset drops all state; used at pass teardown.
func (c *Cache) Reset() {
	c.entries = make(map[string]*entry)
	c.seen = make(map[string]int)
}

// Decide runs one step of the state machine for entity name at frame and
// returns the writes to perform, in order. The record is snapshotted when the
// cache keeps it. Frames must strictly increase per entity; anything else is
// a programming error and panics.
func (c *Cache) Decide(name string, frame int, touched bool, r *record.Record) []Emission {
	if last, ok := c.seen[name]; ok && frame <= last {
		panic(fmt.Sprintf("animcache: frame %d for %q is not after frame %d", frame, name, last))
	}
	c.seen[name] = frame
	return c.decide(name, frame, touched, r)
}

// Retouch decides name again at the frame it was last decided at, this time
// as touched. It serves a record that was held as untouched and is then
// requested by a touched entity in the same frame. Only the Simple and Both
// policies gate on touch; the others return nil.
func (c *Cache) Retouch(name string, frame int, r *record.Record) []Emission {
	if last, ok := c.seen[name]; !ok || last != frame {
		panic(fmt.Sprintf("animcache: retouch of %q at frame %d was not decided there", name, frame))
	}
	if c.policy != PolicySimple && c.policy != PolicyBoth {
		return nil
	}
	return c.decide(name, frame, true, r)
}

func (c *Cache) decide(name string, frame int, touched bool, r *record.Record) []Emission {
	switch c.policy {
	case PolicyNone:
		return []Emission{{Frame: frame, Record: r}}
	case PolicySimple:
		if !touched {
			return nil
		}
		return []Emission{{Frame: frame, Record: r}}
	case PolicyBoth:
		if !touched {
			return nil
		}
		return c.decideHash(name, frame, r)
	case PolicyHash:
		return c.decideHash(name, frame, r)
	default:
		panic(fmt.Sprintf("animcache: invalid policy %d", int(c.policy)))
	}
}

func (c *Cache) decideHash(name string, frame int, r *record.Record) []Emission {
	h := record.ContentHash(r)

	e, ok := c.entries[name]
	if !ok {
		snap := r.Clone()
		c.entries[name] = &entry{hash: h, frame: frame, snapshot: snap}
		return []Emission{{Frame: frame, Record: snap}}
	}
	if e.hash == h {
		return nil
	}

	var out []Emission
	prevFrame := frame - c.frameStep
	if e.frame < prevFrame {
		out = append(out, Emission{Frame: prevFrame, Record: e.snapshot, GapFill: true})
	}
	snap := r.Clone()
	out = append(out, Emission{Frame: frame, Record: snap})

	e.hash = h
	e.frame = frame
	e.snapshot = snap
	return out
}
