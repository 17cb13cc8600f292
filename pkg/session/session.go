// Package session drives export passes. A Session owns all export state of
// one run (registry, animation cache, compiler memo) and turns one scene per
// frame into records on a sink.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/chazu/vrexport/pkg/animcache"
	"github.com/chazu/vrexport/pkg/compiler"
	"github.com/chazu/vrexport/pkg/config"
	"github.com/chazu/vrexport/pkg/graph"
	"github.com/chazu/vrexport/pkg/kernel"
	"github.com/chazu/vrexport/pkg/kernel/sdfx"
	"github.com/chazu/vrexport/pkg/record"
	"github.com/chazu/vrexport/pkg/registry"
	"github.com/chazu/vrexport/pkg/tessellate"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// SettingsName is the record name of the animation settings record.
const SettingsName = "vrexportSettingsOutput"

// SceneSource produces the scene for a frame.
type SceneSource func(ctx context.Context, frame int) (*graph.Scene, error)

// Options configures a Session.
type Options struct {
	// Config defaults to config.Default().
	Config *config.Config

	// Kernel tessellates geometry nodes. Defaults to sdfx with the
	// configured mesh resolution.
	Kernel kernel.Kernel

	Logger  *slog.Logger
	Version string
}

// Stats summarizes a run.
type Stats struct {
	Frames      int
	Entities    int // entity exports over all frames
	GraphErrors int // recoverable faults reported by the compiler
	Registry    registry.Stats
	Compiler    compiler.Stats
}

// flusher is implemented by buffered sinks.
type flusher interface {
	Flush() error
}

// Session is one export run. It is not safe for concurrent use.
type Session struct {
	ID uuid.UUID

	cfg     *config.Config
	sink    registry.Sink
	format  record.Formatter
	reg     *registry.Registry
	cache   *animcache.Cache
	comp    *compiler.Compiler
	kernel  kernel.Kernel
	log     *slog.Logger
	version string

	begun     bool
	lastFrame int
	stats     Stats
}

// New creates a session writing to sink.
func New(sink registry.Sink, opts Options) (*Session, error) {
	if sink == nil {
		return nil, errors.New("session: nil sink")
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	k := opts.Kernel
	if k == nil {
		k = sdfx.New(cfg.MeshCells)
	}
	version := opts.Version
	if version == "" {
		version = "dev"
	}

	id := uuid.New()
	log = log.With("session", id.String())

	var cache *animcache.Cache
	if cfg.Animation.Enabled {
		cache = animcache.New(cfg.Animation.Policy, cfg.Animation.Step)
	}
	format := cfg.Format.Formatter()
	format.Logger = log
	reg := registry.New(sink, registry.Options{
		Formatter:   format,
		Logger:      log,
		StrictNames: cfg.StrictNames,
		Cache:       cache,
	})

	return &Session{
		ID:      id,
		cfg:     cfg,
		sink:    sink,
		format:  format,
		reg:     reg,
		cache:   cache,
		comp:    compiler.New(reg, compiler.Options{Logger: log}),
		kernel:  k,
		log:     log,
		version: version,
	}, nil
}

// Registry returns the session's registry.
func (s *Session) Registry() *registry.Registry { return s.reg }

// Compiler returns the session's compiler, for registering handlers.
func (s *Session) Compiler() *compiler.Compiler { return s.comp }

// Animated reports whether frames are written as keyframes.
func (s *Session) Animated() bool { return s.cache != nil }

// Stats returns counters for the run so far.
func (s *Session) Stats() Stats {
	st := s.stats
	st.Registry = s.reg.Stats()
	st.Compiler = s.comp.Stats()
	return st
}

// Begin writes the file header and, for animated runs, the settings record.
// ExportFrame calls it when needed.
func (s *Session) Begin() error {
	if s.begun {
		return nil
	}
	s.begun = true

	header := fmt.Sprintf("// vrexport %s session=%s\n", s.version, s.ID)
	if err := s.reg.WriteRaw(header); err != nil {
		return fmt.Errorf("session: header: %w", err)
	}
	if !s.Animated() {
		return nil
	}
	a := s.cfg.Animation
	settings := record.New("SettingsOutput", SettingsName).
		Set("anim_start", record.Int(a.Start)).
		Set("anim_end", record.Int(a.End)).
		Set("frame_step", record.Int(a.Step))
	if err := s.reg.WriteRaw(s.format.Record(settings)); err != nil {
		return fmt.Errorf("session: settings: %w", err)
	}
	return nil
}

// ExportFrame exports every entity of scene for frame. Recoverable graph
// faults are logged and counted; any other error aborts the frame. Frames
// of an animated run must increase.
func (s *Session) ExportFrame(ctx context.Context, scene *graph.Scene, frame int) error {
	if scene == nil {
		return errors.New("session: nil scene")
	}
	if s.Animated() && s.stats.Frames > 0 && frame <= s.lastFrame {
		return fmt.Errorf("session: frame %d is not after frame %d", frame, s.lastFrame)
	}
	if err := s.Begin(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if s.Animated() {
		s.reg.BeginFrame(frame)
	} else {
		s.reg.Reset()
	}
	s.comp.Reset()

	res := graph.ValidateAll(scene)
	for _, v := range res.Errors {
		s.log.Warn("session: scene validation", "frame", frame, "tree", v.Tree, "node", v.Node, "error", v.Message)
	}
	for _, v := range res.Warnings {
		s.log.Debug("session: scene validation", "frame", frame, "tree", v.Tree, "node", v.Node, "warning", v.Message)
	}

	meshes := tessellate.NewTable(s.kernel)
	if err := tessellate.Tessellate(ctx, scene, meshes, s.cfg.Workers, s.log); err != nil {
		return fmt.Errorf("session: frame %d: %w", frame, err)
	}
	s.comp.SetMeshes(meshes)

	s.log.Debug("session: exporting frame",
		"frame", frame,
		"entities", len(scene.Entities),
		"touched", lo.CountBy(scene.Entities, func(e *graph.Entity) bool { return e.Touched }),
		"meshes", meshes.Len())

	for _, e := range scene.Entities {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := s.comp.ExportEntity(e); err != nil {
			if !compiler.Recoverable(err) {
				return fmt.Errorf("session: frame %d: entity %q: %w", frame, e.Name, err)
			}
			faults := compiler.GraphErrors(err)
			s.stats.GraphErrors += len(faults)
			s.log.Warn("session: entity exported with errors",
				"frame", frame,
				"entity", e.Name,
				"faults", len(faults),
				"nodes", lo.Uniq(lo.Map(faults, func(ge *compiler.GraphError, _ int) string { return ge.Node })))
		}
		s.stats.Entities++
	}

	s.stats.Frames++
	s.lastFrame = frame
	return s.flush()
}

// Run exports every configured frame, asking src for each frame's scene.
func (s *Session) Run(ctx context.Context, src SceneSource) error {
	frames := s.cfg.Animation.Frames()
	for _, f := range frames {
		if err := ctx.Err(); err != nil {
			return err
		}
		scene, err := src(ctx, f)
		if err != nil {
			return fmt.Errorf("session: frame %d: %w", f, err)
		}
		if err := s.ExportFrame(ctx, scene, f); err != nil {
			return err
		}
	}
	st := s.Stats()
	s.log.Info("session: export finished",
		"frames", st.Frames,
		"entities", st.Entities,
		"writes", st.Registry.Writes,
		"held", st.Registry.Held,
		"gap_fills", st.Registry.GapFills,
		"graph_errors", st.GraphErrors)
	return nil
}

// Close drops cached animation state and flushes the sink.
func (s *Session) Close() error {
	if s.cache != nil {
		s.cache.Reset()
	}
	return s.flush()
}

func (s *Session) flush() error {
	if f, ok := s.sink.(flusher); ok {
		if err := f.Flush(); err != nil {
			return fmt.Errorf("session: flush: %w", err)
		}
	}
	return nil
}
