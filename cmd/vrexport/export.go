package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/chazu/vrexport/pkg/animcache"
	"github.com/chazu/vrexport/pkg/config"
	"github.com/chazu/vrexport/pkg/engine"
	"github.com/chazu/vrexport/pkg/registry"
	"github.com/chazu/vrexport/pkg/session"
	"github.com/spf13/cobra"
)

// animFlags override the animation section of the config.
type animFlags struct {
	animate bool
	start   int
	end     int
	step    int
	policy  string
	strict  bool
}

func (a *animFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.BoolVar(&a.animate, "animate", false, "export the frame range as keyframes")
	f.IntVar(&a.start, "start", 1, "first frame")
	f.IntVar(&a.end, "end", 1, "last frame")
	f.IntVar(&a.step, "step", 1, "frame step")
	f.StringVar(&a.policy, "policy", "", "keyframe policy: none, simple, hash or both")
	f.BoolVar(&a.strict, "strict-names", false, "fail when two different records share a name")
}

func (a *animFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	if f.Changed("animate") {
		cfg.Animation.Enabled = a.animate
	}
	if f.Changed("start") {
		cfg.Animation.Start = a.start
	}
	if f.Changed("end") {
		cfg.Animation.End = a.end
	}
	if f.Changed("step") {
		cfg.Animation.Step = a.step
	}
	if f.Changed("policy") {
		p, err := animcache.ParsePolicy(a.policy)
		if err != nil {
			return err
		}
		cfg.Animation.Policy = p
	}
	if f.Changed("strict-names") {
		cfg.StrictNames = a.strict
	}
	return cfg.Validate()
}

func newExportCmd(g *globals) *cobra.Command {
	af := &animFlags{}
	cmd := &cobra.Command{
		Use:   "export <script>",
		Short: "Evaluate a scene script and write the scene file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load(cmd)
			if err != nil {
				return err
			}
			if err := af.apply(cmd, cfg); err != nil {
				return err
			}
			log := newLogger(cfg, cmd.ErrOrStderr())
			source, err := readScript(args[0])
			if err != nil {
				return err
			}
			_, err = export(cmd.Context(), cfg, log, source, cmd.OutOrStdout())
			return err
		},
	}
	af.register(cmd)
	return cmd
}

// export runs one full export of source. Output "-" writes to stdout.
func export(ctx context.Context, cfg *config.Config, log *slog.Logger, source string, stdout io.Writer) (session.Stats, error) {
	var (
		sink      registry.Sink
		closeSink func() error
	)
	if cfg.Output == "-" {
		ws := registry.NewWriterSink(stdout)
		sink, closeSink = ws, ws.Flush
	} else {
		fs, err := registry.CreateFileSink(cfg.Output)
		if err != nil {
			return session.Stats{}, err
		}
		sink, closeSink = fs, fs.Close
	}

	s, err := session.New(sink, session.Options{Config: cfg, Logger: log, Version: Version})
	if err != nil {
		closeSink()
		return session.Stats{}, err
	}

	eng := engine.NewEngine(engine.Options{Logger: log})
	runErr := s.Run(ctx, session.ScriptSource(eng, source))
	if err := s.Close(); err != nil && runErr == nil {
		runErr = err
	}
	if err := closeSink(); err != nil && runErr == nil {
		runErr = fmt.Errorf("close output: %w", err)
	}
	if runErr != nil {
		return s.Stats(), runErr
	}
	if cfg.Output != "-" {
		log.Info("export: wrote scene", "path", cfg.Output)
	}
	return s.Stats(), nil
}
