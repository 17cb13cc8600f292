package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/chazu/vrexport/pkg/config"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

// settle is how long the script must stay quiet before a re-export. Editors
// often write a file in several steps.
const settle = 150 * time.Millisecond

func newWatchCmd(g *globals) *cobra.Command {
	af := &animFlags{}
	cmd := &cobra.Command{
		Use:   "watch <script>",
		Short: "Re-export the scene every time the script changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load(cmd)
			if err != nil {
				return err
			}
			if err := af.apply(cmd, cfg); err != nil {
				return err
			}
			if cfg.Output == "-" {
				return errors.New("watch needs an output file, not stdout")
			}
			log := newLogger(cfg, cmd.ErrOrStderr())
			return watch(cmd.Context(), cfg, log, args[0], nil)
		},
	}
	af.register(cmd)
	return cmd
}

// watch exports path once and again after every change until ctx is done.
// Failed exports are logged and watching goes on. done, if not nil, is
// called after each export attempt.
func watch(ctx context.Context, cfg *config.Config, log *slog.Logger, path string, done func(error)) error {
	path, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer w.Close()

	// Watch the directory: editors that save by rename drop a watch on the
	// file itself.
	if err := w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch: %w", err)
	}

	run := func() {
		err := exportFile(ctx, cfg, log, path)
		if err != nil {
			log.Error("watch: export failed", "script", path, "error", err)
		}
		if done != nil {
			done(err)
		}
	}
	run()
	log.Info("watch: watching", "script", path)

	timer := time.NewTimer(settle)
	timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			log.Debug("watch: change", "op", event.Op.String())
			timer.Reset(settle)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch: watcher error", "error", err)
		case <-timer.C:
			run()
		}
	}
}

func exportFile(ctx context.Context, cfg *config.Config, log *slog.Logger, path string) error {
	source, err := readScript(path)
	if err != nil {
		return err
	}
	st, err := export(ctx, cfg, log, source, nil)
	if err != nil {
		return err
	}
	log.Info("watch: exported",
		"frames", st.Frames,
		"writes", st.Registry.Writes,
		"graph_errors", st.GraphErrors)
	return nil
}
