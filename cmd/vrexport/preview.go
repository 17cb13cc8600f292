package main

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/chazu/vrexport/pkg/engine"
	"github.com/chazu/vrexport/pkg/kernel"
	"github.com/chazu/vrexport/pkg/kernel/sdfx"
	"github.com/chazu/vrexport/pkg/tessellate"
	"github.com/spf13/cobra"
)

// colorPalette assigns distinct viewport colors to meshes.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// MeshData is one tessellated mesh node as a viewer consumes it.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	Name     string    `json:"name"` // tree/node
	Color    string    `json:"color"`
}

// EvalErrorData is a script or tessellation error.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// PreviewResult is the JSON document written by preview.
type PreviewResult struct {
	Frame    int             `json:"frame"`
	Meshes   []MeshData      `json:"meshes"`
	Errors   []EvalErrorData `json:"errors"`
	Warnings []EvalErrorData `json:"warnings"`
}

func newPreviewCmd(g *globals) *cobra.Command {
	var (
		frame  int
		indent bool
	)
	cmd := &cobra.Command{
		Use:   "preview <script>",
		Short: "Print the scene's meshes as JSON for a viewer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load(cmd)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("frame") {
				frame = cfg.Animation.Start
			}
			source, err := readScript(args[0])
			if err != nil {
				return err
			}
			log := newLogger(cfg, cmd.ErrOrStderr())
			p := &previewer{
				engine:  engine.NewEngine(engine.Options{Logger: log}),
				kernel:  sdfx.New(cfg.MeshCells),
				workers: cfg.Workers,
				log:     log,
			}
			res := p.Preview(cmd.Context(), source, frame)

			enc := json.NewEncoder(cmd.OutOrStdout())
			if indent {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(res)
		},
	}
	cmd.Flags().IntVar(&frame, "frame", 1, "frame to evaluate the script at")
	cmd.Flags().BoolVar(&indent, "indent", false, "indent the JSON output")
	return cmd
}

// previewer evaluates and tessellates scripts without writing records.
type previewer struct {
	engine  *engine.Engine
	kernel  kernel.Kernel
	workers int
	log     *slog.Logger
}

// Preview evaluates source at frame and returns its meshes. Failures are
// reported in the result, never as an error.
func (p *previewer) Preview(ctx context.Context, source string, frame int) PreviewResult {
	result := PreviewResult{
		Frame:    frame,
		Meshes:   []MeshData{},
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
	}

	scene, evalErrs, err := p.engine.Evaluate(source, frame)
	if err != nil {
		p.log.Error("preview: evaluate failed", "error", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, EvalErrorData{Line: e.Line, Col: e.Col, Message: e.Message})
		}
		return result
	}

	table := tessellate.NewTable(p.kernel)
	if err := tessellate.Tessellate(ctx, scene, table, p.workers, p.log); err != nil {
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}

	for _, n := range tessellate.MeshNodes(scene) {
		m, err := table.Mesh(n)
		if err != nil {
			// Already logged by Tessellate; the viewer shows it as a warning.
			result.Warnings = append(result.Warnings, EvalErrorData{Message: err.Error()})
			continue
		}
		result.Meshes = append(result.Meshes, MeshData{
			Vertices: m.Vertices,
			Normals:  m.Normals,
			Indices:  m.Indices,
			Name:     n.Tree().Name + "/" + n.Name,
			Color:    colorPalette[len(result.Meshes)%len(colorPalette)],
		})
	}
	return result
}
