package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/chazu/vrexport/pkg/engine"
	"github.com/chazu/vrexport/pkg/graph"
	"github.com/spf13/cobra"
)

var errInvalid = errors.New("scene has errors")

func newValidateCmd(g *globals) *cobra.Command {
	var frame int
	cmd := &cobra.Command{
		Use:   "validate <script>",
		Short: "Evaluate a scene script and report graph problems",
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
			eng := engine.NewEngine(engine.Options{Logger: newLogger(cfg, cmd.ErrOrStderr())})
			return validate(eng, source, frame, cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVar(&frame, "frame", 1, "frame to evaluate the script at")
	return cmd
}

// validate prints script errors and graph findings to w. It fails when
// there is at least one error.
func validate(eng *engine.Engine, source string, frame int, w io.Writer) error {
	scene, evalErrs, err := eng.Evaluate(source, frame)
	if err != nil {
		return err
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			fmt.Fprintf(w, "script: %s\n", e)
		}
		return errInvalid
	}

	res := graph.ValidateAll(scene)
	for _, v := range res.Errors {
		fmt.Fprintln(w, v)
	}
	for _, v := range res.Warnings {
		fmt.Fprintln(w, v)
	}
	trees := 0
	scene.Walk(func(*graph.Tree) { trees++ })
	fmt.Fprintf(w, "%d entities, %d trees, %d errors, %d warnings\n",
		len(scene.Entities), trees, len(res.Errors), len(res.Warnings))
	if !res.OK() {
		return errInvalid
	}
	return nil
}
