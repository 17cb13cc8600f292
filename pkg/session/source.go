package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/chazu/vrexport/pkg/engine"
	"github.com/chazu/vrexport/pkg/graph"
	"github.com/samber/lo"
)

// ErrScript is returned when a scene script fails to evaluate.
var ErrScript = errors.New("session: scene script failed")

// ScriptSource evaluates source once per frame with eng.
func ScriptSource(eng *engine.Engine, source string) SceneSource {
	return func(ctx context.Context, frame int) (*graph.Scene, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		scene, evalErrs, err := eng.Evaluate(source, frame)
		if err != nil {
			return nil, err
		}
		if len(evalErrs) > 0 {
			errs := lo.Map(evalErrs, func(e engine.EvalError, _ int) error { return e })
			return nil, fmt.Errorf("%w: %w", ErrScript, errors.Join(errs...))
		}
		return scene, nil
	}
}

// StaticSource returns the same scene for every frame.
func StaticSource(scene *graph.Scene) SceneSource {
	return func(context.Context, int) (*graph.Scene, error) { return scene, nil }
}
