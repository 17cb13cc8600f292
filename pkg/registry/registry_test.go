package registry

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/vrexport/pkg/animcache"
	"github.com/chazu/vrexport/pkg/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mesh(name string, v float64) *record.Record {
	return record.New("GeomPlane", name).Set("size", record.Float(v))
}

func TestExportIsIdempotentWithinPass(t *testing.T) {
	sink := &MemorySink{}
	r := New(sink, Options{})

	require.NoError(t, r.Export(mesh("Plane", 1)))
	require.NoError(t, r.Export(mesh("Plane", 1)))
	require.NoError(t, r.Export(mesh("Plane", 1)))

	assert.Len(t, sink.Writes(), 1)
	assert.True(t, r.Written("Plane"))
	assert.Equal(t, Stats{Writes: 1, Skipped: 2}, r.Stats())
}

func TestResetStartsNewPass(t *testing.T) {
	sink := &MemorySink{}
	r := New(sink, Options{})

	require.NoError(t, r.Export(mesh("Plane", 1)))
	r.Reset()
	assert.False(t, r.Written("Plane"))
	require.NoError(t, r.Export(mesh("Plane", 1)))

	assert.Len(t, sink.Writes(), 2)
}

func TestCollisionKeepsFirstWhenLenient(t *testing.T) {
	sink := &MemorySink{}
	r := New(sink, Options{})

	require.NoError(t, r.Export(mesh("Plane", 1)))
	require.NoError(t, r.Export(mesh("Plane", 2)))

	require.Len(t, sink.Writes(), 1)
	assert.Contains(t, sink.String(), "size=1.0;")
}

func TestCollisionIsErrorWhenStrict(t *testing.T) {
	sink := &MemorySink{}
	r := New(sink, Options{StrictNames: true})

	require.NoError(t, r.Export(mesh("Plane", 1)))
	require.NoError(t, r.Export(mesh("Plane", 1)), "identical content is not a collision")

	err := r.Export(mesh("Plane", 2))
	assert.ErrorIs(t, err, ErrDuplicateName)
	assert.Len(t, sink.Writes(), 1)
}

func TestSinkErrorIsReturnedAndNameStaysFree(t *testing.T) {
	boom := errors.New("disk full")
	fail := true
	sink := SinkFunc(func(string) error {
		if fail {
			return boom
		}
		return nil
	})
	r := New(sink, Options{})

	assert.ErrorIs(t, r.Export(mesh("Plane", 1)), boom)
	assert.False(t, r.Written("Plane"))

	fail = false
	assert.NoError(t, r.Export(mesh("Plane", 1)))
	assert.True(t, r.Written("Plane"))
}

func TestAnimatedExportGapFill(t *testing.T) {
	sink := &MemorySink{}
	r := New(sink, Options{Cache: animcache.New(animcache.PolicyHash, 1)})
	require.True(t, r.Animated())

	values := []float64{1, 1, 1, 2, 2}
	for i, v := range values {
		r.BeginFrame(i + 1)
		require.NoError(t, r.Export(mesh("Plane", v)))
		// Requests within the same frame are still deduplicated.
		require.NoError(t, r.Export(mesh("Plane", v)))
	}

	writes := sink.Writes()
	require.Len(t, writes, 3)
	assert.Contains(t, writes[0], "size=interpolate((1, 1.0));")
	assert.Contains(t, writes[1], "size=interpolate((3, 1.0));")
	assert.Contains(t, writes[2], "size=interpolate((4, 2.0));")

	st := r.Stats()
	assert.Equal(t, 1, st.GapFills)
	assert.Equal(t, 3, st.Held)
	assert.Equal(t, 5, st.Skipped)
}

func TestAnimatedSimpleUsesTouchedFlag(t *testing.T) {
	sink := &MemorySink{}
	r := New(sink, Options{Cache: animcache.New(animcache.PolicySimple, 1)})

	r.BeginFrame(1)
	require.NoError(t, r.ExportTouched(mesh("Plane", 1), true))
	r.BeginFrame(2)
	require.NoError(t, r.ExportTouched(mesh("Plane", 1), false))

	assert.Len(t, sink.Writes(), 1)
}

func TestAnimatedTouchedRequestIsOrderIndependent(t *testing.T) {
	for _, policy := range []animcache.Policy{animcache.PolicySimple, animcache.PolicyBoth} {
		t.Run(policy.String(), func(t *testing.T) {
			orders := [][]bool{{true, false}, {false, true}}
			for _, order := range orders {
				sink := &MemorySink{}
				r := New(sink, Options{Cache: animcache.New(policy, 1)})
				for frame := 1; frame <= 2; frame++ {
					r.BeginFrame(frame)
					for _, touched := range order {
						require.NoError(t, r.ExportTouched(mesh("Shared", float64(frame)), touched))
					}
				}
				assert.Len(t, sink.Writes(), 2, "order %v", order)
				assert.Zero(t, r.Stats().Held, "order %v", order)
			}
		})
	}
}

func TestAnimatedUntouchedOnlyStaysHeld(t *testing.T) {
	sink := &MemorySink{}
	r := New(sink, Options{Cache: animcache.New(animcache.PolicySimple, 1)})

	r.BeginFrame(1)
	require.NoError(t, r.ExportTouched(mesh("Plane", 1), true))
	r.BeginFrame(2)
	require.NoError(t, r.ExportTouched(mesh("Plane", 2), false))
	require.NoError(t, r.ExportTouched(mesh("Plane", 2), false))

	assert.Len(t, sink.Writes(), 1)
	assert.Equal(t, Stats{Writes: 1, Skipped: 1, Held: 1}, r.Stats())
}

func TestMisusePanics(t *testing.T) {
	assert.Panics(t, func() { New(nil, Options{}) })

	r := New(&MemorySink{}, Options{})
	assert.Panics(t, func() { r.BeginFrame(1) })
	assert.Panics(t, func() { _ = r.Export(record.New("T", "")) })

	anim := New(&MemorySink{}, Options{Cache: animcache.New(animcache.PolicyHash, 1)})
	assert.Panics(t, func() { _ = anim.Export(mesh("Plane", 1)) })
}

func TestWriterSink(t *testing.T) {
	var buf bytes.Buffer
	s := NewWriterSink(&buf)
	r := New(s, Options{})
	require.NoError(t, r.Export(mesh("Plane", 1)))
	require.NoError(t, s.Flush())
	assert.Equal(t, "GeomPlane Plane {\n\tsize=1.0;\n}\n", buf.String())
}

func TestFileSinkCreatesDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "scene.vrscene")
	s, err := CreateFileSink(path)
	require.NoError(t, err)
	require.NoError(t, s.Write("// header\n"))
	require.NoError(t, s.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "// header"))
	assert.Equal(t, path, s.Path())
}
