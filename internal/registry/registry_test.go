package registry

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/mesh-intelligence/filestore/pkg/types"
)

type recordingEvictor struct {
	mu      sync.Mutex
	evicted []string
}

func (e *recordingEvictor) EvictHandler(name string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.evicted = append(e.evicted, name)
	return 1
}

func (e *recordingEvictor) names() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.evicted...)
}

func factory(name string) types.HandlerFactory {
	return types.NewHandlerFactory(name, func(string, types.Kwargs) (types.Handler, error) {
		return types.HandlerFunc(func(types.Kwargs) (any, error) { return name, nil }), nil
	})
}

func TestRegister_Idempotent(t *testing.T) {
	ev := &recordingEvictor{}
	r := New(WithEvictor(ev))
	h := factory("h")

	require.NoError(t, r.Register("AD_TIFF", h, false))
	require.NoError(t, r.Register("AD_TIFF", h, false))
	require.NoError(t, r.Register("AD_TIFF", h, true))

	got, err := r.Resolve("AD_TIFF")
	require.NoError(t, err)
	assert.True(t, got == h)
	assert.Empty(t, ev.names(), "re-registering the same factory must not evict")
}

func TestRegister_Conflict(t *testing.T) {
	ev := &recordingEvictor{}
	r := New(WithEvictor(ev))
	h1, h2 := factory("h1"), factory("h2")

	require.NoError(t, r.Register("AD_TIFF", h1, false))

	err := r.Register("AD_TIFF", h2, false)
	var dup *types.DuplicateHandlerError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "AD_TIFF", dup.Spec)
	assert.Equal(t, "h1", dup.Existing)
	assert.Equal(t, "h2", dup.Requested)
	assert.Empty(t, ev.names())

	got, err := r.Resolve("AD_TIFF")
	require.NoError(t, err)
	assert.True(t, got == h1, "failed registration must leave the binding unchanged")

	require.NoError(t, r.Register("AD_TIFF", h2, true))
	got, err = r.Resolve("AD_TIFF")
	require.NoError(t, err)
	assert.True(t, got == h2)
	assert.Equal(t, []string{"h1"}, ev.names())
}

func TestDeregister(t *testing.T) {
	ev := &recordingEvictor{}
	r := New(WithEvictor(ev))

	r.Deregister("missing")
	assert.Empty(t, ev.names(), "deregistering an absent spec is a no-op")

	require.NoError(t, r.Register("npy", factory("npy-handler"), false))
	r.Deregister("npy")

	_, err := r.Resolve("npy")
	assert.ErrorIs(t, err, types.ErrKeyNotFound)
	assert.Equal(t, []string{"npy-handler"}, ev.names())
}

func TestResolve_KeyNotFound(t *testing.T) {
	r := New()
	_, err := r.Resolve("AD_SPE")

	var knf *types.KeyNotFoundError
	require.ErrorAs(t, err, &knf)
	assert.Equal(t, "AD_SPE", knf.Spec)
}

func TestWithTemporaryHandlers(t *testing.T) {
	base, temp := factory("base"), factory("temp")

	tests := []struct {
		name    string
		body    func() error
		wantErr error
	}{
		{name: "body succeeds", body: func() error { return nil }},
		{name: "body fails", body: func() error { return errBody }, wantErr: errBody},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := &recordingEvictor{}
			r := New(WithEvictor(ev))
			require.NoError(t, r.Register("AD_TIFF", base, false))

			err := r.WithTemporaryHandlers(map[string]types.HandlerFactory{"AD_TIFF": temp, "syn": temp}, func() error {
				got, err := r.Resolve("AD_TIFF")
				require.NoError(t, err)
				assert.True(t, got == temp)
				assert.Equal(t, 2, r.Depth())
				return tt.body()
			})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}

			got, err := r.Resolve("AD_TIFF")
			require.NoError(t, err)
			assert.True(t, got == base)
			_, err = r.Resolve("syn")
			assert.ErrorIs(t, err, types.ErrKeyNotFound)
			assert.Equal(t, 1, r.Depth())
			assert.Equal(t, []string{"temp", "temp"}, ev.names(), "evicted on push and on pop")
		})
	}
}

var errBody = errors.New("body failed")

func TestWithTemporaryHandlers_Panic(t *testing.T) {
	r := New()
	base := factory("base")
	require.NoError(t, r.Register("AD_TIFF", base, false))

	assert.Panics(t, func() {
		_ = r.WithTemporaryHandlers(map[string]types.HandlerFactory{"AD_TIFF": factory("temp")}, func() error {
			panic("boom")
		})
	})

	got, err := r.Resolve("AD_TIFF")
	require.NoError(t, err)
	assert.True(t, got == base)
	assert.Equal(t, 1, r.Depth())
}

func TestWithTemporaryHandlers_Nested(t *testing.T) {
	r := New()
	a, b, c := factory("a"), factory("b"), factory("c")
	require.NoError(t, r.Register("x", a, false))

	err := r.WithTemporaryHandlers(map[string]types.HandlerFactory{"x": b}, func() error {
		err := r.WithTemporaryHandlers(map[string]types.HandlerFactory{"x": c}, func() error {
			got, _ := r.Resolve("x")
			assert.True(t, got == c)
			assert.Equal(t, 3, r.Depth())
			return nil
		})
		require.NoError(t, err)

		got, _ := r.Resolve("x")
		assert.True(t, got == b, "inner exit restores the outer overlay, not the root")
		return nil
	})
	require.NoError(t, err)

	got, _ := r.Resolve("x")
	assert.True(t, got == a)
}

func TestWithTemporaryHandlers_RegisterInsideScope(t *testing.T) {
	ev := &recordingEvictor{}
	r := New(WithEvictor(ev))
	require.NoError(t, r.Register("x", factory("a"), false))

	err := r.WithTemporaryHandlers(nil, func() error {
		return r.Register("y", factory("scoped"), false)
	})
	require.NoError(t, err)

	_, err = r.Resolve("y")
	assert.ErrorIs(t, err, types.ErrKeyNotFound, "bindings made inside a scope are discarded with it")
	assert.Equal(t, []string{"scoped"}, ev.names())
}

func TestPush_RestoreOnce(t *testing.T) {
	r := New()
	restore := r.Push(map[string]types.HandlerFactory{"x": factory("x")})
	inner := r.Push(nil)
	inner()
	restore()
	restore()
	assert.Equal(t, 1, r.Depth())
	assert.Empty(t, r.Specs())
}

func TestPush_RestoreOutOfOrder(t *testing.T) {
	ev := &recordingEvictor{}
	r := New(WithEvictor(ev))
	require.NoError(t, r.Register("x", factory("base"), false))

	first := r.Push(map[string]types.HandlerFactory{"x": factory("first"), "a": factory("a")})
	second := r.Push(map[string]types.HandlerFactory{"b": factory("b")})
	ev.evicted = nil

	first()
	assert.Equal(t, []string{"a", "first"}, ev.names(), "only the restored layer is evicted")
	assert.Equal(t, 2, r.Depth())
	assert.Equal(t, []string{"b", "x"}, r.Specs())
	got, err := r.Resolve("x")
	require.NoError(t, err)
	assert.Equal(t, "base", got.Name())

	second()
	assert.Equal(t, []string{"a", "first", "b"}, ev.names())
	assert.Equal(t, 1, r.Depth())
	assert.Equal(t, []string{"x"}, r.Specs())
}

func TestPush_ConcurrentOverlays(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("x", factory("base"), false))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.WithTemporaryHandlers(map[string]types.HandlerFactory{"tmp": factory("tmp")}, func() error {
				_, err := r.Resolve("tmp")
				return err
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, r.Depth())
	assert.Equal(t, []string{"x"}, r.Specs())
}

func TestSpecs(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("b", factory("b"), false))
	require.NoError(t, r.Register("a", factory("a"), false))

	restore := r.Push(map[string]types.HandlerFactory{"c": factory("c"), "a": factory("a2")})
	assert.Equal(t, []string{"a", "b", "c"}, r.Specs())
	restore()
	assert.Equal(t, []string{"a", "b"}, r.Specs())
}

// TestOverlayRestoration_Property checks that any sequence of operations
// inside a scope leaves every spec resolving exactly as it did before entry.
func TestOverlayRestoration_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		specs := []string{"AD_HDF5", "AD_SPE", "AD_TIFF", "npy"}
		pool := []types.HandlerFactory{factory("f0"), factory("f1"), factory("f2"), factory("f3")}
		r := New()

		for _, spec := range specs {
			if rapid.Bool().Draw(rt, "bound-"+spec) {
				idx := rapid.IntRange(0, len(pool)-1).Draw(rt, "factory-"+spec)
				if err := r.Register(spec, pool[idx], false); err != nil {
					rt.Fatalf("initial register: %v", err)
				}
			}
		}
		before := snapshot(r, specs)

		overlay := make(map[string]types.HandlerFactory)
		for _, spec := range specs {
			if rapid.Bool().Draw(rt, "overlay-"+spec) {
				overlay[spec] = pool[rapid.IntRange(0, len(pool)-1).Draw(rt, "overlay-factory-"+spec)]
			}
		}
		ops := rapid.IntRange(0, 8).Draw(rt, "ops")
		fail := rapid.Bool().Draw(rt, "fail")

		_ = r.WithTemporaryHandlers(overlay, func() error {
			for i := 0; i < ops; i++ {
				spec := rapid.SampledFrom(specs).Draw(rt, "op-spec")
				switch rapid.IntRange(0, 2).Draw(rt, "op") {
				case 0:
					_ = r.Register(spec, rapid.SampledFrom(pool).Draw(rt, "op-factory"), true)
				case 1:
					r.Deregister(spec)
				default:
					_, _ = r.Resolve(spec)
				}
			}
			if fail {
				return errBody
			}
			return nil
		})

		after := snapshot(r, specs)
		for _, spec := range specs {
			if before[spec] != after[spec] {
				rt.Fatalf("spec %s: before %v, after %v", spec, before[spec], after[spec])
			}
		}
		if r.Depth() != 1 {
			rt.Fatalf("depth %d after scope exit", r.Depth())
		}
	})
}

func snapshot(r *Registry, specs []string) map[string]types.HandlerFactory {
	out := make(map[string]types.HandlerFactory, len(specs))
	for _, spec := range specs {
		f, err := r.Resolve(spec)
		if err == nil {
			out[spec] = f
		}
	}
	return out
}
