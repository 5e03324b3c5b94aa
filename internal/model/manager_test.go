package model

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/article-summarizer/internal/format"
	"github.com/JakeFAU/article-summarizer/internal/summarizer"
)

type mockSyncer struct {
	mock.Mock
}

func (m *mockSyncer) EnsureLocal(ctx context.Context, modelID string) (string, error) {
	args := m.Called(ctx, modelID)
	return args.String(0), args.Error(1)
}

type fakeEngine struct {
	loads   atomic.Int32
	loadErr error
	gen     summarizer.Generator
	spec    summarizer.LoadSpec
}

func (f *fakeEngine) Load(_ context.Context, spec summarizer.LoadSpec) (summarizer.Generator, error) {
	f.loads.Add(1)
	f.spec = spec
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.gen, nil
}

type generatorFunc func(ctx context.Context, prompt string, params summarizer.DecodingParams) (string, error)

func (f generatorFunc) Generate(ctx context.Context, prompt string, params summarizer.DecodingParams) (string, error) {
	return f(ctx, prompt, params)
}

func echoGenerator(out string) generatorFunc {
	return func(context.Context, string, summarizer.DecodingParams) (string, error) { return out, nil }
}

func newReadySyncer() *mockSyncer {
	s := &mockSyncer{}
	s.On("EnsureLocal", mock.Anything, "org/model").Return("/models/org-model", nil)
	return s
}

func TestLoadTransitionsToReady(t *testing.T) {
	t.Parallel()

	syncer := newReadySyncer()
	engine := &fakeEngine{gen: echoGenerator("ok")}
	m := NewManager(Config{ModelID: "org/model", Device: "cpu", Quantization: "none", DType: "float32"}, syncer, engine, zap.NewNop())
	require.Equal(t, StateUninitialized, m.State())

	require.NoError(t, m.Load(context.Background()))
	require.NoError(t, m.Load(context.Background()))

	assert.Equal(t, StateReady, m.State())
	assert.True(t, m.Ready())
	assert.Equal(t, int32(1), engine.loads.Load())
	assert.Equal(t, summarizer.LoadSpec{
		ModelID:      "org/model",
		Dir:          "/models/org-model",
		Device:       "cpu",
		Quantization: "none",
		DType:        "float32",
	}, engine.spec)
	info := m.Info()
	assert.Equal(t, "/models/org-model", info.Dir)
	assert.False(t, info.LoadedAt.IsZero())
	syncer.AssertNumberOfCalls(t, "EnsureLocal", 1)
}

func TestLoadFailureIsTerminal(t *testing.T) {
	t.Parallel()

	syncErr := &summarizer.ArtifactSyncError{ModelID: "org/model", Op: "probe", Err: errors.New("bucket unreachable")}
	syncer := &mockSyncer{}
	syncer.On("EnsureLocal", mock.Anything, "org/model").Return("", syncErr).Once()
	engine := &fakeEngine{gen: echoGenerator("ok")}
	m := NewManager(Config{ModelID: "org/model"}, syncer, engine, nil)

	err := m.Load(context.Background())
	var unavailable *summarizer.ModelUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, "failed", unavailable.State)
	var syncFailure *summarizer.ArtifactSyncError
	require.ErrorAs(t, err, &syncFailure)

	require.ErrorAs(t, m.Load(context.Background()), &unavailable)
	assert.Equal(t, StateFailed, m.State())
	assert.Contains(t, m.Info().Error, "bucket unreachable")
	assert.Equal(t, int32(0), engine.loads.Load())
	syncer.AssertExpectations(t)
}

func TestEngineLoadFailure(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{loadErr: errors.New("weights missing")}
	m := NewManager(Config{ModelID: "org/model"}, newReadySyncer(), engine, nil)

	err := m.Load(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "weights missing")
	assert.Equal(t, StateFailed, m.State())
}

func TestGenerateBeforeReadyDoesNotCallEngine(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	gen := generatorFunc(func(context.Context, string, summarizer.DecodingParams) (string, error) {
		calls.Add(1)
		return "x", nil
	})
	m := NewManager(Config{ModelID: "org/model"}, newReadySyncer(), &fakeEngine{gen: gen}, nil)

	_, err := m.Generate(context.Background(), summarizer.GenerationRequest{Text: "article"})
	var unavailable *summarizer.ModelUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, "uninitialized", unavailable.State)
	assert.Zero(t, calls.Load())
}

func TestGenerateFormatsPromptAndOutput(t *testing.T) {
	t.Parallel()

	params := summarizer.DecodingParams{MaxLength: 64, NumBeams: 4}
	var gotPrompt string
	var gotParams summarizer.DecodingParams
	gen := generatorFunc(func(_ context.Context, prompt string, p summarizer.DecodingParams) (string, error) {
		gotPrompt, gotParams = prompt, p
		return "  first point.<n>Second point", nil
	})
	m := NewManager(Config{ModelID: "org/model", Params: params}, newReadySyncer(), &fakeEngine{gen: gen}, nil)
	require.NoError(t, m.Load(context.Background()))

	out, err := m.Generate(context.Background(), summarizer.GenerationRequest{Text: "Body text.", Instruction: "Summarize"})
	require.NoError(t, err)
	assert.Equal(t, "first point.\nSecond point.", out)
	assert.Equal(t, format.Prompt("Body text.", "Summarize"), gotPrompt)
	assert.Equal(t, params, gotParams)
}

func TestGenerateWrapsEngineErrorsAndPanics(t *testing.T) {
	t.Parallel()

	cause := errors.New("CUDA out of memory")
	tests := []struct {
		name string
		gen  generatorFunc
		want string
	}{
		{
			name: "error",
			gen: func(context.Context, string, summarizer.DecodingParams) (string, error) {
				return "", cause
			},
			want: "CUDA out of memory",
		},
		{
			name: "panic",
			gen: func(context.Context, string, summarizer.DecodingParams) (string, error) {
				panic("tensor shape mismatch")
			},
			want: "tensor shape mismatch",
		},
		{
			name: "empty",
			gen:  echoGenerator("   "),
			want: "empty summary",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			m := NewManager(Config{ModelID: "org/model"}, newReadySyncer(), &fakeEngine{gen: tc.gen}, nil)
			require.NoError(t, m.Load(context.Background()))

			_, err := m.Generate(context.Background(), summarizer.GenerationRequest{Text: "a"})
			var genErr *summarizer.SummaryGenerationError
			require.ErrorAs(t, err, &genErr)
			assert.ErrorContains(t, err, tc.want)
			assert.Equal(t, StateReady, m.State())
		})
	}
}

func TestProviderBuildsOnce(t *testing.T) {
	t.Parallel()

	var builds atomic.Int32
	engine := &fakeEngine{gen: echoGenerator("ok")}
	p := NewProvider(func() (*Manager, error) {
		builds.Add(1)
		return NewManager(Config{ModelID: "org/model"}, newReadySyncer(), engine, nil), nil
	})

	const callers = 8
	managers := make([]*Manager, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m, err := p.Get(context.Background())
			assert.NoError(t, err)
			managers[i] = m
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), builds.Load())
	assert.Equal(t, int32(1), engine.loads.Load())
	for _, m := range managers {
		assert.Same(t, managers[0], m)
	}
}

func TestProviderReturnsBuildError(t *testing.T) {
	t.Parallel()

	p := NewProvider(func() (*Manager, error) { return nil, errors.New("bad config") })
	m, err := p.Get(context.Background())
	require.EqualError(t, err, "bad config")
	assert.Nil(t, m)
}

func TestProviderManagerDoesNotLoad(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{gen: echoGenerator("ok")}
	p := NewProvider(func() (*Manager, error) {
		return NewManager(Config{ModelID: "org/model"}, newReadySyncer(), engine, nil), nil
	})

	m, err := p.Manager()
	require.NoError(t, err)
	assert.Equal(t, StateUninitialized, m.State())
	assert.Zero(t, engine.loads.Load())

	got, err := p.Get(context.Background())
	require.NoError(t, err)
	assert.Same(t, m, got)
	assert.True(t, got.Ready())
}
