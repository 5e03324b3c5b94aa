package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/article-summarizer/internal/summarizer"
)

func ids(records []summarizer.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestRecentNewestFirst(t *testing.T) {
	t.Parallel()

	s := New(3)
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		require.NoError(t, s.Save(ctx, summarizer.Record{ID: fmt.Sprintf("r%d", i)}))
	}

	got, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"r5", "r4", "r3"}, ids(got))

	got, err = s.Recent(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"r5", "r4"}, ids(got))
}

func TestRecentEmptyAndNegative(t *testing.T) {
	t.Parallel()

	s := New(0)
	got, err := s.Recent(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, s.Save(context.Background(), summarizer.Record{ID: "a"}))
	got, err = s.Recent(context.Background(), -1)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestConcurrentSaves(t *testing.T) {
	t.Parallel()

	s := New(50)
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Save(context.Background(), summarizer.Record{ID: fmt.Sprint(i)})
		}()
	}
	wg.Wait()

	got, err := s.Recent(context.Background(), 100)
	require.NoError(t, err)
	assert.Len(t, got, 20)
}
