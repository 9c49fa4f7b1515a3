package facts

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/spliced/internal/core/extraction"
)

func TestCache_GeneratesOnce(t *testing.T) {
	ext := &extraction.MockExtractor{Default: extraction.Result{Data: []byte(`{"library": "libfoo"}`)}}
	c := NewCache(NewFileStore(t.TempDir()), ext)

	first, ok := c.GetOrGenerate(context.Background(), "/opt/lib/libfoo.so", "smeagle")
	require.True(t, ok)
	second, ok := c.GetOrGenerate(context.Background(), "/opt/lib/libfoo.so", "smeagle")
	require.True(t, ok)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, ext.CallCount("/opt/lib/libfoo.so"))

	data, err := os.ReadFile(second.Path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"library": "libfoo"}`, string(data))
}

func TestCache_ReusesExistingDirectory(t *testing.T) {
	dir := t.TempDir()
	ext := &extraction.MockExtractor{Default: extraction.Result{Data: []byte(`{"a": 1}`)}}

	_, ok := NewCache(NewFileStore(dir), ext).GetOrGenerate(context.Background(), "/lib/x.so", "smeagle")
	require.True(t, ok)
	_, ok = NewCache(NewFileStore(dir), ext).GetOrGenerate(context.Background(), "/lib/x.so", "smeagle")
	require.True(t, ok)

	assert.Equal(t, 1, ext.CallCount("/lib/x.so"))
}

func TestCache_FailureIsNotRetried(t *testing.T) {
	ext := &extraction.MockExtractor{Default: extraction.Result{ReturnCode: 1, Message: "no dwarf"}}
	c := NewCache(NewFileStore(t.TempDir()), ext)

	_, ok := c.GetOrGenerate(context.Background(), "/opt/lib/libbad.so", "smeagle")
	assert.False(t, ok)
	_, ok = c.GetOrGenerate(context.Background(), "/opt/lib/libbad.so", "smeagle")
	assert.False(t, ok)

	assert.Equal(t, 1, ext.CallCount("/opt/lib/libbad.so"))
}

func TestCache_EmptyDataIsFailure(t *testing.T) {
	ext := &extraction.MockExtractor{Default: extraction.Result{ReturnCode: 0}}
	c := NewCache(NewFileStore(t.TempDir()), ext)

	_, ok := c.GetOrGenerate(context.Background(), "/opt/lib/libempty.so", "smeagle")
	assert.False(t, ok)
}

type slowExtractor struct {
	calls atomic.Int32
}

func (s *slowExtractor) Extract(ctx context.Context, lib string) extraction.Result {
	s.calls.Add(1)
	time.Sleep(50 * time.Millisecond)
	return extraction.Result{Data: []byte(`{"library": "` + lib + `"}`)}
}

func TestCache_ConcurrentRequestsShareExtraction(t *testing.T) {
	ext := &slowExtractor{}
	c := NewCache(NewFileStore(t.TempDir()), ext)

	var wg sync.WaitGroup
	paths := make([]string, 8)
	for i := range paths {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			entry, ok := c.GetOrGenerate(context.Background(), "/opt/lib/libfoo.so", "smeagle")
			assert.True(t, ok)
			paths[i] = entry.Path
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), ext.calls.Load())
	for _, p := range paths {
		assert.Equal(t, paths[0], p)
	}
}
