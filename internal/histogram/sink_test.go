package histogram

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSink_LinesDoNotInterleave(t *testing.T) {
	var buf bytes.Buffer
	s := NewSink(&buf)

	const writers, perWriter = 8, 200
	payload := strings.Repeat("x", 3000)
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				assert.NoError(t, s.WriteLine(fmt.Sprintf("w%d-%d\t%s\n", w, i, payload)))
			}
		}()
	}
	wg.Wait()
	require.NoError(t, s.Close())

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	assert.Len(t, lines, writers*perWriter)
	for _, l := range lines {
		parts := strings.Split(l, "\t")
		require.Len(t, parts, 2)
		assert.Equal(t, payload, parts[1])
	}
}

func TestCreateSink_Truncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "histogram.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("stale\tline\n"), 0o644))

	s, err := CreateSink(path)
	require.NoError(t, err)
	require.NoError(t, s.WriteLine("a.jpg\t1\n"))
	require.NoError(t, s.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a.jpg\t1\n", string(data))
}
