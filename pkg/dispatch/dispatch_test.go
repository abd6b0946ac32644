package dispatch

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cairnfield/tempo/pkg/fileinfo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleFiles(n int) []fileinfo.FileInfo {
	files := make([]fileinfo.FileInfo, n)
	for i := range files {
		files[i] = fileinfo.NewNonTemporal(fmt.Sprintf("f%d.csv", i), nil)
	}
	return files
}

func TestMapPreservesOrderAndAppliesFunc(t *testing.T) {
	files := sampleFiles(5)
	results, err := Map(context.Background(), files, func(_ context.Context, fi fileinfo.FileInfo, _ []byte) (any, error) {
		return fi.Path + "-done", nil
	}, Options{MaxWorkers: 2})

	require.NoError(t, err)
	require.Len(t, results, 5)
	for i, res := range results {
		assert.NoError(t, res.Err)
		assert.Equal(t, fmt.Sprintf("f%d.csv-done", i), res.Value)
	}
}

func TestMapOnContentReadsBeforeCall(t *testing.T) {
	files := sampleFiles(3)
	var mu sync.Mutex
	seen := map[string]string{}

	results, err := Map(context.Background(), files, func(_ context.Context, fi fileinfo.FileInfo, content []byte) (any, error) {
		mu.Lock()
		seen[fi.Path] = string(content)
		mu.Unlock()
		return len(content), nil
	}, Options{
		MaxWorkers: 3,
		OnContent:  true,
		Reader: func(fi fileinfo.FileInfo) ([]byte, error) {
			return []byte("body:" + fi.Path), nil
		},
	})

	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, fi := range files {
		assert.Equal(t, "body:"+fi.Path, seen[fi.Path])
	}
}

func TestMapPropagatesTaskErrorWithoutAbortingOthers(t *testing.T) {
	files := sampleFiles(4)
	results, err := Map(context.Background(), files, func(_ context.Context, fi fileinfo.FileInfo, _ []byte) (any, error) {
		if fi.Path == "f2.csv" {
			return nil, assertErr("boom")
		}
		return fi.Path, nil
	}, Options{MaxWorkers: 2})

	require.NoError(t, err)
	require.Len(t, results, 4)
	for _, res := range results {
		if res.Info.Path == "f2.csv" {
			assert.Error(t, res.Err)
		} else {
			assert.NoError(t, res.Err)
		}
	}
}

type assertErr string

func (e assertErr) Error() string { return string(e) }

func TestMapWritesThroughSinkWhenValueNonNil(t *testing.T) {
	files := sampleFiles(3)
	var mu sync.Mutex
	written := map[string]any{}

	sink := &Sink{
		Render: func(fi fileinfo.FileInfo) (string, error) {
			return "out/" + fi.Path, nil
		},
		Write: func(path string, value any) error {
			mu.Lock()
			written[path] = value
			mu.Unlock()
			return nil
		},
	}

	results, err := Map(context.Background(), files, func(_ context.Context, fi fileinfo.FileInfo, _ []byte) (any, error) {
		if fi.Path == "f1.csv" {
			return nil, nil
		}
		return "value:" + fi.Path, nil
	}, Options{MaxWorkers: 2, Sink: sink})

	require.NoError(t, err)
	for _, res := range results {
		if res.Info.Path == "f1.csv" {
			assert.False(t, res.Written)
		} else {
			assert.True(t, res.Written)
			assert.Equal(t, "value:"+res.Info.Path, written["out/"+res.Info.Path])
		}
	}
}

func TestIMapStreamsInOrderWithBoundedConcurrency(t *testing.T) {
	files := sampleFiles(6)
	var mu sync.Mutex
	var active, maxActive int

	stream := IMap(context.Background(), files, func(_ context.Context, _ fileinfo.FileInfo, _ []byte) (any, error) {
		mu.Lock()
		active++
		if active > maxActive {
			maxActive = active
		}
		mu.Unlock()

		time.Sleep(5 * time.Millisecond)

		mu.Lock()
		active--
		mu.Unlock()
		return nil, nil
	}, Options{MaxWorkers: 2})
	defer stream.Close()

	var order []string
	for {
		res, ok, err := stream.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		order = append(order, res.Info.Path)
	}
	require.NoError(t, stream.Wait())

	require.Len(t, order, 6)
	for i, p := range order {
		assert.Equal(t, fmt.Sprintf("f%d.csv", i), p)
	}
	assert.LessOrEqual(t, maxActive, 2)
}

func TestIMapInitErrorAbortsDispatch(t *testing.T) {
	files := sampleFiles(10)
	stream := IMap(context.Background(), files, func(_ context.Context, fi fileinfo.FileInfo, _ []byte) (any, error) {
		return fi.Path, nil
	}, Options{
		MaxWorkers: 2,
		Init: func() error {
			return assertErr("init failed")
		},
	})
	defer stream.Close()

	err := stream.Wait()
	assert.Error(t, err)
}
