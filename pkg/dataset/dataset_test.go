package dataset

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cairnfield/tempo/pkg/dispatch"
	"github.com/cairnfield/tempo/pkg/fileinfo"
	"github.com/cairnfield/tempo/pkg/handler"
	"github.com/cairnfield/tempo/pkg/tempoerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, root, relPath string, header []string, rows [][]string) {
	t.Helper()
	full := filepath.Join(root, relPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	h := handler.CSVHandler{}
	require.NoError(t, h.Write(full, handler.Content{Header: header, Rows: rows}))
}

func TestFindAndCollect(t *testing.T) {
	root := t.TempDir()
	writeCSV(t, root, "2018/06/data_0100.csv", []string{"a"}, [][]string{{"1"}})
	writeCSV(t, root, "2018/07/data_0100.csv", []string{"a"}, [][]string{{"2"}})

	ds, err := New(root, "{year}/{month}/data_{hour}{minute}.csv", nil, nil, "", nil)
	require.NoError(t, err)

	files, err := ds.Collect(context.Background(),
		time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "2018/06/data_0100.csv", filepath.ToSlash(files[0].Path))
}

func TestICollectStreamsSameFilesAsCollect(t *testing.T) {
	root := t.TempDir()
	writeCSV(t, root, "2018/06/data_0100.csv", []string{"a"}, [][]string{{"1"}})
	writeCSV(t, root, "2018/07/data_0100.csv", []string{"a"}, [][]string{{"2"}})

	ds, err := New(root, "{year}/{month}/data_{hour}{minute}.csv", nil, nil, "", nil)
	require.NoError(t, err)

	it := ds.ICollect(context.Background(),
		time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC))

	var paths []string
	for {
		fi, ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		paths = append(paths, filepath.ToSlash(fi.Path))
	}
	assert.ElementsMatch(t, []string{"2018/06/data_0100.csv", "2018/07/data_0100.csv"}, paths)
}

func TestReadWriteRoundTrip(t *testing.T) {
	root := t.TempDir()
	ds, err := New(root, "{year}/data_{month}.csv", nil, nil, "", nil)
	require.NoError(t, err)

	name, err := ds.GenerateFilename(
		time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC),
		nil)
	require.NoError(t, err)

	fi, err := ds.Write(name, handler.Content{Header: []string{"x", "y"}, Rows: [][]string{{"1", "2"}}})
	require.NoError(t, err)
	assert.Equal(t, filepath.ToSlash(name), filepath.ToSlash(fi.Path))

	content, err := ds.Read(fi)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, content.Header)
	assert.Equal(t, [][]string{{"1", "2"}}, content.Rows)
}

func TestParseFilenameRecoversAttrs(t *testing.T) {
	root := t.TempDir()
	ds, err := New(root, "{year}/{station}.csv", map[string]string{"station": `[A-Z]{3}`}, nil, "", nil)
	require.NoError(t, err)

	captures, err := ds.ParseFilename("2018/ABC.csv")
	require.NoError(t, err)
	assert.Equal(t, "2018", captures["year"])
	assert.Equal(t, "ABC", captures["station"])
}

func TestSetPlaceholdersRecompilesMatcher(t *testing.T) {
	root := t.TempDir()
	ds, err := New(root, "{year}/{station}.csv", map[string]string{"station": `[A-Z]{3}`}, nil, "", nil)
	require.NoError(t, err)

	_, err = ds.ParseFilename("2018/abc.csv")
	assert.Error(t, err)

	require.NoError(t, ds.SetPlaceholders(map[string]string{"station": `[a-z]{3}`}))

	captures, err := ds.ParseFilename("2018/abc.csv")
	require.NoError(t, err)
	assert.Equal(t, "abc", captures["station"])
}

func TestCopyRendersDestinationNames(t *testing.T) {
	srcRoot := t.TempDir()
	dstRoot := t.TempDir()
	writeCSV(t, srcRoot, "2018/06/data.csv", []string{"a"}, [][]string{{"1"}})

	src, err := New(srcRoot, "{year}/{month}/data.csv", nil, nil, "", nil)
	require.NoError(t, err)
	dst, err := New(dstRoot, "{year}-{month}.csv", nil, nil, "", nil)
	require.NoError(t, err)

	written, err := src.Copy(context.Background(),
		dst,
		time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, written, 1)
	assert.Equal(t, "2018-06.csv", filepath.ToSlash(written[0].Path))

	_, err = os.Stat(filepath.Join(dstRoot, "2018-06.csv"))
	assert.NoError(t, err)
}

func TestCopyRejectsMultipleSourceFilesIntoSingleFileDestination(t *testing.T) {
	srcRoot := t.TempDir()
	dstRoot := t.TempDir()
	writeCSV(t, srcRoot, "2018/06/data.csv", []string{"a"}, [][]string{{"1"}})
	writeCSV(t, srcRoot, "2018/07/data.csv", []string{"a"}, [][]string{{"2"}})

	src, err := New(srcRoot, "{year}/{month}/data.csv", nil, nil, "", nil)
	require.NoError(t, err)
	dst, err := New(dstRoot, "combined.csv", nil, nil, "", nil)
	require.NoError(t, err)

	_, err = src.Copy(context.Background(),
		dst,
		time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, tempoerr.ErrMultiToSingle)

	_, statErr := os.Stat(filepath.Join(dstRoot, "combined.csv"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestOverlapsWithJoinsByTimeCoverage(t *testing.T) {
	leftRoot := t.TempDir()
	rightRoot := t.TempDir()
	writeCSV(t, leftRoot, "2018/06.csv", []string{"a"}, [][]string{{"1"}})
	writeCSV(t, rightRoot, "2018/06-01.csv", []string{"a"}, [][]string{{"1"}})
	writeCSV(t, rightRoot, "2019/01-01.csv", []string{"a"}, [][]string{{"1"}})

	left, err := New(leftRoot, "{year}/{month}.csv", nil, nil, "", nil)
	require.NoError(t, err)
	right, err := New(rightRoot, "{year}/{month}-{day}.csv", nil, nil, "", nil)
	require.NoError(t, err)

	pairs, err := left.OverlapsWith(context.Background(), right,
		time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, "2018/06.csv", filepath.ToSlash(pairs[0].Left.Path))
	assert.Equal(t, "2018/06-01.csv", filepath.ToSlash(pairs[0].Right.Path))
}

func TestExcludeOmitsShadowedFiles(t *testing.T) {
	root := t.TempDir()
	writeCSV(t, root, "2018/06/01/data_1230.csv", []string{"a"}, [][]string{{"1"}})
	writeCSV(t, root, "2018/06/01/data_1305.csv", []string{"a"}, [][]string{{"2"}})

	ds, err := New(root, "{year}/{month}/{day}/data_{hour}{minute}.csv", nil, nil, "", nil)
	require.NoError(t, err)
	ds.Exclude(
		time.Date(2018, 6, 1, 12, 0, 0, 0, time.UTC),
		time.Date(2018, 6, 1, 13, 0, 0, 0, time.UTC),
	)

	files, err := ds.Collect(context.Background(),
		time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "2018/06/01/data_1305.csv", filepath.ToSlash(files[0].Path))
}

func TestLinkRejectsCycle(t *testing.T) {
	root := t.TempDir()
	a, err := New(root, "{year}/a.csv", nil, nil, "", nil)
	require.NoError(t, err)
	b, err := New(root, "{year}/b.csv", nil, nil, "", nil)
	require.NoError(t, err)

	require.NoError(t, a.Link("derived_from", b))
	err = b.Link("derived_from", a)
	assert.Error(t, err)

	ds, ok := a.Linked("derived_from")
	require.True(t, ok)
	assert.Same(t, b, ds)
}

func TestDislinkRemovesEdge(t *testing.T) {
	root := t.TempDir()
	a, err := New(root, "{year}/a.csv", nil, nil, "", nil)
	require.NoError(t, err)
	b, err := New(root, "{year}/b.csv", nil, nil, "", nil)
	require.NoError(t, err)

	require.NoError(t, a.Link("x", b))
	a.Dislink("x")
	_, ok := a.Linked("x")
	assert.False(t, ok)
}

func TestMapWithSinkWritesRenderedFiles(t *testing.T) {
	srcRoot := t.TempDir()
	dstRoot := t.TempDir()
	writeCSV(t, srcRoot, "2018/06.csv", []string{"a"}, [][]string{{"1"}})

	src, err := New(srcRoot, "{year}/{month}.csv", nil, nil, "", nil)
	require.NoError(t, err)
	dst, err := New(dstRoot, "{year}-{month}-done.csv", nil, nil, "", nil)
	require.NoError(t, err)

	files, err := src.Collect(context.Background(),
		time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	results, err := src.Map(context.Background(), files, func(_ context.Context, _ fileinfo.FileInfo, content []byte) (any, error) {
		return content, nil
	}, dispatch.Options{MaxWorkers: 1, OnContent: true, Sink: SinkInto(dst)})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Written)

	_, err = os.Stat(filepath.Join(dstRoot, "2018-06-done.csv"))
	assert.NoError(t, err)
}
