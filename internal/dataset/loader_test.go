package dataset

import (
	"bytes"
	"encoding/binary"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"
	"unsafe"

	"github.com/23skdu/hnswbench/internal/errors"
	"github.com/23skdu/hnswbench/internal/logging"
	"github.com/23skdu/hnswbench/internal/metrics"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var modes = []Mode{ModeRead, ModeMmap}

func writeFile(t testing.TB, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func float32Bytes(v ...float32) []byte {
	out := make([]byte, 0, len(v)*Float32Size)
	for _, f := range v {
		out = binary.NativeEndian.AppendUint32(out, math.Float32bits(f))
	}
	return out
}

func uint64Bytes(v ...uint64) []byte {
	out := make([]byte, 0, len(v)*IDSize)
	for _, id := range v {
		out = binary.NativeEndian.AppendUint64(out, id)
	}
	return out
}

func viewBytes(v []float32) []byte {
	if len(v) == 0 {
		return []byte{}
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(v))), len(v)*Float32Size)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeMmap, m)

	m, err = ParseMode("READ")
	require.NoError(t, err)
	assert.Equal(t, ModeRead, m)

	_, err = ParseMode("pread")
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)
}

func TestLoadVectors(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "emb.bin", float32Bytes(1, 2, 3, 4, 5, 6))

	for _, mode := range modes {
		t.Run(string(mode), func(t *testing.T) {
			l := NewLoader(mode, logging.DiscardLogger())
			vecs, n, err := l.LoadVectors(path, 2)
			require.NoError(t, err)
			assert.Equal(t, 3, n)
			assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, vecs)
		})
	}
}

func TestLoadVectors_MmapReleasesMapping(t *testing.T) {
	dir := t.TempDir()
	vecPath := writeFile(t, dir, "emb.bin", float32Bytes(1, 2, 3, 4, 5, 6, 7, 8))
	idPath := writeFile(t, dir, "ids.bin", uint64Bytes(10, 20))
	l := NewLoader(ModeMmap, logging.DiscardLogger())

	before := testutil.ToFloat64(metrics.MappedBytes)
	vecs, n, err := l.LoadVectors(vecPath, 4)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, before, testutil.ToFloat64(metrics.MappedBytes))

	ids, m, err := l.LoadIDs(idPath)
	require.NoError(t, err)
	assert.Equal(t, 2, m)
	assert.Equal(t, []uint64{10, 20}, ids)
	assert.Equal(t, before, testutil.ToFloat64(metrics.MappedBytes))

	// The copy must stay valid after the mapping is gone.
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6, 7, 8}, vecs)
}

func TestLoadVectors_Empty(t *testing.T) {
	path := writeFile(t, t.TempDir(), "empty.bin", nil)
	for _, mode := range modes {
		vecs, n, err := NewLoader(mode, logging.DiscardLogger()).LoadVectors(path, 4)
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.Empty(t, vecs)
	}
}

func TestLoadVectors_Errors(t *testing.T) {
	dir := t.TempDir()
	odd := writeFile(t, dir, "odd.bin", make([]byte, 33))
	l := NewLoader(ModeMmap, logging.DiscardLogger())

	_, _, err := l.LoadVectors(filepath.Join(dir, "missing.bin"), 2)
	assert.ErrorIs(t, err, errors.ErrOpen)

	before := testutil.ToFloat64(metrics.LoadErrorsTotal.WithLabelValues("size_mismatch"))
	_, _, err = l.LoadVectors(odd, 2)
	assert.ErrorIs(t, err, errors.ErrSizeMismatch)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.LoadErrorsTotal.WithLabelValues("size_mismatch")))

	_, _, err = l.LoadVectors(odd, 0)
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)
}

func TestLoadIDs(t *testing.T) {
	path := writeFile(t, t.TempDir(), "ids.bin", uint64Bytes(10, 20, math.MaxUint64))
	for _, mode := range modes {
		ids, n, err := NewLoader(mode, logging.DiscardLogger()).LoadIDs(path)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
		assert.Equal(t, []uint64{10, 20, math.MaxUint64}, ids)
	}
}

func TestLoadPaired(t *testing.T) {
	dir := t.TempDir()
	emb := writeFile(t, dir, "emb.bin", float32Bytes(1, 0, 0, 1, 1, 1, 2, 2))
	ids := writeFile(t, dir, "ids.bin", uint64Bytes(7, 8, 9, 10))
	short := writeFile(t, dir, "short.bin", uint64Bytes(7, 8, 9))

	l := NewLoader(ModeMmap, logging.DiscardLogger())
	ds, err := l.LoadPaired(emb, ids, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, ds.Len())
	assert.Equal(t, []float32{1, 1}, ds.Vector(2))
	assert.Equal(t, uint64(10), ds.IDs[3])

	ds, err = l.LoadPaired(emb, short, 2)
	assert.Nil(t, ds)
	require.ErrorIs(t, err, errors.ErrSizeMismatch)
	var se *errors.StructuredError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 4, se.Context["vectors"])
	assert.Equal(t, 3, se.Context["ids"])
}

func TestLoadQueries_TruncatesToSmaller(t *testing.T) {
	dir := t.TempDir()
	emb := writeFile(t, dir, "q.bin", float32Bytes(1, 2, 3, 4, 5, 6))
	ids := writeFile(t, dir, "qids.bin", uint64Bytes(100, 200))
	manyIDs := writeFile(t, dir, "many.bin", uint64Bytes(1, 2, 3, 4, 5))

	var logBuf bytes.Buffer
	l := NewLoader(ModeRead, zerolog.New(&logBuf))

	before := testutil.ToFloat64(metrics.QueryCountMismatchTotal)
	ds, err := l.LoadQueries(emb, ids, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Len())
	assert.Equal(t, []float32{1, 2, 3, 4}, ds.Vectors)
	assert.Contains(t, logBuf.String(), `"level":"warn"`)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.QueryCountMismatchTotal))

	ds, err = l.LoadQueries(emb, manyIDs, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, ds.Len())
	assert.Equal(t, []uint64{1, 2, 3}, ds.IDs)
	assert.Len(t, ds.Vectors, 6)
}

func TestDatasetTruncateAndRelease(t *testing.T) {
	ds := Synthetic(5, 3, 1)
	ds.Truncate(2)
	assert.Equal(t, 2, ds.Len())
	assert.Len(t, ds.Vectors, 6)

	ds.Truncate(10)
	assert.Equal(t, 2, ds.Len())

	ds.Release()
	assert.Zero(t, ds.Len())
}

func TestWriteRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ds := Synthetic(16, 8, DefaultSeed)
	vp, ip := filepath.Join(dir, "v.bin"), filepath.Join(dir, "i.bin")
	require.NoError(t, ds.Write(vp, ip))

	info, err := os.Stat(vp)
	require.NoError(t, err)
	assert.Equal(t, int64(16*8*Float32Size), info.Size())

	got, err := NewLoader(ModeMmap, logging.DiscardLogger()).LoadPaired(vp, ip, 8)
	require.NoError(t, err)
	assert.Equal(t, ds, got)

	assert.ErrorIs(t, WriteVectors(vp, []float32{1, 2, 3}, 2), errors.ErrInvalidArgument)
}

func TestSyntheticDeterministic(t *testing.T) {
	a := Synthetic(10, 4, 7)
	b := Synthetic(10, 4, 7)
	c := Synthetic(10, 4, 8)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a.Vectors, c.Vectors)
	for _, v := range a.Vectors {
		assert.GreaterOrEqual(t, v, float32(0))
		assert.Less(t, v, float32(1))
	}
	assert.Equal(t, uint64(9), a.IDs[9])
}

// TestLoaderProperties checks that whole-record files load byte-for-byte and
// that anything else is rejected without a partial result.
func TestLoaderProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)
	dir := t.TempDir()

	properties.Property("whole records load exactly", prop.ForAll(
		func(count, dim int, seed uint64, mmap bool) bool {
			rng := rand.New(rand.NewPCG(seed, 1))
			raw := make([]byte, count*dim*Float32Size)
			for i := range raw {
				raw[i] = byte(rng.UintN(256))
			}
			f, err := os.CreateTemp(dir, "prop-*.bin")
			if err != nil {
				return false
			}
			_, _ = f.Write(raw)
			_ = f.Close()

			mode := ModeRead
			if mmap {
				mode = ModeMmap
			}
			vecs, n, err := NewLoader(mode, logging.DiscardLogger()).LoadVectors(f.Name(), dim)
			return err == nil && n == count && bytes.Equal(viewBytes(vecs), raw)
		},
		gen.IntRange(0, 64),
		gen.IntRange(1, 16),
		gen.UInt64(),
		gen.Bool(),
	))

	properties.Property("partial records are rejected", prop.ForAll(
		func(count, extra int, mmap bool) bool {
			f, err := os.CreateTemp(dir, "bad-*.bin")
			if err != nil {
				return false
			}
			_, _ = f.Write(make([]byte, count*IDSize+extra))
			_ = f.Close()

			mode := ModeRead
			if mmap {
				mode = ModeMmap
			}
			ids, n, err := NewLoader(mode, logging.DiscardLogger()).LoadIDs(f.Name())
			return ids == nil && n == 0 && errors.TypeOf(err) == errors.ErrorTypeSizeMismatch
		},
		gen.IntRange(0, 64),
		gen.IntRange(1, IDSize-1),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
