package dataset

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unsafe"

	"github.com/23skdu/hnswbench/internal/errors"
	"github.com/23skdu/hnswbench/internal/memory"
	"github.com/23skdu/hnswbench/internal/metrics"
	"github.com/rs/zerolog"
)

// Mode selects how file contents reach process memory.
type Mode string

const (
	// ModeRead copies the file straight into the destination buffer.
	ModeRead Mode = "read"
	// ModeMmap maps the file, advises the kernel of a sequential scan, copies
	// the mapping into the destination buffer and unmaps it.
	ModeMmap Mode = "mmap"
)

// ParseMode parses a load mode name. The empty string selects ModeMmap.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(s)) {
	case ModeMmap, "":
		return ModeMmap, nil
	case ModeRead:
		return ModeRead, nil
	default:
		return "", errors.NewInvalidArgument("parse_load_mode", fmt.Sprintf("unknown load mode %q", s))
	}
}

// Loader reads vector and identifier files. Every load owns its result: no
// file descriptor or mapping outlives the call that produced it.
type Loader struct {
	mode   Mode
	logger zerolog.Logger
}

// NewLoader returns a loader using mode. An empty mode selects ModeMmap.
func NewLoader(mode Mode, logger zerolog.Logger) *Loader {
	if mode == "" {
		mode = ModeMmap
	}
	return &Loader{mode: mode, logger: logger}
}

// Mode returns the configured load mode.
func (l *Loader) Mode() Mode {
	return l.mode
}

// LoadVectors loads a file of dim-wide float32 records and returns the flat
// buffer and the record count.
func (l *Loader) LoadVectors(path string, dim int) ([]float32, int, error) {
	if dim <= 0 {
		return nil, 0, errors.NewInvalidArgument("load_vectors", fmt.Sprintf("dimension must be positive, got %d", dim))
	}
	return loadRecords[float32](l, "load_vectors", "vector", path, dim)
}

// LoadIDs loads a file of uint64 records.
func (l *Loader) LoadIDs(path string) ([]uint64, int, error) {
	return loadRecords[uint64](l, "load_ids", "id", path, 1)
}

// LoadPaired loads a vector file and its identifier file. Differing record
// counts are a SizeMismatch and nothing is returned.
func (l *Loader) LoadPaired(vectorPath, idPath string, dim int) (*Dataset, error) {
	vectors, nv, err := l.LoadVectors(vectorPath, dim)
	if err != nil {
		return nil, err
	}
	ids, ni, err := l.LoadIDs(idPath)
	if err != nil {
		return nil, err
	}
	if nv != ni {
		metrics.LoadErrorsTotal.WithLabelValues(string(errors.ErrorTypeSizeMismatch)).Inc()
		return nil, errors.NewSizeMismatch("load_paired", idPath,
			fmt.Sprintf("vector count %d does not match id count %d", nv, ni)).
			WithContext("vectors", nv).
			WithContext("ids", ni)
	}
	return &Dataset{Dim: dim, Vectors: vectors, IDs: ids}, nil
}

// LoadQueries loads a query vector file and its identifier file. Unlike
// LoadPaired, a count mismatch is tolerated: both sides are truncated to the
// smaller count and a warning is logged.
func (l *Loader) LoadQueries(vectorPath, idPath string, dim int) (*Dataset, error) {
	vectors, nv, err := l.LoadVectors(vectorPath, dim)
	if err != nil {
		return nil, err
	}
	ids, ni, err := l.LoadIDs(idPath)
	if err != nil {
		return nil, err
	}
	ds := &Dataset{Dim: dim, Vectors: vectors, IDs: ids}
	if nv != ni {
		n := min(nv, ni)
		metrics.QueryCountMismatchTotal.Inc()
		l.logger.Warn().
			Int("queries", nv).
			Int("ids", ni).
			Int("using", n).
			Msg("query count does not match id count; truncating to the smaller")
		ds.Vectors = vectors[:n*dim]
		ds.IDs = ids[:n]
	}
	return ds, nil
}

type record interface {
	~float32 | ~uint64
}

// loadRecords reads path into a freshly allocated []T holding a whole number
// of records of perRecord elements each.
func loadRecords[T record](l *Loader, op, kind, path string, perRecord int) ([]T, int, error) {
	start := time.Now()
	var zero T
	width := int64(unsafe.Sizeof(zero)) * int64(perRecord)

	f, err := os.Open(path)
	if err != nil {
		return nil, 0, loadFailed(errors.WrapOpen(err, op, path))
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, 0, loadFailed(errors.WrapStat(err, op, path))
	}
	size := info.Size()
	if size%width != 0 {
		return nil, 0, loadFailed(errors.NewSizeMismatch(op, path,
			fmt.Sprintf("file size %d is not a multiple of record width %d", size, width)).
			WithContext("size", size).
			WithContext("record_width", width))
	}
	count := int(size / width)
	if count == 0 {
		return []T{}, 0, nil
	}

	buf := make([]T, count*perRecord)
	dst := unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(buf))), int(size))

	mode := l.mode
	switch mode {
	case ModeMmap:
		err = l.copyMapped(f, dst, op, path)
		if stderrors.Is(err, memory.ErrMmapUnsupported) {
			l.logger.Debug().Str("path", path).Msg("mmap unsupported, falling back to read")
			mode = ModeRead
			err = readInto(f, dst, op, path)
		}
	default:
		err = readInto(f, dst, op, path)
	}
	if err != nil {
		return nil, 0, loadFailed(err)
	}

	metrics.LoadBytesTotal.WithLabelValues(string(mode)).Add(float64(size))
	metrics.LoadRecordsTotal.WithLabelValues(kind).Add(float64(count))
	metrics.LoadDurationSeconds.WithLabelValues(string(mode)).Observe(time.Since(start).Seconds())
	l.logger.Debug().
		Str("path", path).
		Str("mode", string(mode)).
		Int("records", count).
		Int64("bytes", size).
		Dur("elapsed", time.Since(start)).
		Msg("loaded records")
	return buf, count, nil
}

// copyMapped maps f, copies it into dst and releases the mapping before
// returning on every path.
func (l *Loader) copyMapped(f *os.File, dst []byte, op, path string) error {
	m, err := memory.MapFile(f, len(dst))
	if err != nil {
		if stderrors.Is(err, memory.ErrMmapUnsupported) {
			return err
		}
		return errors.WrapMap(err, op, path)
	}
	defer m.Close()

	if err := m.Advise(memory.AdviceSequential, memory.AdviceWillNeed); err != nil {
		l.logger.Debug().Err(err).Str("path", path).Msg("madvise ignored")
	}
	copy(dst, m.Bytes())
	return nil
}

func readInto(f *os.File, dst []byte, op, path string) error {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return errors.WrapOpen(err, op, path)
	}
	if _, err := io.ReadFull(f, dst); err != nil {
		return errors.Wrap(err, errors.ErrorTypeSizeMismatch, op, path, "short read")
	}
	return nil
}

func loadFailed(err error) error {
	metrics.LoadErrorsTotal.WithLabelValues(string(errors.TypeOf(err))).Inc()
	return err
}
