package index

import (
	"bufio"
	"cmp"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"slices"

	"github.com/23skdu/hnswbench/internal/errors"
	"github.com/coder/hnsw"
	"github.com/viterin/vek/vek32"
)

func init() {
	// Register distance function for graph serialization
	hnsw.RegisterDistanceFunc("inner_product", InnerProductDistance)
}

// InnerProductDistance is 1 - <a, b>.
func InnerProductDistance(a, b []float32) float32 {
	return 1 - vek32.Dot(a, b)
}

// Config holds construction parameters.
type Config struct {
	Dim            int
	M              int
	EfConstruction int
	Metric         Metric
	// Capacity bounds the number of vectors; zero means unbounded.
	Capacity int
}

// DefaultConfig returns the parameters used when none are given.
func DefaultConfig(dim int) Config {
	return Config{
		Dim:            dim,
		M:              16,
		EfConstruction: 200,
		Metric:         MetricL2,
	}
}

// Validate checks that every field is usable.
func (c Config) Validate() error {
	switch {
	case c.Dim <= 0:
		return errors.NewInvalidArgument("index_config", fmt.Sprintf("dimension must be positive, got %d", c.Dim))
	case c.M < 2:
		return errors.NewInvalidArgument("index_config", fmt.Sprintf("M must be at least 2, got %d", c.M))
	case c.EfConstruction < 1:
		return errors.NewInvalidArgument("index_config", fmt.Sprintf("efConstruction must be positive, got %d", c.EfConstruction))
	case c.Capacity < 0:
		return errors.NewInvalidArgument("index_config", fmt.Sprintf("capacity must not be negative, got %d", c.Capacity))
	}
	if _, err := ParseMetric(string(c.Metric)); err != nil {
		return err
	}
	return nil
}

// HNSW adapts a coder/hnsw graph keyed by uint64 to Index.
type HNSW struct {
	cfg   Config
	graph *hnsw.Graph[uint64]
}

var _ Index = (*HNSW)(nil)

// NewHNSW creates an empty index.
func NewHNSW(cfg Config) (*HNSW, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	g := hnsw.NewGraph[uint64]()
	configureGraph(g, cfg)
	return &HNSW{cfg: cfg, graph: g}, nil
}

func configureGraph(g *hnsw.Graph[uint64], cfg Config) {
	g.M = cfg.M
	g.Ml = 1 / math.Log(float64(cfg.M))
	// Insertion runs a search of its own; its breadth is efConstruction.
	g.EfSearch = cfg.EfConstruction
	g.Distance = distanceFunc(cfg.Metric)
}

func distanceFunc(m Metric) hnsw.DistanceFunc {
	if m == MetricIP {
		return InnerProductDistance
	}
	return hnsw.EuclideanDistance
}

// Config returns the construction parameters.
func (h *HNSW) Config() Config {
	return h.cfg
}

// Len returns the number of indexed vectors.
func (h *HNSW) Len() int {
	return h.graph.Len()
}

// Insert adds vec under id. The vector is copied.
func (h *HNSW) Insert(vec []float32, id uint64) error {
	if len(vec) != h.cfg.Dim {
		return errors.New(errors.ErrorTypeIndex, "insert", "",
			fmt.Sprintf("vector has dimension %d, index expects %d", len(vec), h.cfg.Dim)).
			WithContext("id", id)
	}
	if h.cfg.Capacity > 0 && h.graph.Len() >= h.cfg.Capacity {
		return errors.New(errors.ErrorTypeIndex, "insert", "",
			fmt.Sprintf("index is full (capacity %d)", h.cfg.Capacity)).
			WithContext("id", id)
	}
	if _, ok := h.graph.Lookup(id); ok {
		return errors.New(errors.ErrorTypeIndex, "insert", "", fmt.Sprintf("duplicate id %d", id)).
			WithContext("id", id)
	}
	h.graph.Add(hnsw.MakeNode(id, slices.Clone(vec)))
	return nil
}

// Search returns up to k neighbors of vec by ascending distance.
func (h *HNSW) Search(vec []float32, k int) ([]Neighbor, error) {
	if len(vec) != h.cfg.Dim {
		return nil, errors.New(errors.ErrorTypeIndex, "search", "",
			fmt.Sprintf("query has dimension %d, index expects %d", len(vec), h.cfg.Dim))
	}
	if k < 1 {
		return nil, errors.NewInvalidArgument("search", fmt.Sprintf("k must be positive, got %d", k))
	}
	if h.graph.Len() == 0 {
		return nil, nil
	}

	nodes := h.graph.Search(vec, k)
	out := make([]Neighbor, len(nodes))
	for i, n := range nodes {
		out[i] = Neighbor{ID: n.Key, Distance: h.graph.Distance(vec, n.Value)}
	}
	slices.SortStableFunc(out, func(a, b Neighbor) int {
		return cmp.Compare(a.Distance, b.Distance)
	})
	return out, nil
}

// SetSearchBreadth sets the candidate list size for subsequent searches.
// Values below 1 are ignored.
func (h *HNSW) SetSearchBreadth(ef int) {
	if ef < 1 {
		return
	}
	h.graph.EfSearch = ef
}

// On-disk layout: a fixed header followed by the graph's own export.
var fileMagic = [8]byte{'h', 'n', 's', 'w', 'b', 'n', 'c', 'h'}

const fileVersion uint32 = 1

type fileHeader struct {
	Magic          [8]byte
	Version        uint32
	Dim            uint32
	M              uint32
	EfConstruction uint32
	Capacity       uint64
	Metric         [8]byte
}

func (h *HNSW) header() fileHeader {
	hdr := fileHeader{
		Magic:          fileMagic,
		Version:        fileVersion,
		Dim:            uint32(h.cfg.Dim),
		M:              uint32(h.cfg.M),
		EfConstruction: uint32(h.cfg.EfConstruction),
		Capacity:       uint64(h.cfg.Capacity),
	}
	copy(hdr.Metric[:], h.cfg.Metric)
	return hdr
}

// Save writes the index to path, replacing any existing file.
func (h *HNSW) Save(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.WrapOpen(err, "save_index", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, errors.ErrorTypeIndex, "save_index", path, "close failed")
		}
	}()

	w := bufio.NewWriter(f)
	if err := binary.Write(w, binary.LittleEndian, h.header()); err != nil {
		return errors.Wrap(err, errors.ErrorTypeIndex, "save_index", path, "cannot write header")
	}
	if err := h.graph.Export(w); err != nil {
		return errors.Wrap(err, errors.ErrorTypeIndex, "save_index", path, "cannot export graph")
	}
	if err := w.Flush(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeIndex, "save_index", path, "flush failed")
	}
	return nil
}

// Load reads an index written by Save.
func Load(path string) (*HNSW, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapOpen(err, "load_index", path)
	}
	defer f.Close()
	return read(bufio.NewReader(f), path)
}

func read(r io.Reader, path string) (*HNSW, error) {
	var hdr fileHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, errors.WrapIndexLoad(err, "load_index", path)
	}
	if hdr.Magic != fileMagic {
		return nil, errors.New(errors.ErrorTypeIndexLoad, "load_index", path, "not an index file")
	}
	if hdr.Version != fileVersion {
		return nil, errors.New(errors.ErrorTypeIndexLoad, "load_index", path,
			fmt.Sprintf("unsupported index version %d", hdr.Version))
	}

	cfg := Config{
		Dim:            int(hdr.Dim),
		M:              int(hdr.M),
		EfConstruction: int(hdr.EfConstruction),
		Capacity:       int(hdr.Capacity),
		Metric:         Metric(trimZero(hdr.Metric[:])),
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.WrapIndexLoad(err, "load_index", path)
	}

	g := hnsw.NewGraph[uint64]()
	configureGraph(g, cfg)
	if err := g.Import(r); err != nil {
		return nil, errors.WrapIndexLoad(err, "load_index", path)
	}
	return &HNSW{cfg: cfg, graph: g}, nil
}

func trimZero(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
