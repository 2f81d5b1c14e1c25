// Package dataset loads, writes and generates the headerless binary vector
// and identifier files consumed by the benchmark.
//
// Vector files are row-major float32 records of a fixed dimension; identifier
// files are uint64 records. Both use the host's native byte order and carry no
// header, so a file's record count is its size divided by the record width.
package dataset

const (
	// Float32Size is the width of one vector component in bytes.
	Float32Size = 4
	// IDSize is the width of one identifier record in bytes.
	IDSize = 8
)

// Dataset is a fully materialized set of vectors and their identifiers.
// Vector i occupies Vectors[i*Dim:(i+1)*Dim] and is paired with IDs[i].
type Dataset struct {
	Dim     int
	Vectors []float32
	IDs     []uint64
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.IDs)
}

// Vector returns the i-th vector. The slice aliases the dataset and is capped
// so that appends cannot clobber the next record.
func (d *Dataset) Vector(i int) []float32 {
	start := i * d.Dim
	end := start + d.Dim
	return d.Vectors[start:end:end]
}

// Truncate keeps only the first n records.
func (d *Dataset) Truncate(n int) {
	if n >= d.Len() {
		return
	}
	if n < 0 {
		n = 0
	}
	d.Vectors = d.Vectors[:n*d.Dim]
	d.IDs = d.IDs[:n]
}

// Release drops the dataset's buffers so they can be collected.
func (d *Dataset) Release() {
	if d == nil {
		return
	}
	d.Vectors = nil
	d.IDs = nil
}
