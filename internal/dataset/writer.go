package dataset

import (
	"bufio"
	"fmt"
	"os"
	"unsafe"

	"github.com/23skdu/hnswbench/internal/errors"
)

// WriteVectors writes vectors as headerless dim-wide float32 records.
func WriteVectors(path string, vectors []float32, dim int) error {
	if dim <= 0 || len(vectors)%dim != 0 {
		return errors.NewInvalidArgument("write_vectors",
			fmt.Sprintf("%d components do not form whole records of dimension %d", len(vectors), dim))
	}
	return writeRecords(path, "write_vectors", vectors)
}

// WriteIDs writes ids as headerless uint64 records.
func WriteIDs(path string, ids []uint64) error {
	return writeRecords(path, "write_ids", ids)
}

// Write stores d as a vector file and an identifier file.
func (d *Dataset) Write(vectorPath, idPath string) error {
	if err := WriteVectors(vectorPath, d.Vectors, d.Dim); err != nil {
		return err
	}
	return WriteIDs(idPath, d.IDs)
}

func writeRecords[T record](path, op string, buf []T) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.WrapOpen(err, op, path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.WrapOpen(cerr, op, path)
		}
	}()

	if len(buf) == 0 {
		return nil
	}
	var zero T
	raw := unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(buf))), len(buf)*int(unsafe.Sizeof(zero)))

	w := bufio.NewWriterSize(f, 1<<20)
	if _, err := w.Write(raw); err != nil {
		return errors.Wrap(err, errors.ErrorTypeOpen, op, path, "write failed")
	}
	if err := w.Flush(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeOpen, op, path, "flush failed")
	}
	return nil
}
