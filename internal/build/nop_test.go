package build

import "github.com/23skdu/hnswbench/internal/index"

// nopIndex accepts everything and stores nothing, isolating driver overhead.
type nopIndex struct{}

func (nopIndex) Insert([]float32, uint64) error                  { return nil }
func (nopIndex) Search([]float32, int) ([]index.Neighbor, error) { return nil, nil }
func (nopIndex) SetSearchBreadth(int)                            {}
func (nopIndex) Save(string) error                               { return nil }
func (nopIndex) Len() int                                        { return 0 }
