package docsnap_test

import (
	"errors"
	"slices"
	"testing"

	"docsnap/internal/docsnap"
)

func TestRecords_Partition(t *testing.T) {
	tests := []struct {
		name  string
		n     int
		size  int
		sizes []int
	}{
		{"empty", 0, 100, []int{}},
		{"single short batch", 3, 100, []int{3}},
		{"exact multiple", 200, 100, []int{100, 100}},
		{"remainder", 250, 100, []int{100, 100, 50}},
		{"batch of one", 3, 1, []int{1, 1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := genRecords("c", tt.n)
			batches := r.Partition(tt.size)

			got := make([]int, len(batches))
			var ids []string
			for i, b := range batches {
				got[i] = b.Len()
				if err := b.Validate("c"); err != nil {
					t.Errorf("batch %d invalid: %v", i, err)
				}
				ids = append(ids, b.IDs...)
			}
			if !slices.Equal(got, tt.sizes) {
				t.Errorf("batch sizes = %v, want %v", got, tt.sizes)
			}
			if !slices.Equal(ids, r.IDs) {
				t.Error("concatenated batches differ from the input")
			}
		})
	}
}

func TestRecords_PartitionKeepsEmbeddings(t *testing.T) {
	r := genRecords("c", 3)
	r.Embeddings = [][]float32{{1}, {2}, {3}}

	batches := r.Partition(2)
	if len(batches) != 2 {
		t.Fatalf("got %d batches, want 2", len(batches))
	}
	if len(batches[1].Embeddings) != 1 || batches[1].Embeddings[0][0] != 3 {
		t.Errorf("last batch embeddings = %v", batches[1].Embeddings)
	}
}

func TestRecords_Validate(t *testing.T) {
	r := genRecords("c", 3)
	r.Metadatas = r.Metadatas[:2]

	err := r.Validate("c")
	var corrupt *docsnap.CorruptRecordsError
	if !errors.As(err, &corrupt) {
		t.Fatalf("Validate() error = %v, want CorruptRecordsError", err)
	}
	if corrupt.IDs != 3 || corrupt.Metadatas != 2 {
		t.Errorf("counts = %d ids / %d metadatas", corrupt.IDs, corrupt.Metadatas)
	}

	r = genRecords("c", 2)
	r.Embeddings = [][]float32{{1}}
	if err := r.Validate("c"); err == nil {
		t.Error("Validate() expected error for short embeddings")
	}
}

func TestRecords_DataNeverNil(t *testing.T) {
	d := (&docsnap.Records{}).Data()
	if d.IDs == nil || d.Documents == nil || d.Metadatas == nil {
		t.Errorf("Data() = %+v, want empty non-nil slices", d)
	}
}
