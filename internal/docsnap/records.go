package docsnap

import "docsnap/internal/snapshot"

// Records holds documents as parallel ordered sequences, the layout the
// store reads and writes. Embeddings is either empty or as long as IDs.
// A nil document is a record stored without text.
type Records struct {
	IDs        []string
	Documents  []*string
	Metadatas  []snapshot.Metadata
	Embeddings [][]float32
}

// Len returns the number of records.
func (r *Records) Len() int {
	return len(r.IDs)
}

// Validate checks that the parallel sequences line up.
func (r *Records) Validate(collection string) error {
	n := len(r.IDs)
	if len(r.Documents) != n || len(r.Metadatas) != n || (len(r.Embeddings) != 0 && len(r.Embeddings) != n) {
		return &CorruptRecordsError{
			Collection: collection,
			IDs:        n,
			Documents:  len(r.Documents),
			Metadatas:  len(r.Metadatas),
			Embeddings: len(r.Embeddings),
		}
	}
	return nil
}

// Slice returns records [lo, hi). The result shares backing arrays with r.
func (r *Records) Slice(lo, hi int) *Records {
	out := &Records{
		IDs:       r.IDs[lo:hi],
		Documents: r.Documents[lo:hi],
		Metadatas: r.Metadatas[lo:hi],
	}
	if len(r.Embeddings) != 0 {
		out.Embeddings = r.Embeddings[lo:hi]
	}
	return out
}

// Partition splits r into ceil(Len/size) consecutive batches. Every batch
// holds size records except the last, which holds the remainder. r must be
// valid and size positive.
func (r *Records) Partition(size int) []*Records {
	n := r.Len()
	batches := make([]*Records, 0, (n+size-1)/size)
	for lo := 0; lo < n; lo += size {
		batches = append(batches, r.Slice(lo, min(lo+size, n)))
	}
	return batches
}

// RecordsFromData converts snapshot data into Records.
func RecordsFromData(d snapshot.Data) *Records {
	return &Records{
		IDs:        d.IDs,
		Documents:  d.Documents,
		Metadatas:  d.Metadatas,
		Embeddings: d.Embeddings,
	}
}

// Data converts Records into the snapshot layout. Nil sequences become
// empty ones so the encoded snapshot never carries nulls for them.
func (r *Records) Data() snapshot.Data {
	d := snapshot.Data{
		IDs:        r.IDs,
		Documents:  r.Documents,
		Metadatas:  r.Metadatas,
		Embeddings: r.Embeddings,
	}
	if d.IDs == nil {
		d.IDs = []string{}
	}
	if d.Documents == nil {
		d.Documents = []*string{}
	}
	if d.Metadatas == nil {
		d.Metadatas = []snapshot.Metadata{}
	}
	return d
}
