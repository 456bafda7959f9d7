// Package snapshot encodes the full contents of a document store into the
// single JSON file that is committed to the backup repository, and decodes it
// back for restore.
package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// FormatVersion is written into every snapshot. Decode treats it as
// informational and never rejects a snapshot for carrying another value.
const FormatVersion = "1"

// Metadata is an arbitrary JSON object. Numbers decode as json.Number so
// they re-encode byte-for-byte.
type Metadata map[string]any

// Snapshot is a point-in-time capture of every collection in the store.
type Snapshot struct {
	Timestamp        string             `json:"timestamp"`
	TotalCollections int                `json:"totalCollections"`
	Collections      []CollectionBackup `json:"collections"`
	Version          string             `json:"version"`
}

// CollectionBackup holds one collection and all of its records.
type CollectionBackup struct {
	Name           string   `json:"name"`
	Metadata       Metadata `json:"metadata"`
	TotalDocuments int      `json:"totalDocuments"`
	Data           Data     `json:"data"`
}

// Data is the parallel-array record layout used by the store.
// Embeddings is either empty or as long as IDs. A record stored without a
// document keeps a nil entry, encoded as null.
type Data struct {
	IDs        []string    `json:"ids"`
	Documents  []*string   `json:"documents"`
	Metadatas  []Metadata  `json:"metadatas"`
	Embeddings [][]float32 `json:"embeddings,omitempty"`
}

// New builds a snapshot whose counters agree with its contents.
func New(ts time.Time, collections []CollectionBackup) *Snapshot {
	if collections == nil {
		collections = []CollectionBackup{}
	}
	return &Snapshot{
		Timestamp:        ts.UTC().Format(time.RFC3339Nano),
		TotalCollections: len(collections),
		Collections:      collections,
		Version:          FormatVersion,
	}
}

// Encode serializes s as indented JSON.
func Encode(s *Snapshot) ([]byte, error) {
	for i := range s.Collections {
		if err := s.Collections[i].Data.check(); err != nil {
			return nil, fmt.Errorf("collection %q: %w", s.Collections[i].Name, err)
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a snapshot. It fails with *CorruptSnapshotError when data is
// not a well-formed snapshot or when any collection's parallel arrays differ
// in length. Counter mismatches are not errors; see Inconsistencies.
func Decode(data []byte) (*Snapshot, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw struct {
		Snapshot
		Collections *[]CollectionBackup `json:"collections"`
	}
	if err := dec.Decode(&raw); err != nil {
		return nil, &CorruptSnapshotError{Reason: "malformed JSON", Err: err}
	}
	if dec.More() {
		return nil, &CorruptSnapshotError{Reason: "trailing data after snapshot"}
	}
	if raw.Collections == nil {
		return nil, &CorruptSnapshotError{Reason: "missing collections"}
	}

	s := raw.Snapshot
	s.Collections = *raw.Collections
	for i := range s.Collections {
		if err := s.Collections[i].Data.check(); err != nil {
			return nil, &CorruptSnapshotError{Collection: s.Collections[i].Name, Reason: err.Error()}
		}
	}
	return &s, nil
}

// Inconsistencies lists counter mismatches that a best-effort restore can
// tolerate, e.g. from a snapshot that was only partially written.
func (s *Snapshot) Inconsistencies() []string {
	var out []string
	if s.TotalCollections != len(s.Collections) {
		out = append(out, fmt.Sprintf("totalCollections is %d but %d collections are present",
			s.TotalCollections, len(s.Collections)))
	}
	for _, c := range s.Collections {
		if c.TotalDocuments != len(c.Data.IDs) {
			out = append(out, fmt.Sprintf("collection %q: totalDocuments is %d but %d ids are present",
				c.Name, c.TotalDocuments, len(c.Data.IDs)))
		}
	}
	return out
}

func (d *Data) check() error {
	n := len(d.IDs)
	if len(d.Documents) != n || len(d.Metadatas) != n {
		return fmt.Errorf("parallel arrays differ: %d ids, %d documents, %d metadatas",
			n, len(d.Documents), len(d.Metadatas))
	}
	if len(d.Embeddings) != 0 && len(d.Embeddings) != n {
		return fmt.Errorf("parallel arrays differ: %d ids, %d embeddings", n, len(d.Embeddings))
	}
	return nil
}
