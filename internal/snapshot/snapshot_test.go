package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

var fixedTime = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

func docs(texts ...string) []*string {
	out := make([]*string, len(texts))
	for i := range texts {
		out[i] = &texts[i]
	}
	return out
}

func sampleCollections() []CollectionBackup {
	return []CollectionBackup{
		{
			Name:           "regras_sistema",
			Metadata:       Metadata{"hnsw:space": "cosine", "owner": "escola"},
			TotalDocuments: 4,
			Data: Data{
				IDs:       []string{"r1", "r2", "r3", "r4"},
				Documents: append(docs("first rule", "second rule", "third \"quoted\" <rule>"), nil),
				Metadatas: []Metadata{
					{"order": json.Number("1"), "weight": json.Number("0.1")},
					{"order": json.Number("2"), "big": json.Number("9007199254740993")},
					{"tags": []any{"a", json.Number("3")}, "active": true, "parent": nil},
					{},
				},
				Embeddings: [][]float32{{0.1, 0.2}, {0.3, 0.4}, {1e-7, 3.4028235e38}, {0, 0}},
			},
		},
		{
			Name:           "empty",
			Metadata:       Metadata{},
			TotalDocuments: 0,
			Data: Data{
				IDs:       []string{},
				Documents: []*string{},
				Metadatas: []Metadata{},
			},
		},
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	tests := []struct {
		name        string
		collections []CollectionBackup
	}{
		{name: "populated and empty collections", collections: sampleCollections()},
		{name: "no collections", collections: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := New(fixedTime, tt.collections)

			data, err := Encode(original)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}

			got, err := Decode(data)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}

			if !reflect.DeepEqual(got, original) {
				t.Errorf("Decode(Encode(s)) = %#v, want %#v", got, original)
			}

			again, err := Encode(got)
			if err != nil {
				t.Fatalf("second Encode() error = %v", err)
			}
			if !bytes.Equal(again, data) {
				t.Errorf("re-encoded bytes differ:\n%s\nvs\n%s", again, data)
			}
		})
	}
}

func TestEncode_PreservesLargeIntegers(t *testing.T) {
	data, err := Encode(New(fixedTime, sampleCollections()))
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if !strings.Contains(string(data), "9007199254740993") {
		t.Error("encoded snapshot lost precision on a 2^53+1 integer")
	}
}

func TestDecode_KeepsMissingDocuments(t *testing.T) {
	data, err := Encode(New(fixedTime, sampleCollections()))
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	documents := got.Collections[0].Data.Documents
	if documents[3] != nil {
		t.Errorf("document r4 = %q, want nil", *documents[3])
	}
	if documents[0] == nil || *documents[0] != "first rule" {
		t.Errorf("document r1 = %v, want %q", documents[0], "first rule")
	}
}

func TestNew_Counters(t *testing.T) {
	s := New(fixedTime, sampleCollections())

	if s.TotalCollections != 2 {
		t.Errorf("TotalCollections = %d, want 2", s.TotalCollections)
	}
	if s.Version != FormatVersion {
		t.Errorf("Version = %q, want %q", s.Version, FormatVersion)
	}
	if s.Timestamp != "2024-01-15T10:30:00Z" {
		t.Errorf("Timestamp = %q, want %q", s.Timestamp, "2024-01-15T10:30:00Z")
	}
	if len(s.Inconsistencies()) != 0 {
		t.Errorf("Inconsistencies() = %v, want none", s.Inconsistencies())
	}
}

func TestEncode_RejectsRaggedData(t *testing.T) {
	cols := sampleCollections()
	cols[0].Data.Documents = cols[0].Data.Documents[:2]

	if _, err := Encode(New(fixedTime, cols)); err == nil {
		t.Error("Encode() expected error for ragged parallel arrays, got nil")
	}
}

func TestDecode_Corrupt(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "not json", data: "\x00\x01garbage"},
		{name: "truncated", data: `{"timestamp":"2024-01-15T10:30:00Z","collections":[{"name":"a"`},
		{name: "missing collections", data: `{"timestamp":"2024-01-15T10:30:00Z","totalCollections":0}`},
		{name: "wrong type", data: `{"collections":"nope"}`},
		{name: "trailing data", data: `{"collections":[]} {"collections":[]}`},
		{
			name: "ragged arrays",
			data: `{"collections":[{"name":"a","data":{"ids":["1","2"],"documents":["x"],"metadatas":[{},{}]}}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.data))
			var corrupt *CorruptSnapshotError
			if !errors.As(err, &corrupt) {
				t.Fatalf("Decode() error = %v, want *CorruptSnapshotError", err)
			}
		})
	}
}

func TestDecode_CountMismatchIsAWarning(t *testing.T) {
	data := `{
  "timestamp": "2024-01-15T10:30:00Z",
  "totalCollections": 3,
  "collections": [
    {"name": "a", "metadata": null, "totalDocuments": 5,
     "data": {"ids": ["1"], "documents": ["one"], "metadatas": [null]}}
  ],
  "version": "0"
}`
	s, err := Decode([]byte(data))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	issues := s.Inconsistencies()
	if len(issues) != 2 {
		t.Fatalf("Inconsistencies() = %v, want 2 entries", issues)
	}
	if s.Version != "0" {
		t.Errorf("Version = %q, want %q", s.Version, "0")
	}
}

func TestDecode_LegacySnapshotWithoutVersion(t *testing.T) {
	data := `{"timestamp":"2024-01-15T10:30:00Z","totalCollections":0,"collections":[]}`
	s, err := Decode([]byte(data))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if s.Version != "" {
		t.Errorf("Version = %q, want empty", s.Version)
	}
}
