package docsnap_test

import (
	"context"
	"fmt"
	"testing"

	"docsnap/internal/docsnap"
	"docsnap/internal/snapshot"
	"docsnap/internal/store"
	"docsnap/internal/testutil"
)

// seed creates a collection holding n generated records.
func seed(t *testing.T, s docsnap.Store, name string, n int) {
	t.Helper()
	ctx := context.Background()

	c, err := s.CreateCollection(ctx, name, snapshot.Metadata{"owner": name})
	if err != nil {
		t.Fatalf("CreateCollection(%q) error = %v", name, err)
	}
	if n == 0 {
		return
	}
	if err := s.AddRecords(ctx, c, genRecords(name, n)); err != nil {
		t.Fatalf("AddRecords(%q) error = %v", name, err)
	}
}

func genRecords(prefix string, n int) *docsnap.Records {
	r := &docsnap.Records{
		IDs:       make([]string, n),
		Documents: make([]*string, n),
		Metadatas: make([]snapshot.Metadata, n),
	}
	for i := range n {
		r.IDs[i] = fmt.Sprintf("%s-%d", prefix, i)
		doc := fmt.Sprintf("document %d of %s", i, prefix)
		r.Documents[i] = &doc
		r.Metadatas[i] = snapshot.Metadata{"index": fmt.Sprint(i)}
	}
	return r
}

func count(t *testing.T, s docsnap.Store, name string) int {
	t.Helper()
	ctx := context.Background()
	c, err := s.GetCollection(ctx, name)
	if err != nil {
		t.Fatalf("GetCollection(%q) error = %v", name, err)
	}
	n, err := s.Count(ctx, c)
	if err != nil {
		t.Fatalf("Count(%q) error = %v", name, err)
	}
	return n
}

// snapshotOf encodes a snapshot holding one collection per entry of sizes.
func snapshotOf(t *testing.T, sizes map[string]int, order ...string) []byte {
	t.Helper()
	cols := make([]snapshot.CollectionBackup, 0, len(order))
	for _, name := range order {
		r := genRecords(name, sizes[name])
		cols = append(cols, snapshot.CollectionBackup{
			Name:           name,
			Metadata:       snapshot.Metadata{},
			TotalDocuments: r.Len(),
			Data:           r.Data(),
		})
	}
	data, err := snapshot.Encode(snapshot.New(testutil.FixedClock().Now(), cols))
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	return data
}

type fixture struct {
	store *testutil.FaultyStore
	repo  *testutil.FakeRepository
	svc   *docsnap.Service
}

func newFixture(t *testing.T, remoteEnabled, resetAllowed bool, opts docsnap.Options) *fixture {
	t.Helper()
	fs := testutil.NewFaultyStore(store.NewMemoryStore())
	repo := testutil.NewFakeRepository()
	sessions := testutil.StaticSessions(fs, repo, remoteEnabled, resetAllowed)
	return &fixture{
		store: fs,
		repo:  repo,
		svc:   docsnap.NewService(sessions, opts, docsnap.DiscardLogger, testutil.FixedClock()),
	}
}
