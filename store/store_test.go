package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/nstehr/eocatr-core/model"
	"github.com/nstehr/eocatr-core/rules"
)

func sampleRecords(t *testing.T) []rules.Record {
	t.Helper()
	repo := rules.NewRepository()
	anchor := model.NewElement(model.Environment, "forest", 0)
	a := rules.NewCandidate("exp-1", 1, []model.SymbolicElement{model.NewElement(model.Action, "approach", 0)}, &anchor,
		model.NewElement(model.Result, "injured", 0), 0.7, 0.9)
	a.RecordSupport()
	a.RecordSupport()
	a.RecordRejection()
	a.RecordUsage(true)
	a.SetScore(0.61)
	a.MarkValidated()
	b := rules.NewCandidate("exp-2", 2, []model.SymbolicElement{
		model.NewElement(model.Object, "tiger", 0),
		model.NewElement(model.Tool, "spear", 0),
	}, nil, model.NewElement(model.Result, "safe", 0), 0.55, 0.8)
	b.CreatedAt = a.CreatedAt.Add(time.Second)
	repo.Promote(a)
	repo.Promote(b)
	return repo.Export()
}

func checkRoundTrip(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	want := sampleRecords(t)

	require.NoError(t, s.SaveRules(ctx, want))
	got, err := s.LoadRules(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	// A second save replaces the first.
	require.NoError(t, s.SaveRules(ctx, want[:1]))
	got, err = s.LoadRules(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, want[0].ID, got[0].ID)

	// Records import back into a working repository.
	repo := rules.NewRepository()
	n, err := repo.Import(got)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemory()
	defer s.Close()
	checkRoundTrip(t, s)
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "rules.db")
	s, err := OpenSQLite(path)
	require.NoError(t, err)
	checkRoundTrip(t, s)
	require.NoError(t, s.Close())

	// Reopening keeps data and does not re-run the version insert.
	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.LoadRules(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestPostgresStore(t *testing.T) {
	url := os.Getenv("EOCATR_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("EOCATR_TEST_DATABASE_URL not set")
	}
	s, err := OpenPostgres(context.Background(), url)
	require.NoError(t, err)
	defer s.Close()
	checkRoundTrip(t, s)
}

func TestOpen(t *testing.T) {
	s, err := Open(context.Background(), "memory", "")
	require.NoError(t, err)
	require.IsType(t, &MemoryStore{}, s)

	s, err = Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "r.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(context.Background(), "mongo", "")
	require.ErrorIs(t, err, ErrUnknownDriver)

	_, err = OpenSQLite("")
	require.Error(t, err)
}

func TestFileRoundTrip(t *testing.T) {
	want := sampleRecords(t)
	for _, name := range []string{"rules.yaml", "rules.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, WriteFile(path, want))
			got, err := ReadFile(path)
			require.NoError(t, err)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReadFileErrors(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o644))
	_, err = ReadFile(bad)
	require.Error(t, err)
}
