package repo

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"tuneforge/internal/domain"
)

type scriptedRow struct {
	scan func(dest ...any) error
}

func (r scriptedRow) Scan(dest ...any) error {
	if r.scan == nil {
		return pgx.ErrNoRows
	}
	return r.scan(dest...)
}

type scriptedRows struct {
	rows []func(dest ...any) error
	idx  int
}

func (r *scriptedRows) Next() bool {
	return r.idx < len(r.rows)
}

func (r *scriptedRows) Scan(dest ...any) error {
	scan := r.rows[r.idx]
	r.idx++
	return scan(dest...)
}

func (r *scriptedRows) Close()                                       {}
func (r *scriptedRows) Err() error                                   { return nil }
func (r *scriptedRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *scriptedRows) Conn() *pgx.Conn                              { return nil }
func (r *scriptedRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *scriptedRows) RawValues() [][]byte                          { return nil }
func (r *scriptedRows) Values() ([]any, error) {
	return nil, fmt.Errorf("values not supported in test rows")
}

type execResult struct {
	tag pgconn.CommandTag
	err error
}

type fakeSQL struct {
	execQueries []string
	execResults []execResult
	queryRows   pgx.Rows
	queryErr    error
	row         pgx.Row
}

func (f *fakeSQL) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	f.execQueries = append(f.execQueries, query)
	if len(f.execResults) == 0 {
		return pgconn.NewCommandTag("UPDATE 0"), nil
	}
	res := f.execResults[0]
	f.execResults = f.execResults[1:]
	return res.tag, res.err
}

func (f *fakeSQL) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	if f.row != nil {
		return f.row
	}
	return scriptedRow{}
}

func (f *fakeSQL) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.queryRows, nil
}

func artifactScanner(a domain.Artifact) func(dest ...any) error {
	return func(dest ...any) error {
		*dest[0].(*string) = a.ID
		*dest[1].(*string) = a.SourceRequestID
		*dest[2].(*string) = a.Scope
		*dest[3].(*string) = a.Category
		*dest[4].(*string) = string(a.Variant)
		*dest[5].(*string) = a.Title
		*dest[6].(*string) = a.PayloadRef
		*dest[7].(*string) = a.ImageRef
		*dest[8].(*float64) = a.DurationSeconds
		*dest[9].(*float64) = a.QualityScore
		*dest[10].(*string) = string(a.Status)
		*dest[11].(*string) = a.ConsumedByTask
		*dest[12].(*time.Time) = a.CreatedAt
		*dest[13].(*time.Time) = a.ExpiresAt
		return nil
	}
}

func TestArtifactRepoMarkReservedWins(t *testing.T) {
	sql := &fakeSQL{execResults: []execResult{{tag: pgconn.NewCommandTag("UPDATE 1")}}}
	r := NewArtifactRepository(sql)

	if err := r.MarkReserved(context.Background(), "id-1"); err != nil {
		t.Fatalf("MarkReserved = %v, want nil", err)
	}
	if len(sql.execQueries) != 1 {
		t.Fatalf("exec calls = %d, want 1", len(sql.execQueries))
	}
}

func TestArtifactRepoMarkReservedConflict(t *testing.T) {
	existing := domain.Artifact{
		ID:     "id-1",
		Status: domain.ArtifactStatusReserved,
	}
	sql := &fakeSQL{
		execResults: []execResult{{tag: pgconn.NewCommandTag("UPDATE 0")}},
		row:         scriptedRow{scan: artifactScanner(existing)},
	}
	r := NewArtifactRepository(sql)

	if err := r.MarkReserved(context.Background(), "id-1"); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("MarkReserved = %v, want ErrConflict", err)
	}
}

func TestArtifactRepoMarkReservedNotFound(t *testing.T) {
	sql := &fakeSQL{
		execResults: []execResult{{tag: pgconn.NewCommandTag("UPDATE 0")}},
		row:         scriptedRow{},
	}
	r := NewArtifactRepository(sql)

	if err := r.MarkReserved(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("MarkReserved = %v, want ErrNotFound", err)
	}
}

func TestArtifactRepoGetNotFound(t *testing.T) {
	r := NewArtifactRepository(&fakeSQL{row: scriptedRow{}})

	if _, err := r.Get(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Get = %v, want ErrNotFound", err)
	}
}

func TestArtifactRepoSweepCount(t *testing.T) {
	sql := &fakeSQL{execResults: []execResult{{tag: pgconn.NewCommandTag("UPDATE 7")}}}
	r := NewArtifactRepository(sql)

	n, err := r.Sweep(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if n != 7 {
		t.Fatalf("swept = %d, want 7", n)
	}
}

func TestArtifactRepoListCandidates(t *testing.T) {
	now := time.Now().UTC()
	first := domain.Artifact{
		ID:         "id-1",
		Scope:      "chA",
		Category:   "lofi",
		Variant:    domain.VariantInstrumental,
		Status:     domain.ArtifactStatusAvailable,
		PayloadRef: "https://cdn.example.com/a.mp3",
		CreatedAt:  now,
		ExpiresAt:  now.Add(time.Hour),
	}
	second := first
	second.ID = "id-2"

	sql := &fakeSQL{queryRows: &scriptedRows{rows: []func(dest ...any) error{
		artifactScanner(first),
		artifactScanner(second),
	}}}
	r := NewArtifactRepository(sql)

	got, err := r.ListCandidates(context.Background(), "chA", "lofi", domain.VariantInstrumental, now)
	if err != nil {
		t.Fatalf("ListCandidates: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("candidates = %d, want 2", len(got))
	}
	if got[0].ID != "id-1" || got[1].ID != "id-2" {
		t.Fatalf("candidate order = %s, %s", got[0].ID, got[1].ID)
	}
}

func TestArtifactRepoCountByStatus(t *testing.T) {
	sql := &fakeSQL{queryRows: &scriptedRows{rows: []func(dest ...any) error{
		func(dest ...any) error {
			*dest[0].(*string) = "available"
			*dest[1].(*int64) = 3
			return nil
		},
		func(dest ...any) error {
			*dest[0].(*string) = "expired"
			*dest[1].(*int64) = 1
			return nil
		},
	}}}
	r := NewArtifactRepository(sql)

	counts, err := r.CountByStatus(context.Background())
	if err != nil {
		t.Fatalf("CountByStatus: %v", err)
	}
	if counts[domain.ArtifactStatusAvailable] != 3 || counts[domain.ArtifactStatusExpired] != 1 {
		t.Fatalf("counts = %#v", counts)
	}
}
