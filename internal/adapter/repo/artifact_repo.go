package repo

import (
	"context"
	"fmt"
	"time"

	"tuneforge/internal/domain"
	"tuneforge/internal/infra"
	"tuneforge/internal/sqlinline"
)

// ArtifactRepositoryPG implements domain.ArtifactStore on PostgreSQL. The
// reserve step relies on a conditional UPDATE so two concurrent matchers can
// never both claim the same row.
type ArtifactRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewArtifactRepository creates an artifact store backed by PostgreSQL.
func NewArtifactRepository(sql infra.SQLExecutor) *ArtifactRepositoryPG {
	return &ArtifactRepositoryPG{sql: sql}
}

// EnsureSchema creates the artifacts table and its indexes if missing.
func (r *ArtifactRepositoryPG) EnsureSchema(ctx context.Context) error {
	if _, err := r.sql.Exec(ctx, sqlinline.QEnsureArtifactsTable); err != nil {
		return fmt.Errorf("ensure artifacts schema: %w", err)
	}
	return nil
}

func (r *ArtifactRepositoryPG) Put(ctx context.Context, a *domain.Artifact) error {
	_, err := r.sql.Exec(ctx, sqlinline.QInsertArtifact,
		a.ID,
		a.SourceRequestID,
		a.Scope,
		a.Category,
		string(a.Variant),
		a.Title,
		a.PayloadRef,
		a.ImageRef,
		a.DurationSeconds,
		a.QualityScore,
		string(a.Status),
		a.CreatedAt,
		a.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("insert artifact: %w", err)
	}
	return nil
}

func (r *ArtifactRepositoryPG) Get(ctx context.Context, id string) (*domain.Artifact, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectArtifact, id)
	a, err := scanArtifact(row.Scan)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select artifact: %w", err)
	}
	return a, nil
}

func (r *ArtifactRepositoryPG) ListCandidates(ctx context.Context, scope, category string, variant domain.Variant, now time.Time) ([]domain.Artifact, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QSelectCandidates, scope, category, string(variant), now)
	if err != nil {
		return nil, fmt.Errorf("select candidates: %w", err)
	}
	defer rows.Close()

	var out []domain.Artifact
	for rows.Next() {
		a, err := scanArtifact(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}
	return out, nil
}

func (r *ArtifactRepositoryPG) MarkReserved(ctx context.Context, id string) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QReserveArtifact, id)
	if err != nil {
		return fmt.Errorf("reserve artifact: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return getErr
		}
		return domain.ErrConflict
	}
	return nil
}

func (r *ArtifactRepositoryPG) MarkConsumed(ctx context.Context, id, taskID string) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QConsumeArtifact, id, taskID)
	if err != nil {
		return fmt.Errorf("consume artifact: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return getErr
		}
		return domain.ErrConflict
	}
	return nil
}

func (r *ArtifactRepositoryPG) Sweep(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.sql.Exec(ctx, sqlinline.QSweepExpired, now)
	if err != nil {
		return 0, fmt.Errorf("sweep artifacts: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *ArtifactRepositoryPG) CountByStatus(ctx context.Context) (map[domain.ArtifactStatus]int64, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QArtifactCountsByStatus)
	if err != nil {
		return nil, fmt.Errorf("count artifacts: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.ArtifactStatus]int64)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[domain.ArtifactStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate counts: %w", err)
	}
	return counts, nil
}

func (r *ArtifactRepositoryPG) AvgAgeAtConsumption(ctx context.Context) (time.Duration, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QAvgAgeAtConsumption)
	var seconds float64
	if err := row.Scan(&seconds); err != nil {
		return 0, fmt.Errorf("avg consumption age: %w", err)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

func scanArtifact(scan func(dest ...any) error) (*domain.Artifact, error) {
	var a domain.Artifact
	var variant, status string
	if err := scan(
		&a.ID,
		&a.SourceRequestID,
		&a.Scope,
		&a.Category,
		&variant,
		&a.Title,
		&a.PayloadRef,
		&a.ImageRef,
		&a.DurationSeconds,
		&a.QualityScore,
		&status,
		&a.ConsumedByTask,
		&a.CreatedAt,
		&a.ExpiresAt,
	); err != nil {
		return nil, err
	}
	a.Variant = domain.Variant(variant)
	a.Status = domain.ArtifactStatus(status)
	return &a, nil
}

var _ domain.ArtifactStore = (*ArtifactRepositoryPG)(nil)
