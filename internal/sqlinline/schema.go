package sqlinline

// QEnsureArtifactsTable creates the artifact table on startup. The service
// owns its schema the same way it owns its cache semantics; there is no
// external migration step for a single table.
const QEnsureArtifactsTable = `--sql 97799be5-d4b3-46d5-b21d-a379dea458e4
create table if not exists artifacts (
    id uuid primary key,
    source_request_id text not null,
    scope text not null,
    category text not null,
    variant text not null,
    title text not null default '',
    payload_ref text not null,
    image_ref text not null default '',
    duration_seconds double precision not null default 0,
    quality_score double precision not null default 0,
    status text not null default 'available',
    consumed_by_task uuid,
    consumed_at timestamptz,
    created_at timestamptz not null default now(),
    expires_at timestamptz not null
);
create index if not exists idx_artifacts_match
    on artifacts (scope, category, variant, status, expires_at);
create index if not exists idx_artifacts_status on artifacts (status);
`
