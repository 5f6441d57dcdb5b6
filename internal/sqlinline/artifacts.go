package sqlinline

const QInsertArtifact = `--sql aaf0a2dd-84bd-46cb-b7f7-a1386d658c75
insert into artifacts (
    id, source_request_id, scope, category, variant, title,
    payload_ref, image_ref, duration_seconds, quality_score,
    status, created_at, expires_at
) values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);
`

const QSelectArtifact = `--sql d2f86587-28c9-4675-b084-79220e5bd40e
select id, source_request_id, scope, category, variant, title,
       payload_ref, image_ref, duration_seconds, quality_score,
       status, coalesce(consumed_by_task::text, ''), created_at, expires_at
from artifacts
where id = $1;
`

const QSelectCandidates = `--sql 857e8e62-84d7-47c9-960f-4f1abe2e701a
select id, source_request_id, scope, category, variant, title,
       payload_ref, image_ref, duration_seconds, quality_score,
       status, coalesce(consumed_by_task::text, ''), created_at, expires_at
from artifacts
where status = 'available'
  and scope = $1
  and category = $2
  and variant = $3
  and expires_at > $4
order by quality_score desc, created_at asc
limit 10;
`

// QReserveArtifact is the compare-and-set that keeps double reservation
// impossible: the row moves available→reserved only if it is still
// available, and the caller checks RowsAffected.
const QReserveArtifact = `--sql edd2acbf-85ca-480e-a88f-7bc721cdab51
update artifacts
set status = 'reserved'
where id = $1 and status = 'available';
`

const QConsumeArtifact = `--sql f1164fd6-9616-4093-9feb-6a7668ed3c0c
update artifacts
set status = 'consumed', consumed_by_task = $2, consumed_at = now()
where id = $1 and status = 'reserved';
`

const QSweepExpired = `--sql 575c66a8-0401-45ae-b1e0-2505eb3d95fc
update artifacts
set status = 'expired'
where status = 'available' and expires_at <= $1;
`
