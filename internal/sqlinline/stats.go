package sqlinline

const QArtifactCountsByStatus = `--sql 52fcbb89-24b6-491a-8f76-edd387c82ca6
select status, count(*)
from artifacts
group by status;
`

const QAvgAgeAtConsumption = `--sql 738a9562-dfc8-4db2-8a71-fd4955fa660b
select coalesce(avg(extract(epoch from (consumed_at - created_at))), 0)
from artifacts
where status = 'consumed' and consumed_at is not null;
`
