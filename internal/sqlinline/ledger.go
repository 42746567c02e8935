package sqlinline

const QEnsureGenerationJobs = `--sql c4f5ad1a-35eb-45e5-bc47-320d1f493ec3
create table if not exists generation_jobs (
    id            uuid primary key,
    handle        text not null unique,
    provider      text not null default '',
    endpoint      text not null default '',
    status        text not null,
    result_json   jsonb,
    error_message text not null default '',
    created_at    timestamptz not null default now(),
    updated_at    timestamptz not null default now()
);
`

const QUpsertGenerationJob = `--sql 2059c908-3189-42d9-b672-9f7cec8b59cd
insert into generation_jobs (id, handle, provider, endpoint, status, result_json, error_message, created_at, updated_at)
values ($1::uuid, $2::text, $3::text, $4::text, $5::text, $6::jsonb, $7::text, now(), now())
on conflict (handle) do update set
    status = excluded.status,
    result_json = coalesce(excluded.result_json, generation_jobs.result_json),
    error_message = excluded.error_message,
    updated_at = now();
`

const QSelectGenerationJob = `--sql f4d2197c-6853-466c-9e80-22386fee6582
select id::text, handle, provider, endpoint, status, result_json, error_message, created_at, updated_at
from generation_jobs
where handle = $1::text
limit 1;
`
