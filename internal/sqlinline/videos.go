package sqlinline

const QInsertVideoJob = `--sql 6c0aefc7-4602-4ac2-b594-cd2ca84bdc48
insert into video_jobs (
    id, user_id, prompt, model, resolution, aspect_ratio, duration_seconds,
    generate_audio, mock_mode, reference_image_key, locale,
    status, status_message, progress_percentage, logs, tokens_consumed
)
values (
    $1::uuid, $2::uuid, $3::text, $4::text, $5::text, $6::text, $7::int,
    $8::bool, $9::bool, $10::text, $11::text,
    'QUEUED', $12::text, 0, $13::jsonb, $14::int
)
returning created_at, updated_at;
`

const QCountActiveVideoJobs = `--sql 8513c0e9-106b-4af4-9103-45fe3d0aea51
select count(*)
from video_jobs
where user_id = $1::uuid
  and status in ('QUEUED', 'PROCESSING');
`

const QSelectVideoJob = `--sql fa1aad0d-aabd-4292-8eef-6f6d4837b4cd
select
    id::text, user_id::text, prompt, model, resolution, aspect_ratio, duration_seconds,
    generate_audio, mock_mode, reference_image_key, locale,
    status, status_message, progress_percentage, logs, attempt,
    coalesce(artifact_url, ''), coalesce(error_message, ''), tokens_consumed,
    coalesce(worker_id, ''), lease_expires_at,
    created_at, updated_at, started_at, completed_at
from video_jobs
where id = $1::uuid;
`

const QListVideoJobs = `--sql 2fbc265f-48e7-41e2-ae56-56b36e48e29a
select
    id::text, user_id::text, prompt, model, resolution, aspect_ratio, duration_seconds,
    generate_audio, mock_mode, reference_image_key, locale,
    status, status_message, progress_percentage, logs, attempt,
    coalesce(artifact_url, ''), coalesce(error_message, ''), tokens_consumed,
    coalesce(worker_id, ''), lease_expires_at,
    created_at, updated_at, started_at, completed_at
from video_jobs
where user_id = $1::uuid
  and ($2::text = '' or status = $2::text)
order by created_at desc
limit $3::int offset $4::int;
`

const QCountVideoJobs = `--sql caae91e8-400b-4507-8ebb-c66c40e0545b
select count(*)
from video_jobs
where user_id = $1::uuid
  and ($2::text = '' or status = $2::text);
`

const QDeleteTerminalVideoJob = `--sql 0cb6aeec-220a-4c0f-b61b-191aef8d41da
delete from video_jobs
where id = $1::uuid
  and user_id = $2::uuid
  and status in ('SUCCEEDED', 'FAILED');
`

const QClaimVideoJob = `--sql 43f934fd-c3c1-4a15-8a01-61c4829bc4f0
update video_jobs
set status = 'PROCESSING',
    progress_percentage = $3::int,
    status_message = $4::text,
    worker_id = $2::text,
    attempt = attempt + 1,
    started_at = now(),
    lease_expires_at = now() + make_interval(secs => $5::double precision),
    logs = logs || $6::jsonb,
    updated_at = now()
where id = $1::uuid
  and status = 'QUEUED'
returning
    id::text, user_id::text, prompt, model, resolution, aspect_ratio, duration_seconds,
    generate_audio, mock_mode, reference_image_key, locale,
    status, status_message, progress_percentage, logs, attempt,
    coalesce(artifact_url, ''), coalesce(error_message, ''), tokens_consumed,
    coalesce(worker_id, ''), lease_expires_at,
    created_at, updated_at, started_at, completed_at;
`

const QUpdateVideoJobProgress = `--sql 6a47f978-c060-47de-a6fb-9bc40ac46da9
update video_jobs
set progress_percentage = least(greatest(progress_percentage, $3::int), 99),
    status_message = $4::text,
    logs = logs || $5::jsonb,
    updated_at = now()
where id = $1::uuid
  and worker_id = $2::text
  and status = 'PROCESSING'
returning
    id::text, user_id::text, prompt, model, resolution, aspect_ratio, duration_seconds,
    generate_audio, mock_mode, reference_image_key, locale,
    status, status_message, progress_percentage, logs, attempt,
    coalesce(artifact_url, ''), coalesce(error_message, ''), tokens_consumed,
    coalesce(worker_id, ''), lease_expires_at,
    created_at, updated_at, started_at, completed_at;
`

const QHeartbeatVideoJob = `--sql 54a7d3cf-9136-4e40-ba26-9a8a9d4701c4
update video_jobs
set lease_expires_at = now() + make_interval(secs => $3::double precision)
where id = $1::uuid
  and worker_id = $2::text
  and status = 'PROCESSING';
`

const QCompleteVideoJob = `--sql a992ebbe-e42e-46d6-bfe2-4e08505e415b
update video_jobs
set status = 'SUCCEEDED',
    progress_percentage = 100,
    artifact_url = $3::text,
    error_message = null,
    status_message = $4::text,
    logs = logs || $5::jsonb,
    lease_expires_at = null,
    completed_at = now(),
    updated_at = now()
where id = $1::uuid
  and worker_id = $2::text
  and status = 'PROCESSING'
returning
    id::text, user_id::text, prompt, model, resolution, aspect_ratio, duration_seconds,
    generate_audio, mock_mode, reference_image_key, locale,
    status, status_message, progress_percentage, logs, attempt,
    coalesce(artifact_url, ''), coalesce(error_message, ''), tokens_consumed,
    coalesce(worker_id, ''), lease_expires_at,
    created_at, updated_at, started_at, completed_at;
`

const QFailVideoJob = `--sql 4867c347-9985-4ae3-8218-4914fcb97ae5
update video_jobs
set status = 'FAILED',
    artifact_url = null,
    error_message = $3::text,
    status_message = $4::text,
    logs = logs || $5::jsonb,
    lease_expires_at = null,
    completed_at = now(),
    updated_at = now()
where id = $1::uuid
  and worker_id = $2::text
  and status = 'PROCESSING'
returning
    id::text, user_id::text, prompt, model, resolution, aspect_ratio, duration_seconds,
    generate_audio, mock_mode, reference_image_key, locale,
    status, status_message, progress_percentage, logs, attempt,
    coalesce(artifact_url, ''), coalesce(error_message, ''), tokens_consumed,
    coalesce(worker_id, ''), lease_expires_at,
    created_at, updated_at, started_at, completed_at;
`

const QFailExpiredVideoJobs = `--sql 38c66490-85da-490b-b87a-8e8183b06257
with expired as (
    select id
    from video_jobs
    where status = 'PROCESSING'
      and lease_expires_at < now()
    order by lease_expires_at asc
    limit $2::int
    for update skip locked
)
update video_jobs v
set status = 'FAILED',
    artifact_url = null,
    error_message = $1::text,
    status_message = 'Generation failed',
    logs = v.logs || $3::jsonb,
    lease_expires_at = null,
    completed_at = now(),
    updated_at = now()
from expired
where v.id = expired.id
returning
    v.id::text, v.user_id::text, v.prompt, v.model, v.resolution, v.aspect_ratio, v.duration_seconds,
    v.generate_audio, v.mock_mode, v.reference_image_key, v.locale,
    v.status, v.status_message, v.progress_percentage, v.logs, v.attempt,
    coalesce(v.artifact_url, ''), coalesce(v.error_message, ''), v.tokens_consumed,
    coalesce(v.worker_id, ''), v.lease_expires_at,
    v.created_at, v.updated_at, v.started_at, v.completed_at;
`

const QClaimStaleQueuedVideoJobs = `--sql 34ef5514-e6b5-4c44-b08c-0de941cc8823
with stale as (
    select id
    from video_jobs
    where status = 'QUEUED'
      and updated_at < now() - make_interval(secs => $1::double precision)
    order by created_at asc
    limit $2::int
    for update skip locked
)
update video_jobs v
set updated_at = now()
from stale
where v.id = stale.id
returning v.id::text;
`
