package sqlinline

const QUpsertGoogleUser = `--sql a9c19e05-e24c-4a64-adaa-e0ad1d178e39
insert into users (google_sub, email, name, picture, locale, tier, available_tokens)
values ($1::text, $2::text, $3::text, $4::text, $5::text, $6::text, $7::int)
on conflict (email) do update set
    google_sub = excluded.google_sub,
    name = excluded.name,
    picture = excluded.picture,
    updated_at = now()
returning id::text, coalesce(google_sub, ''), email, name, picture, locale, role, tier,
          available_tokens, created_at, updated_at, (xmax = 0) as inserted;
`

const QSelectUserByID = `--sql 9ca2f2ab-aba4-49da-9218-7486c4e4d30c
select id::text, coalesce(google_sub, ''), email, name, picture, locale, role, tier,
       available_tokens, created_at, updated_at
from users
where id = $1::uuid
limit 1;
`

const QSelectUserByEmail = `--sql f8d8c567-1f1d-4b3e-894b-402192805314
select id::text, coalesce(google_sub, ''), email, name, picture, locale, role, tier,
       available_tokens, created_at, updated_at
from users
where lower(email) = lower($1::text)
limit 1;
`

const QLockUserBalance = `--sql c15479c3-2ff9-4bdb-abd4-176b7698ad98
select tier, available_tokens
from users
where id = $1::uuid
for update;
`

const QUpdateUserBalance = `--sql 2e40d187-cab3-4182-8ffd-21fd215d688a
update users
set available_tokens = $2::int,
    updated_at = now()
where id = $1::uuid;
`

const QUpdateUserTier = `--sql 8aa0c6e5-1378-4e7a-be72-ac494d310eb1
update users
set tier = $2::text,
    available_tokens = $3::int,
    updated_at = now()
where id = $1::uuid
returning id::text, coalesce(google_sub, ''), email, name, picture, locale, role, tier,
          available_tokens, created_at, updated_at;
`

const QInsertTokenTransaction = `--sql 95684063-fd85-4397-8e85-5c3734a8fad5
insert into token_transactions (user_id, job_id, type, amount, balance_before, balance_after, description)
values ($1::uuid, $2::uuid, $3::text, $4::int, $5::int, $6::int, $7::text);
`

const QListTokenTransactions = `--sql abae757d-a44e-47da-9764-3086ce6062f7
select id::text, user_id::text, job_id::text, type, amount, balance_before, balance_after, description, created_at
from token_transactions
where user_id = $1::uuid
order by created_at desc
limit $2::int offset $3::int;
`
