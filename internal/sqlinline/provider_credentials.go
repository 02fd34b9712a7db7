package sqlinline

// Provider credentials used by the worker, keyed by provider name
// (for example "gemini" for the Veo API key).

const QSelectProviderCredential = `--sql 3b9f6c27-51e4-4d0a-9a6e-0c8d7f2e41b5
select token
from integration_tokens
where provider = $1::text
  and btrim(token) <> ''
limit 1;
`

const QUpsertProviderCredential = `--sql c4e2a918-7d36-4f8b-b1a5-62f0d93e7c14
insert into integration_tokens (provider, token, properties)
values ($1::text, $2::text, coalesce($3::jsonb, '{}'::jsonb))
on conflict (provider) do update set
    token = excluded.token,
    properties = integration_tokens.properties || excluded.properties,
    updated_at = now();
`
