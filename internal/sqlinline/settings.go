package sqlinline

const QSelectDefaultSettings = `--sql 86b48a88-7924-4678-98ed-169a4778d93a
select default_theme, default_tool_settings, version, coalesce(updated_by::text, ''), updated_at
from default_settings
where id = 1;
`

const QSeedDefaultSettings = `--sql 9487dfe0-7949-41ad-b2eb-e11671e8054a
insert into default_settings (id, default_theme, default_tool_settings, version, updated_at)
values (1, $1::text, $2::jsonb, 1, now())
on conflict (id) do nothing;
`

const QUpdateDefaultSettings = `--sql 466db1ee-44dc-455e-9ade-b4e8874dcbe3
update default_settings
set default_theme = $2::text,
    default_tool_settings = $3::jsonb,
    version = version + 1,
    updated_by = nullif($4::text, '')::uuid,
    updated_at = now()
where id = 1
  and version = $1::int
returning default_theme, default_tool_settings, version, coalesce(updated_by::text, ''), updated_at;
`

const QSelectUserSettings = `--sql e3618d32-405b-4c1b-bb59-6021528ba264
select user_id::text, theme, tool_settings, updated_at
from user_settings
where user_id = $1::uuid;
`

const QUpsertUserSettings = `--sql 107108f8-68ec-4c72-a4e2-ca69a420b104
insert into user_settings (user_id, theme, tool_settings, updated_at)
values ($1::uuid, $2::text, $3::jsonb, now())
on conflict (user_id) do update set
    theme = excluded.theme,
    tool_settings = excluded.tool_settings,
    updated_at = now()
returning user_id::text, theme, tool_settings, updated_at;
`
