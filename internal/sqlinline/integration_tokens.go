package sqlinline

const QSelectIntegrationToken = `--sql 4d9b7e2a-1c6f-4a3d-8b5e-9f2c7a4d1e11
select token
from integration_tokens
where provider = $1::text
limit 1;
`

const QUpsertIntegrationToken = `--sql b6e3a8d1-7f4c-4e9b-a2d5-3c8f1b6e4a12
insert into integration_tokens (id, provider, token, properties, created_at, updated_at)
values (gen_random_uuid(), $1::text, $2::text, coalesce($3::jsonb, '{}'::jsonb), now(), now())
on conflict (provider) do update set
    token = excluded.token,
    properties = excluded.properties,
    updated_at = now();
`
