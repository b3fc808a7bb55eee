package sqlinline

const QInsertUsageEvent = `--sql f3b7d1a9-6e4c-4b8f-92a5-7c1e9f3b6d10
insert into usage_events(id, account_id, event_type, success, credits, properties, created_at)
values ($1::uuid, $2::text, $3::text, $4::boolean, $5::bigint, coalesce($6::jsonb, '{}'::jsonb), now());
`
