package sqlinline

const QInsertDefaultAccount = `--sql 3f1c9a8e-5b2d-4c6f-9e1a-7d8b4c2f6a01
insert into accounts (id, email, plan, credits, created_at, updated_at)
values ($1::text, $2::text, $3::text, $4::bigint, now(), now())
on conflict (id) do nothing;
`

const QSelectAccountByID = `--sql 9b7e2d41-3a5c-4f8b-b6d2-1e9f7c3a8d02
select id, email, plan, credits, created_at, updated_at
from accounts
where id = $1::text
limit 1;
`

const QSelectAccountForUpdate = `--sql c4a81f6d-2e9b-4d7a-8c3f-5b1d9e7a2f03
select credits
from accounts
where id = $1::text
for update;
`

const QDeductCredits = `--sql 7d2f8b3a-6c1e-4a9d-b5f8-3e7a1c9d4b04
update accounts
set credits = credits - $2::bigint, updated_at = now()
where id = $1::text
returning credits;
`

const QTouchAccount = `--sql 1e6b4d9f-8a3c-4e2b-97d1-6f4a8b2e5c05
update accounts
set updated_at = now()
where id = $1::text;
`

const QSetAccountPlan = `--sql a9d3e7b1-4f8c-4b6a-82e9-d1c5f3a7b906
update accounts
set plan = $2::text, credits = $3::bigint, updated_at = now()
where id = $1::text
returning id, email, plan, credits, created_at, updated_at;
`

const QGrantCredits = `--sql 5c8f1a4e-7b2d-4c9f-a3e6-8d2b5f1c7e07
update accounts
set credits = case when credits = -1 then -1 else credits + $2::bigint end,
    updated_at = now()
where id = $1::text
returning credits;
`
