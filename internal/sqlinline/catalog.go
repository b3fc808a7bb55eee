package sqlinline

const QListTemplates = `--sql 2b9d6f3c-1a8e-4d5b-9c7f-4e2a8d6b1f08
select id, name, description, category, credit_cost
from templates
order by name;
`

const QListLanguages = `--sql 8e4a2c7f-5d1b-4f9e-a6c3-2f8b7d4e9a09
select id, code, name
from languages
order by name;
`
