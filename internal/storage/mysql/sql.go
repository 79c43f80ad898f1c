package mysql

const insertFetchSQL = `
INSERT INTO fetch_attempts
  (started_at, duration_ms, source_trigger, ok, tours, featured, duplicates, error)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?)
`

// Newest first; id breaks ties between attempts in the same millisecond.
const listFetchesSQL = `
SELECT id, started_at, duration_ms, source_trigger, ok, tours, featured, duplicates, error
FROM fetch_attempts
ORDER BY started_at DESC, id DESC
LIMIT ?
`
