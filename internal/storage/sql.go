package storage

const (
	initSchemaSQL = `
CREATE TABLE IF NOT EXISTS sessions (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    start_time TIMESTAMP NOT NULL,
    mode       TEXT      NOT NULL,
    source     TEXT      NOT NULL,
    config     TEXT
);

CREATE TABLE IF NOT EXISTS snapshots (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id   INTEGER   NOT NULL REFERENCES sessions (id),
    timestamp    TIMESTAMP NOT NULL,
    prn          INTEGER   NOT NULL,
    status       TEXT      NOT NULL,
    sample_count INTEGER   NOT NULL,
    mean_power   REAL,
    phase_lock   REAL,
    byte_offset  INTEGER   NOT NULL
);`

	initIndexesSQL = `
CREATE INDEX IF NOT EXISTS idx_snapshots_session_prn_time
    ON snapshots (session_id, prn, timestamp);`

	insertSessionSQL = `
INSERT INTO sessions (
                      start_time,
                      mode,
                      source,
                      config)
VALUES (?, ?, ?, ?)`

	selectSessionSQL = `
SELECT
    id,
    start_time,
    mode,
    source,
    config
FROM sessions
WHERE
    id = ?`

	selectSessionsSQL = `
SELECT
    id,
    start_time,
    mode,
    source,
    config
FROM sessions
ORDER BY start_time, id`

	insertSnapshotSQL = `
INSERT INTO snapshots (session_id,
                       timestamp,
                       prn,
                       status,
                       sample_count,
                       mean_power,
                       phase_lock,
                       byte_offset)
VALUES `

	selectSnapshotsSQL = `
SELECT
    timestamp,
    prn,
    status,
    sample_count,
    mean_power,
    phase_lock,
    byte_offset
FROM snapshots
WHERE
    session_id = ?
    AND (? IS NULL OR prn = ?)
    AND (? IS NULL OR timestamp >= ?)
    AND (? IS NULL OR timestamp <= ?)
ORDER BY timestamp, prn, id`

	selectSummariesSQL = `
SELECT
    s.prn,
    COUNT(*),
    SUM(CASE WHEN s.status = 'ok' THEN 1 ELSE 0 END),
    SUM(CASE WHEN s.status IN ('read-error', 'file-missing') THEN 1 ELSE 0 END),
    AVG(s.phase_lock),
    MAX(s.sample_count),
    (SELECT l.status
     FROM snapshots l
     WHERE l.session_id = s.session_id AND l.prn = s.prn
     ORDER BY l.timestamp DESC, l.id DESC
     LIMIT 1),
    MAX(s.timestamp)
FROM snapshots s
WHERE
    s.session_id = ?
GROUP BY s.prn
ORDER BY s.prn`
)
