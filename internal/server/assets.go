package server

const pageHeader = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>inventoryd</title>
<style>
body { font-family: sans-serif; max-width: 46rem; margin: 2rem auto; padding: 0 1rem; color: #222; }
code, pre { background: #f4f4f4; padding: 0.1rem 0.3rem; border-radius: 3px; }
table { border-collapse: collapse; }
td, th { border: 1px solid #ccc; padding: 0.3rem 0.6rem; }
</style>
</head>
<body>
`

const pageFooter = `</body>
</html>
`

const indexHTML = pageHeader + `<h1>inventoryd</h1>
<p>Personal daily inventory tracker. This daemon stores one row of answers per
calendar day and fires a daily reminder.</p>
<ul>
<li><a href="/help">API documentation</a></li>
<li><a href="/api/status">Daemon status</a></li>
<li><a href="/api/entries">Recorded days</a></li>
<li><a href="/api/export">Export history</a></li>
</ul>
` + pageFooter

const helpMarkdown = `# inventoryd API

One record per calendar day, 24 rows per record. Rows are answered with
0 (left column) or 1 (right column); the header row never carries an answer.

## Entries

| Method | Path | Description |
|--------|------|-------------|
| GET    | /api/entries | All recorded days with per-day summaries |
| GET    | /api/entries/{date} | Answers for one day (absent days read as all unanswered) |
| GET    | /api/entries/{date}/summary | Left/right/remaining counts for one day |
| GET    | /api/summary/average | Average left/right distribution across all days |
| PUT    | /api/entries/{date}/answers/{row} | Record an answer: body ` + "`{\"answer\": 0}`" + ` or ` + "`{\"answer\": 1}`" + ` |
| DELETE | /api/entries?confirm=true | Irreversibly clear all history |

Dates use the YYYY-MM-DD form. Writing to a future date is rejected with 422.

## Backup

| Method | Path | Description |
|--------|------|-------------|
| GET    | /api/export | Download the full history as JSON |
| POST   | /api/import | Replace the full history with an exported file |

An import replaces the whole store; a malformed file changes nothing and
reports ` + "`invalid file format`" + `.

## Reminder

| Method | Path | Description |
|--------|------|-------------|
| GET    | /api/reminder | Scheduler state and next firing time |
| PUT    | /api/reminder | Arm the daily reminder: body ` + "`{\"hour\": 21, \"minute\": 0}`" + ` |
| DELETE | /api/reminder | Disarm and forget the reminder time |
| POST   | /api/reminder/test | Deliver a test notification now |
| POST   | /api/reminder/permission | Probe notification sinks |

## Events

` + "`GET /api/events`" + ` is a Server-Sent Events stream carrying reminder
notifications to connected clients.

## Operational

` + "`/healthz`" + ` for liveness, ` + "`/api/status`" + ` for daemon state,
` + "`/api/stats`" + ` for answer statistics, ` + "`/api/journal?date=`" + ` for
the audit trail behind them.
`
