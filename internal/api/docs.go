package api

const docsHTML = `<!doctype html>
<html lang="en" data-theme="dark">
<head>
  <meta charset="utf-8" />
  <meta name="referrer" content="same-origin" />
  <meta name="viewport" content="width=device-width, initial-scale=1, shrink-to-fit=no" />
  <title>Diff JAM API</title>
  <link href="https://unpkg.com/@stoplight/elements@9.0.0/styles.min.css" rel="stylesheet" />
  <script src="https://unpkg.com/@stoplight/elements@9.0.0/web-components.min.js" crossorigin="anonymous"></script>
</head>
<body style="height: 100vh; margin: 0; position: relative;">
  <a href="/docs/stream" style="
    position: fixed;
    top: 12px;
    right: 16px;
    z-index: 9999;
    background: #161b22;
    border: 1px solid #30363d;
    border-radius: 6px;
    color: #58a6ff;
    font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif;
    font-size: 12px;
    padding: 5px 12px;
    text-decoration: none;
  ">Report Stream Docs</a>
  <elements-api
    apiDescriptionUrl="/openapi.json"
    router="hash"
    layout="sidebar"
    tryItCredentialsPolicy="same-origin"
    darkMode
  />
</body>
</html>`

const streamDocsHTML = `<!doctype html>
<html lang="en" data-theme="dark">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>Report Stream - Diff JAM</title>
  <style>
    body { margin: 0; padding: 32px; background: #0d1117; color: #c9d1d9;
      font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif; font-size: 14px; line-height: 1.6; }
    main { max-width: 860px; margin: 0 auto; }
    a { color: #58a6ff; text-decoration: none; }
    h1, h2 { color: #e6edf3; font-weight: 600; }
    h2 { border-bottom: 1px solid #21262d; padding-bottom: 8px; margin-top: 36px; }
    code, pre { font-family: ui-monospace, SFMono-Regular, Menlo, monospace; font-size: 13px; }
    pre { background: #161b22; border: 1px solid #30363d; border-radius: 6px; padding: 12px 16px; overflow-x: auto; }
  </style>
</head>
<body>
<main>
  <p><a href="/docs">&larr; API reference</a></p>
  <h1>Report Stream</h1>
  <p>Every visible report is pushed to stream subscribers as one JSON event.
  Slow subscribers drop events rather than block capture.</p>

  <h2>Server-sent events</h2>
  <pre>GET /api/v1/stream
GET /api/v1/stream?sessions=ID1,ID2</pre>
  <pre>event: report
data: {"session_id":"...","key":"GET https://api.example.com/v1/orders","report":"- \"a\": 1\n+ \"a\": 2\n\n","changed":true,"at":"..."}</pre>

  <h2>WebSocket</h2>
  <pre>GET /api/v1/stream/ws?sessions=ID1</pre>
  <p>Each text frame carries the same JSON object as the SSE <code>data</code> line.
  Client frames are ignored.</p>

  <h2>Fields</h2>
  <pre>session_id  stable ID derived from the session key
key         "METHOD URL", with " #tab" when sessions are per tab
report      grouped report, or "No changes."
changed     false when report is "No changes."
at          UTC time the report was rendered</pre>
</main>
</body>
</html>`
