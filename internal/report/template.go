package report

// ReportTemplate is the HTML template for the study report.
// It is embedded as a Go constant, so the page has no external file
// dependencies and can be mailed or archived as a single artifact.
const ReportTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<style>
  :root {
    --bg: #ffffff;
    --text: #1a1a2e;
    --muted: #6b7280;
    --border: #e5e7eb;
    --accent: #2563eb;
    --green: #16a34a;
    --red: #dc2626;
    --orange: #ea580c;
    --section-bg: #f8fafc;
  }
  * { margin: 0; padding: 0; box-sizing: border-box; }
  body {
    font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
    color: var(--text);
    background: var(--bg);
    line-height: 1.6;
    max-width: 960px;
    margin: 0 auto;
    padding: 20px;
  }
  h1, h2, h3 { font-weight: 600; }
  h1 { font-size: 1.5rem; margin-bottom: 4px; }
  h2 { font-size: 1.2rem; margin: 24px 0 12px; padding-bottom: 6px; border-bottom: 2px solid var(--accent); }
  p { margin: 6px 0; }
  .muted { color: var(--muted); font-size: 0.85rem; }

  .header {
    display: flex;
    justify-content: space-between;
    align-items: flex-start;
    border-bottom: 3px solid var(--accent);
    padding-bottom: 12px;
    margin-bottom: 16px;
  }
  .header-left h1 { color: var(--accent); }
  .header-right { text-align: right; }
  .ticker-badge {
    display: inline-block;
    background: var(--accent);
    color: white;
    padding: 2px 12px;
    border-radius: 4px;
    font-weight: 700;
    font-size: 1.1rem;
    margin-right: 8px;
  }
  .keyword-badge {
    display: inline-block;
    background: var(--orange);
    color: white;
    padding: 2px 12px;
    border-radius: 4px;
    font-weight: 700;
    font-size: 1.1rem;
  }

  .stat-bar {
    display: grid;
    grid-template-columns: repeat(auto-fill, minmax(140px, 1fr));
    gap: 8px;
    background: var(--section-bg);
    padding: 12px;
    border-radius: 8px;
    margin-bottom: 16px;
  }
  .stat-item { text-align: center; }
  .stat-item .label { font-size: 0.75rem; color: var(--muted); text-transform: uppercase; }
  .stat-item .value { font-size: 1rem; font-weight: 600; }
  .positive { color: var(--green); }
  .negative { color: var(--red); }

  .chart-box { margin: 12px 0; overflow-x: auto; }

  table { width: 100%; border-collapse: collapse; margin: 8px 0 16px; font-size: 0.9rem; }
  th { background: var(--section-bg); text-align: left; padding: 8px; font-weight: 600; }
  td { padding: 8px; border-bottom: 1px solid var(--border); }
  .status-badge {
    display: inline-block;
    padding: 1px 8px;
    border-radius: 3px;
    font-size: 0.78rem;
    font-weight: 600;
    text-transform: uppercase;
  }
  .status-badge.ok { background: #dcfce7; color: var(--green); }
  .status-badge.empty { background: #fefce8; color: #a16207; }
  .status-badge.failed { background: #fef2f2; color: var(--red); }
  .status-badge.skipped { background: #f3f4f6; color: var(--muted); }

  .warn-box {
    background: #fef2f2;
    border-left: 5px solid var(--red);
    padding: 10px 14px;
    border-radius: 6px;
    margin: 12px 0;
    font-size: 0.9rem;
  }

  .footer {
    margin-top: 28px;
    padding-top: 10px;
    border-top: 1px solid var(--border);
    font-size: 0.78rem;
    color: var(--muted);
    text-align: center;
  }
</style>
</head>
<body>

<div class="header">
  <div class="header-left">
    <h1>{{.Title}}</h1>
    <p class="muted">{{.RangeLabel}} &middot; generated {{.GeneratedAt}}</p>
  </div>
  <div class="header-right">
    <span class="ticker-badge">{{.Ticker}}</span><span class="keyword-badge">{{.Keyword}}</span>
  </div>
</div>

<div class="stat-bar">
  <div class="stat-item"><div class="label">Days</div><div class="value">{{.Rows}}</div></div>
  <div class="stat-item"><div class="label">Pairs</div><div class="value">{{.Pairs}}</div></div>
  <div class="stat-item"><div class="label">Pearson</div><div class="value {{.PearsonClass}}">{{.Pearson}}</div></div>
  <div class="stat-item"><div class="label">Spearman</div><div class="value">{{.Spearman}}</div></div>
  <div class="stat-item"><div class="label">p-value</div><div class="value">{{.PValue}}</div></div>
  <div class="stat-item"><div class="label">Best lead</div><div class="value">{{.BestLag}}</div></div>
</div>

{{if .HasFailures}}
<div class="warn-box">
  {{.FailedChunks}} chunk(s) could not be fetched. The correlations below
  are computed over the days that did arrive; see the manifest for the
  affected spans.
</div>
{{end}}

<h2>Daily Series</h2>
<div class="chart-box">{{.SeriesChart}}</div>

<h2>Lead / Lag Structure</h2>
<div class="chart-box">{{.LagChart}}</div>

<h2>Regression</h2>
<p class="muted">Ordinary least squares of daily price change on same-day sentiment.</p>
<table>
  <tr><th>n</th><th>alpha</th><th>beta</th><th>R&sup2;</th><th>std err</th><th>p-value</th></tr>
  <tr>
    <td>{{.RegN}}</td><td>{{.Alpha}}</td><td>{{.Beta}}</td>
    <td>{{.R2}}</td><td>{{.StdErr}}</td><td>{{.RegPValue}}</td>
  </tr>
</table>

{{if .Gaps}}
<h2>Gaps</h2>
<table>
  <tr><th>Source</th><th>From</th><th>To</th><th>Reason</th></tr>
  {{range .Gaps}}
  <tr><td>{{.Source}}</td><td>{{.From}}</td><td>{{.To}}</td><td>{{.Reason}}</td></tr>
  {{end}}
</table>
{{end}}

<h2>Chunk Outcomes</h2>
<table>
  <tr><th>Chunk</th><th>Status</th><th>Attempts</th><th>Cache</th><th>Error</th></tr>
  {{range .Outcomes}}
  <tr>
    <td>{{.Chunk}}</td>
    <td><span class="status-badge {{.Status}}">{{.Status}}</span></td>
    <td>{{.Attempts}}</td>
    <td>{{.Cache}}</td>
    <td class="muted">{{.Err}}</td>
  </tr>
  {{end}}
</table>

<div class="footer">
  newspulse run {{.RunID}} &middot; correlation is not causation
</div>

</body>
</html>`
