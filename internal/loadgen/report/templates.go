package report

// htmlTemplate is the template for the HTML report.
const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Config.Method}} {{.Config.TargetURL}} - Load Test Report</title>
    <script src="https://cdn.jsdelivr.net/npm/chart.js"></script>
    <style>
        :root {
            --bg: #f8fafc;
            --card: #ffffff;
            --text: #1e293b;
            --muted: #64748b;
            --border: #e2e8f0;
            --success: #22c55e;
            --error: #ef4444;
        }
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif;
            background: var(--bg);
            color: var(--text);
            line-height: 1.6;
        }
        .container { max-width: 1200px; margin: 0 auto; padding: 2rem; }
        header { margin-bottom: 1.5rem; }
        header h1 { font-size: 1.5rem; word-break: break-all; }
        header .meta { color: var(--muted); font-size: 0.9rem; }
        .badge { display: inline-block; padding: 0.1rem 0.6rem; border-radius: 999px; color: #fff; font-weight: 600; }
        .badge.passed { background: var(--success); }
        .badge.failures { background: var(--error); }
        .grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(180px, 1fr)); gap: 1rem; margin-bottom: 1.5rem; }
        .card { background: var(--card); border: 1px solid var(--border); border-radius: 8px; padding: 1rem; }
        .card .label { color: var(--muted); font-size: 0.8rem; text-transform: uppercase; }
        .card .value { font-size: 1.4rem; font-weight: 600; }
        table { width: 100%; border-collapse: collapse; background: var(--card); }
        th, td { text-align: left; padding: 0.4rem 0.8rem; border-bottom: 1px solid var(--border); font-size: 0.9rem; }
        tr.failed td { color: var(--error); }
        section { margin-bottom: 1.5rem; }
        section h2 { font-size: 1.1rem; margin-bottom: 0.5rem; }
    </style>
</head>
<body>
<div class="container">
    <header>
        <h1>{{.Config.Method}} {{.Config.TargetURL}}</h1>
        <div class="meta">
            Run {{.RunID}} &middot; {{formatTime .Start}} to {{formatTime .End}} ({{seconds .Duration}} seconds)
            &middot; <span class="badge {{if eq .Status "PASSED"}}passed{{else}}failures{{end}}">{{.Status}}</span>
        </div>
    </header>

    <div class="grid">
        <div class="card"><div class="label">Users</div><div class="value">{{.Config.Users}}</div></div>
        <div class="card"><div class="label">Ramp-up</div><div class="value">{{.Config.RampUp}}s</div></div>
        <div class="card"><div class="label">Loop Count</div><div class="value">{{.Config.LoopCount}}</div></div>
        <div class="card"><div class="label">Requests per Second</div><div class="value">{{.Config.RequestsPerSecond}}</div></div>
    </div>

    <div class="grid">
        <div class="card"><div class="label">Total Requests</div><div class="value">{{.Totals.TotalRequests}}</div></div>
        <div class="card"><div class="label">Successful</div><div class="value">{{.Totals.SuccessRequests}}</div></div>
        <div class="card"><div class="label">Failed</div><div class="value">{{.Totals.FailedRequests}}</div></div>
        <div class="card"><div class="label">Success Rate</div><div class="value">{{printf "%.1f" (successRate .Totals)}}%</div></div>
        <div class="card"><div class="label">Average Response Time</div><div class="value">{{.Average}}</div></div>
        <div class="card"><div class="label">Min / Max</div><div class="value">{{millis .Latency.Min}} / {{millis .Latency.Max}} ms</div></div>
    </div>

    <section>
        <h2>Response Times</h2>
        <div class="card"><canvas id="latencyChart" height="90"></canvas></div>
    </section>

    <section>
        <h2>Response Codes</h2>
        <table>
            <thead><tr><th>Response Code</th><th>Count</th></tr></thead>
            <tbody>
            {{range .StatusCounts}}<tr{{if not .OK}} class="failed"{{end}}><td>{{.Code}}</td><td>{{.Count}}</td></tr>
            {{end}}
            </tbody>
        </table>
    </section>
</div>
<script>
    const resultsData = {{.ResultsJSON}};
    if (typeof Chart !== 'undefined' && resultsData.length > 0) {
        new Chart(document.getElementById('latencyChart'), {
            type: 'bar',
            data: {
                labels: resultsData.map(r => r.i),
                datasets: [{
                    label: 'Response Time (ms)',
                    data: resultsData.map(r => r.ms),
                    backgroundColor: resultsData.map(r => r.ok ? '#22c55e' : '#ef4444')
                }]
            },
            options: {
                plugins: {
                    tooltip: {
                        callbacks: {
                            title: items => {
                                const r = resultsData[items[0].dataIndex];
                                return 'User ' + r.user + ' - Request ' + r.iteration + ' (' + r.code + ')';
                            }
                        }
                    }
                },
                scales: { y: { beginAtZero: true } }
            }
        });
    }
</script>
</body>
</html>
`
