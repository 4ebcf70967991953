package output

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/torosent/replayfire/internal/report"
	"github.com/torosent/replayfire/internal/threshold"
)

// HTMLReportData contains all data needed for the HTML report template.
type HTMLReportData struct {
	GeneratedAt      string
	Report           *report.Report
	ThresholdSummary *ThresholdSummary
	LevelsJSON       string
}

type levelPoint struct {
	Concurrency int     `json:"concurrency"`
	MeanMs      float64 `json:"mean_ms"`
	P95Ms       float64 `json:"p95_ms"`
	P99Ms       float64 `json:"p99_ms"`
	RPS         float64 `json:"rps"`
	FailureRate float64 `json:"failure_rate"`
}

// GenerateHTMLReport generates a standalone HTML report charting run times
// and throughput against concurrency.
func GenerateHTMLReport(w io.Writer, rep *report.Report, results []threshold.Result) error {
	if rep == nil {
		rep = &report.Report{}
	}

	points := make([]levelPoint, 0, len(rep.Levels))
	for _, l := range rep.Levels {
		points = append(points, levelPoint{
			Concurrency: l.Concurrency,
			MeanMs:      l.Runs.MeanMs,
			P95Ms:       l.Runs.P95Ms,
			P99Ms:       l.Runs.P99Ms,
			RPS:         l.RequestsPerSecond(),
			FailureRate: l.FailureRate(),
		})
	}
	levelsJSON, err := json.Marshal(points)
	if err != nil {
		return fmt.Errorf("failed to marshal levels: %w", err)
	}

	data := HTMLReportData{
		GeneratedAt:      time.Now().Format(time.RFC3339),
		Report:           rep,
		ThresholdSummary: summarize(results),
		LevelsJSON:       string(levelsJSON),
	}

	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"formatDuration": func(d time.Duration) string {
			return d.Round(time.Microsecond).String()
		},
		"formatFloat": func(f float64) string {
			return fmt.Sprintf("%.2f", f)
		},
		"formatPercent": func(rate float64) string {
			return fmt.Sprintf("%.1f", rate*100)
		},
		"positionURL": func(i int) string {
			u, _ := rep.PositionURL(i)
			return u
		},
	}).Parse(htmlTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}

	return nil
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Replayfire Session Replay Report</title>
    <style>
        * {
            margin: 0;
            padding: 0;
            box-sizing: border-box;
        }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
            background: #f5f7fa;
            color: #2c3e50;
            line-height: 1.6;
            padding: 20px;
        }
        .container {
            max-width: 1400px;
            margin: 0 auto;
            background: white;
            border-radius: 8px;
            box-shadow: 0 2px 8px rgba(0,0,0,0.1);
            overflow: hidden;
        }
        header {
            background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
            color: white;
            padding: 30px 40px;
        }
        header h1 {
            font-size: 2rem;
            margin-bottom: 10px;
        }
        header .meta {
            opacity: 0.9;
            font-size: 0.9rem;
        }
        .content {
            padding: 40px;
        }
        .grid {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(250px, 1fr));
            gap: 20px;
            margin-bottom: 40px;
        }
        .card {
            background: #f8f9fa;
            border-radius: 8px;
            padding: 20px;
            border-left: 4px solid #667eea;
        }
        .card h3 {
            font-size: 0.9rem;
            color: #6c757d;
            text-transform: uppercase;
            letter-spacing: 0.5px;
            margin-bottom: 10px;
        }
        .card .value {
            font-size: 2rem;
            font-weight: bold;
            color: #2c3e50;
        }
        .card .subvalue {
            font-size: 0.85rem;
            color: #6c757d;
            margin-top: 5px;
        }
        .card.success {
            border-left-color: #10b981;
        }
        .card.error {
            border-left-color: #ef4444;
        }
        .card.warning {
            border-left-color: #f59e0b;
        }
        .section {
            margin-bottom: 40px;
        }
        .section h2 {
            font-size: 1.5rem;
            margin-bottom: 20px;
            padding-bottom: 10px;
            border-bottom: 2px solid #e5e7eb;
        }
        .chart-container {
            background: white;
            border-radius: 8px;
            padding: 20px;
            margin-bottom: 30px;
            border: 1px solid #e5e7eb;
        }
        .chart-container h3 {
            font-size: 1.1rem;
            margin-bottom: 15px;
            color: #4b5563;
        }
        .chart {
            width: 100%;
            height: 300px;
        }
        table {
            width: 100%;
            border-collapse: collapse;
            background: white;
        }
        th, td {
            text-align: left;
            padding: 12px;
            border-bottom: 1px solid #e5e7eb;
        }
        th {
            background: #f8f9fa;
            font-weight: 600;
            color: #4b5563;
            font-size: 0.9rem;
            text-transform: uppercase;
            letter-spacing: 0.5px;
        }
        tr:hover {
            background: #f8f9fa;
        }
        .badge {
            display: inline-block;
            padding: 4px 12px;
            border-radius: 12px;
            font-size: 0.85rem;
            font-weight: 600;
        }
        .badge-success {
            background: #d1fae5;
            color: #065f46;
        }
        .badge-error {
            background: #fee2e2;
            color: #991b1b;
        }
        .no-data {
            text-align: center;
            padding: 40px;
            color: #6c757d;
            font-style: italic;
        }
    </style>
    <script src="https://cdn.jsdelivr.net/npm/uplot@1.6.24/dist/uPlot.iife.min.js"></script>
    <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/uplot@1.6.24/dist/uPlot.min.css">
</head>
<body>
    <div class="container">
        <header>
            <h1>🔥 Replayfire Session Replay Report</h1>
            <div class="meta">Run {{.Report.RunID}}</div>
            <div class="meta">Generated: {{.GeneratedAt}} | Duration: {{formatDuration .Report.Elapsed}}</div>
        </header>

        <div class="content">
            <div class="grid">
                <div class="card">
                    <h3>URLs Tested</h3>
                    <div class="value">{{.Report.URLsTested}}</div>
                    <div class="subvalue">repeat {{.Report.Repeat}}</div>
                </div>
                <div class="card">
                    <h3>Total Requests</h3>
                    <div class="value">{{.Report.TotalRequests}}</div>
                </div>
                <div class="card error">
                    <h3>Failed</h3>
                    <div class="value">{{.Report.FailedRequests}}</div>
                </div>
                <div class="card warning">
                    <h3>Total Delay</h3>
                    <div class="value">{{formatDuration .Report.TotalDelay}}</div>
                </div>
            </div>

            {{if .Report.Levels}}
            <div class="section">
                <h2>Scaling</h2>

                <div class="chart-container">
                    <h3>Run Duration by Concurrency (ms)</h3>
                    <div id="run-chart" class="chart"></div>
                </div>

                <div class="chart-container">
                    <h3>Requests Per Second by Concurrency</h3>
                    <div id="rps-chart" class="chart"></div>
                </div>
            </div>

            <div class="section">
                <h2>Levels</h2>
                <table>
                    <thead>
                        <tr>
                            <th>Concurrency</th>
                            <th>Requests</th>
                            <th>Failed</th>
                            <th>RPS</th>
                            <th>Mean Run</th>
                            <th>P95 Run</th>
                            <th>Max Run</th>
                        </tr>
                    </thead>
                    <tbody>
                        {{range .Report.Levels}}
                        <tr>
                            <td><strong>{{.Concurrency}}</strong>{{if .FailedWorkers}} <span class="badge badge-error">{{.FailedWorkers}} workers failed</span>{{end}}</td>
                            <td>{{.Requests}}</td>
                            <td>{{.Failed}} ({{formatPercent .FailureRate}}%)</td>
                            <td>{{formatFloat .RequestsPerSecond}}</td>
                            <td>{{formatDuration .Runs.Mean}}</td>
                            <td>{{formatDuration .Runs.P95}}</td>
                            <td>{{formatDuration .Runs.Max}}</td>
                        </tr>
                        {{end}}
                    </tbody>
                </table>
            </div>
            {{end}}

            {{if .ThresholdSummary}}
            <div class="section">
                <h2>Thresholds ({{.ThresholdSummary.Passed}}/{{.ThresholdSummary.Total}} Passed)</h2>
                <table>
                    <thead>
                        <tr>
                            <th>Threshold</th>
                            <th>Concurrency</th>
                            <th>Expected</th>
                            <th>Actual</th>
                            <th>Status</th>
                        </tr>
                    </thead>
                    <tbody>
                        {{range .ThresholdSummary.Results}}
                        <tr>
                            <td>{{.Threshold}}</td>
                            <td>{{.Concurrency}}</td>
                            <td>{{.Operator}} {{formatFloat .Expected}}</td>
                            <td>{{formatFloat .Actual}}</td>
                            <td>
                                {{if .Pass}}
                                <span class="badge badge-success">✓ PASS</span>
                                {{else}}
                                <span class="badge badge-error">✗ FAIL</span>
                                {{end}}
                            </td>
                        </tr>
                        {{end}}
                    </tbody>
                </table>
            </div>
            {{end}}

            {{range .Report.Levels}}
            {{$level := .}}
            {{if .Positions}}
            <div class="section">
                <h2>Positions at Concurrency {{.Concurrency}}</h2>
                <table>
                    <thead>
                        <tr>
                            <th>#</th>
                            <th>URL</th>
                            <th>Samples</th>
                            <th>Failed</th>
                            <th>Mean</th>
                            <th>P95</th>
                        </tr>
                    </thead>
                    <tbody>
                        {{range .SortedPositions}}
                        {{$d := index $level.Positions .}}
                        <tr>
                            <td>{{.}}</td>
                            <td>{{positionURL .}}</td>
                            <td>{{$d.Count}}</td>
                            <td>{{index $level.PositionFailures .}}</td>
                            <td>{{formatDuration $d.Mean}}</td>
                            <td>{{formatDuration $d.P95}}</td>
                        </tr>
                        {{end}}
                    </tbody>
                </table>
            </div>
            {{end}}
            {{end}}

            {{if not .Report.Levels}}
            <div class="no-data">No levels completed</div>
            {{end}}
        </div>
    </div>

    {{if .Report.Levels}}
    <script>
        const levels = JSON.parse({{.LevelsJSON}});
        const concurrency = levels.map(l => l.concurrency);

        new uPlot({
            title: "Run Duration",
            width: document.getElementById('run-chart').offsetWidth,
            height: 300,
            scales: { x: { time: false } },
            series: [
                { label: "Concurrency" },
                { label: "Mean", stroke: "#10b981", width: 2 },
                { label: "P95", stroke: "#f59e0b", width: 2 },
                { label: "P99", stroke: "#ef4444", width: 2 }
            ],
            axes: [
                { label: "Concurrency" },
                { label: "Run duration (ms)" }
            ]
        }, [
            concurrency,
            levels.map(l => l.mean_ms),
            levels.map(l => l.p95_ms),
            levels.map(l => l.p99_ms)
        ], document.getElementById('run-chart'));

        new uPlot({
            title: "Requests Per Second",
            width: document.getElementById('rps-chart').offsetWidth,
            height: 300,
            scales: { x: { time: false } },
            series: [
                { label: "Concurrency" },
                { label: "RPS", stroke: "#667eea", fill: "rgba(102, 126, 234, 0.1)", width: 2 }
            ],
            axes: [
                { label: "Concurrency" },
                { label: "Requests/sec" }
            ]
        }, [concurrency, levels.map(l => l.rps)], document.getElementById('rps-chart'));
    </script>
    {{end}}
</body>
</html>
`
