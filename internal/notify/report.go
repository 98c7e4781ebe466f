// Package notify renders backup run reports and delivers them by email.
package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"strings"

	"github.com/aelpxy/dockup/pkg/models"
	"github.com/dustin/go-humanize"
)

// Report is the rendered form of a RunSummary.
type Report struct {
	Subject string
	Text    string
	HTML    string
}

type itemRow struct {
	Name     string
	Kind     string
	Status   string
	Size     string
	Duration string
	Error    string
	OK       bool
}

type appView struct {
	Name   string
	OK     bool
	Error  string
	Items  []itemRow
	Totals string
}

type reportView struct {
	Title    string
	Hostname string
	Date     string
	Kind     string
	OK       bool
	Apps     []appView
	Totals   string
}

var htmlTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; color: #222; }
table { border-collapse: collapse; margin-bottom: 16px; }
th, td { border: 1px solid #ccc; padding: 4px 8px; text-align: left; }
.ok { color: #1a7f37; }
.failed { color: #cf222e; }
.dim { color: #666; }
</style>
</head>
<body>
<h1 class="{{if .OK}}ok{{else}}failed{{end}}">{{.Title}}</h1>
<p class="dim">{{.Hostname}} - {{.Date}} ({{.Kind}})</p>
{{range .Apps}}
<h2>{{.Name}}{{if not .OK}} <span class="failed">failed</span>{{end}}</h2>
{{if .Error}}<p class="failed">{{.Error}}</p>{{end}}
{{if .Items}}
<table>
<tr><th>Item</th><th>Kind</th><th>Status</th><th>Size</th><th>Duration</th><th>Error</th></tr>
{{range .Items}}<tr><td>{{.Name}}</td><td>{{.Kind}}</td><td class="{{if .OK}}ok{{else}}failed{{end}}">{{.Status}}</td><td>{{.Size}}</td><td>{{.Duration}}</td><td>{{.Error}}</td></tr>
{{end}}</table>
<p class="dim">{{.Totals}}</p>
{{end}}
{{end}}
<p><strong>{{.Totals}}</strong></p>
</body>
</html>
`))

// BuildReport renders the run summary as a subject line, a plain text body
// and an HTML body.
func BuildReport(summary models.RunSummary) (Report, error) {
	view := newView(summary)

	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, view); err != nil {
		return Report{}, fmt.Errorf("failed to render report: %w", err)
	}

	return Report{
		Subject: view.Title,
		Text:    plainText(view),
		HTML:    buf.String(),
	}, nil
}

func newView(summary models.RunSummary) reportView {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown host"
	}

	status := "succeeded"
	if !summary.OK() {
		status = "failed"
	}
	kind := summary.Kind
	if kind == "" {
		kind = models.BackupKindManual
	}

	view := reportView{
		Title:    fmt.Sprintf("dockup backup %s on %s", status, hostname),
		Hostname: hostname,
		Date:     summary.Timestamp.Format("2006-01-02 15:04:05"),
		Kind:     string(kind),
		OK:       summary.OK(),
		Totals:   totalsLine(summary.Totals()),
	}

	for _, app := range summary.Apps {
		av := appView{Name: app.Name, OK: app.OK(), Totals: totalsLine(app.Totals())}
		if app.Err != nil {
			av.Error = app.Err.Error()
		}
		for _, item := range app.Items {
			row := itemRow{
				Name:     item.Name,
				Kind:     string(item.Kind),
				Status:   item.Status(),
				Size:     item.Size.String(),
				Duration: item.DurationString(),
				OK:       item.OK(),
			}
			if item.Err != nil {
				row.Error = item.Err.Error()
			}
			av.Items = append(av.Items, row)
		}
		view.Apps = append(view.Apps, av)
	}
	return view
}

func totalsLine(t models.Totals) string {
	return fmt.Sprintf("%d item(s): %d ok, %d failed, %s in %.2fs",
		t.Items, t.Succeeded, t.Failed, humanize.IBytes(uint64(t.Bytes)), t.Duration.Seconds())
}

func plainText(view reportView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", strings.ToUpper(view.Title))
	fmt.Fprintf(&b, "Date: %s (%s)\n\n", view.Date, view.Kind)

	for _, app := range view.Apps {
		fmt.Fprintf(&b, "%s\n", app.Name)
		if app.Error != "" {
			fmt.Fprintf(&b, "  error: %s\n", app.Error)
		}
		for _, item := range app.Items {
			fmt.Fprintf(&b, "  %-6s %-5s %-24s %10s %8s", item.Status, item.Kind, item.Name, item.Size, item.Duration)
			if item.Error != "" {
				fmt.Fprintf(&b, "  %s", item.Error)
			}
			b.WriteString("\n")
		}
		if len(app.Items) > 0 {
			fmt.Fprintf(&b, "  %s\n", app.Totals)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "TOTAL: %s\n", view.Totals)
	return b.String()
}
