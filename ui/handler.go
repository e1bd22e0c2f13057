// Package ui provides a small embeddable HTTP handler that renders
// per-session budget reports for a contextpg Engine.
//
// The report is composed as markdown, rendered with goldmark, and
// sanitized with bluemonday before it is served, so hook or tool
// output echoed into session ids can never inject script.
//
//	mux := http.NewServeMux()
//	mux.Handle("/budget/", http.StripPrefix("/budget", ui.Handler(engine, nil)))
package ui

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/youssefsiam38/contextpg"
)

// Config holds UI handler configuration.
type Config struct {
	// Title is the page heading. Defaults to "Context Budget".
	Title string

	// Logger for structured logging. If nil, logging is disabled.
	Logger contextpg.Logger
}

type noopLogger struct{}

func (noopLogger) Debug(msg string, args ...any) {}
func (noopLogger) Info(msg string, args ...any)  {}
func (noopLogger) Warn(msg string, args ...any)  {}
func (noopLogger) Error(msg string, args ...any) {}

type handler struct {
	engine   *contextpg.Engine
	cfg      Config
	md       goldmark.Markdown
	sanitize *bluemonday.Policy
}

// Handler returns an http.Handler serving budget reports.
//
// GET /          index of live sessions
// GET /{id}      report for one session
func Handler(engine *contextpg.Engine, cfg *Config) http.Handler {
	c := Config{}
	if cfg != nil {
		c = *cfg
	}
	if c.Title == "" {
		c.Title = "Context Budget"
	}
	if c.Logger == nil {
		c.Logger = noopLogger{}
	}
	return &handler{
		engine:   engine,
		cfg:      c,
		md:       goldmark.New(goldmark.WithExtensions(extension.Table)),
		sanitize: bluemonday.UGCPolicy(),
	}
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID := strings.Trim(r.URL.Path, "/")
	var report string
	if sessionID == "" {
		report = h.indexMarkdown()
	} else {
		var ok bool
		report, ok = h.sessionMarkdown(sessionID)
		if !ok {
			http.NotFound(w, r)
			return
		}
	}

	var buf bytes.Buffer
	if err := h.md.Convert([]byte(report), &buf); err != nil {
		h.cfg.Logger.Error("failed to render report", "error", err)
		http.Error(w, "render error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(h.sanitize.SanitizeBytes(buf.Bytes()))
}

func (h *handler) indexMarkdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", h.cfg.Title)

	ids := h.engine.SessionIDs()
	if len(ids) == 0 {
		b.WriteString("No live sessions.\n")
		return b.String()
	}

	b.WriteString("| Session | Total tokens | Fresh | Compactions |\n")
	b.WriteString("| --- | --- | --- | --- |\n")
	for _, id := range ids {
		report, ok := h.engine.SessionReport(id)
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "| [%s](%s) | %d | %t | %d |\n",
			id, id, report.Ledger.TotalTokens, report.Ledger.Fresh(),
			report.Ledger.CompactionCount)
	}
	return b.String()
}

func (h *handler) sessionMarkdown(sessionID string) (string, bool) {
	report, ok := h.engine.SessionReport(sessionID)
	if !ok {
		return "", false
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s: %s\n\n", h.cfg.Title, sessionID)

	settings := h.engine.Settings()
	b.WriteString("## Policy\n\n")
	fmt.Fprintf(&b, "- Pruning mode: %s\n", settings.Mode)
	if settings.Mode == contextpg.ModeCacheTTL {
		fmt.Fprintf(&b, "- Prompt cache lifetime tuned for: %s\n", settings.CacheTTL)
	}

	b.WriteString("\n## Token ledger\n\n")
	fmt.Fprintf(&b, "- Total tokens: %d\n", report.Ledger.TotalTokens)
	fmt.Fprintf(&b, "- Fresh: %t\n", report.Ledger.Fresh())
	fmt.Fprintf(&b, "- Compaction generation: %d\n", report.Ledger.CompactionCount)
	if report.Ledger.MemoryFlushCompactionCount != nil {
		fmt.Fprintf(&b, "- Last flush at generation: %d\n", *report.Ledger.MemoryFlushCompactionCount)
	} else {
		b.WriteString("- Last flush at generation: never\n")
	}

	b.WriteString("\n## Snapshots\n\n")
	if len(report.TrackedSnapshots) == 0 && len(report.ExpiredSnapshots) == 0 {
		b.WriteString("None tracked.\n")
		return b.String(), true
	}
	for _, entry := range report.TrackedSnapshots {
		fmt.Fprintf(&b, "- `%s` tracked, %d checks since capture\n", entry.ID, entry.CallsSince)
	}
	for _, id := range report.ExpiredSnapshots {
		fmt.Fprintf(&b, "- `%s` expired\n", id)
	}
	return b.String(), true
}
