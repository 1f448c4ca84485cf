// Package report renders engine and archive snapshots as markdown or HTML.
package report

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/ziadkadry99/auto-decide/internal/archive"
	"github.com/ziadkadry99/auto-decide/internal/decision"
	"github.com/ziadkadry99/auto-decide/internal/engine"
)

// Source names where a snapshot's decisions came from.
type Source string

const (
	SourceEngine  Source = "engine"
	SourceArchive Source = "archive"
)

// Snapshot is everything a report shows.
type Snapshot struct {
	Title       string
	GeneratedAt time.Time
	Source      Source
	Status      *engine.Status
	Archive     *archive.Stats
	Decisions   []decision.Decision
}

// FromEngine captures the engine's status and retained decisions.
func FromEngine(eng *engine.Engine, now time.Time) Snapshot {
	st := eng.Status()
	return Snapshot{
		Title:       "Autonomous Decision Engine Report",
		GeneratedAt: now,
		Source:      SourceEngine,
		Status:      &st,
		Decisions:   eng.Decisions(),
	}
}

// FromArchive captures archive statistics and the newest limit decisions.
// A limit of zero or less includes every archived decision.
func FromArchive(ctx context.Context, store *archive.Store, limit int, now time.Time) (Snapshot, error) {
	st, err := store.Stats(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("loading archive stats: %w", err)
	}
	ds, err := store.List(ctx, archive.ListFilter{Limit: limit})
	if err != nil {
		return Snapshot{}, fmt.Errorf("listing archived decisions: %w", err)
	}
	return Snapshot{
		Title:       "Decision Archive Report",
		GeneratedAt: now,
		Source:      SourceArchive,
		Archive:     st,
		Decisions:   ds,
	}, nil
}

// heading title-cases a lower-case phrase such as "decisions by type".
// Casers are stateful, so each call gets its own.
func heading(s string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(s, "_", " "))
}

// Markdown renders the snapshot as GitHub-flavoured markdown.
func Markdown(s Snapshot) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# %s\n\n", s.Title))
	sb.WriteString(fmt.Sprintf("_Generated %s from the %s._\n\n", s.GeneratedAt.UTC().Format(time.RFC1123), s.Source))

	if s.Status != nil {
		writeStatus(&sb, *s.Status)
	}
	if s.Archive != nil {
		writeArchive(&sb, *s.Archive)
	}
	writeDecisions(&sb, s.Decisions)
	writeFailures(&sb, s.Decisions)

	return sb.String()
}

func writeStatus(sb *strings.Builder, st engine.Status) {
	sb.WriteString("## " + heading("engine status") + "\n\n")
	sb.WriteString("| Setting | Value |\n|---|---|\n")
	sb.WriteString(fmt.Sprintf("| Active | %s |\n", yesNo(st.Active)))
	sb.WriteString(fmt.Sprintf("| Auto mode | %s |\n", yesNo(st.AutoMode)))
	sb.WriteString(fmt.Sprintf("| Learning mode | %s |\n", yesNo(st.LearningMode)))
	sb.WriteString(fmt.Sprintf("| Fully autonomous | %s |\n\n", yesNo(st.FullyAutonomous)))

	m := st.Metrics
	sb.WriteString("## " + heading("metrics") + "\n\n")
	sb.WriteString("| Metric | Value |\n|---|---|\n")
	sb.WriteString(fmt.Sprintf("| Total decisions | %d |\n", m.TotalDecisions))
	sb.WriteString(fmt.Sprintf("| Successful executions | %d |\n", m.SuccessfulExecutions))
	sb.WriteString(fmt.Sprintf("| Failed executions | %d |\n", m.FailedExecutions))
	sb.WriteString(fmt.Sprintf("| Pending decisions | %d |\n", m.PendingDecisions))
	sb.WriteString(fmt.Sprintf("| Average confidence | %.1f%% |\n", m.AverageConfidence))
	sb.WriteString(fmt.Sprintf("| Average execution time | %.1fs |\n", m.AverageExecutionTime))
	sb.WriteString(fmt.Sprintf("| System efficiency | %.1f%% |\n", m.SystemEfficiency))
	sb.WriteString(fmt.Sprintf("| Decision velocity | %.2f/h |\n\n", m.DecisionVelocity))

	sb.WriteString("## " + heading("criteria") + "\n\n")
	criteria, err := yaml.Marshal(st.Criteria)
	if err != nil {
		criteria = []byte(fmt.Sprintf("# unavailable: %v\n", err))
	}
	sb.WriteString("```yaml\n")
	sb.Write(criteria)
	sb.WriteString("```\n\n")
}

func writeArchive(sb *strings.Builder, st archive.Stats) {
	sb.WriteString("## " + heading("archive summary") + "\n\n")
	sb.WriteString("| Measure | Value |\n|---|---|\n")
	sb.WriteString(fmt.Sprintf("| Archived decisions | %d |\n", st.Total))
	sb.WriteString(fmt.Sprintf("| Success rate | %.1f%% |\n", st.SuccessRate))
	sb.WriteString(fmt.Sprintf("| Average confidence | %.1f%% |\n", st.AverageConfidence))
	sb.WriteString(fmt.Sprintf("| Average risk | %.1f%% |\n\n", st.AverageRisk))

	if len(st.ByStatus) > 0 {
		sb.WriteString("| Status | Count |\n|---|---|\n")
		statuses := make([]string, 0, len(st.ByStatus))
		for s := range st.ByStatus {
			statuses = append(statuses, string(s))
		}
		sort.Strings(statuses)
		for _, s := range statuses {
			sb.WriteString(fmt.Sprintf("| %s | %d |\n", heading(s), st.ByStatus[decision.Status(s)]))
		}
		sb.WriteString("\n")
	}
}

func writeDecisions(sb *strings.Builder, ds []decision.Decision) {
	sb.WriteString("## " + heading("decisions by type") + "\n\n")
	if len(ds) == 0 {
		sb.WriteString("No decisions recorded.\n\n")
		return
	}

	byType := make(map[decision.Type][]decision.Decision)
	for _, d := range ds {
		byType[d.Type] = append(byType[d.Type], d)
	}

	for _, typ := range decision.Types {
		group := byType[typ]
		if len(group) == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("### %s (%d)\n\n", heading(string(typ)), len(group)))
		sb.WriteString("| ID | Priority | Status | Confidence | Risk | Impact | Description |\n")
		sb.WriteString("|---|---|---|---|---|---|---|\n")
		for _, d := range group {
			sb.WriteString(fmt.Sprintf("| `%s` | %s | %s | %d%% | %d%% | %d%% | %s |\n",
				d.ID, heading(string(d.Priority)), heading(string(d.Status)),
				d.Confidence, d.RiskLevel, d.Impact, escapeCell(d.Description)))
		}
		sb.WriteString("\n")
	}
}

func writeFailures(sb *strings.Builder, ds []decision.Decision) {
	var failed []decision.Decision
	for _, d := range ds {
		if d.Status == decision.StatusFailed {
			failed = append(failed, d)
		}
	}
	if len(failed) == 0 {
		return
	}

	sb.WriteString("## " + heading("failed executions") + "\n\n")
	for _, d := range failed {
		sb.WriteString(fmt.Sprintf("### %s\n\n", escapeCell(d.Description)))
		sb.WriteString(fmt.Sprintf("`%s`, %s priority\n\n", d.ID, d.Priority))
		for _, e := range d.ExecutionLog {
			line := fmt.Sprintf("- %s **%s** (%s)", e.Timestamp.UTC().Format("15:04:05"), e.Action, e.Result)
			if e.Details != "" {
				line += ": " + e.Details
			}
			sb.WriteString(line + "\n")
		}
		sb.WriteString("\n")
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
