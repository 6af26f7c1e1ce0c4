package evaluation

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/okian/followup/internal/domain/model"
)

// ReportMeta carries display context for a rendered report.
type ReportMeta struct {
	Title      string // entity title, falls back to the entity id
	EntityKind string // e.g. "lesson"
}

var glyphs = map[Status]string{
	StatusImproved:         "✅",
	StatusRegressed:        "❌",
	StatusNoChange:         "➖",
	StatusInsufficientData: "⏳",
}

var recommendations = map[Status]string{
	StatusImproved:         "The change is working. Keep it and close the remediation.",
	StatusRegressed:        "Follow-up dropped after the change. Revert or redesign before closing.",
	StatusNoChange:         "No measurable effect yet. Try a stronger intervention or keep observing.",
	StatusInsufficientData: "Not enough origin events on one side to judge. Keep collecting data.",
}

// RenderReport renders d as markdown. Output depends only on its inputs.
func RenderReport(d Delta, meta ReportMeta) string {
	var b strings.Builder
	writeHeader(&b, "Follow-up evaluation", d.After.EntityID, d.Status, d.DeltaRate, meta)

	b.WriteString("| Metric | Before | After | Change |\n")
	b.WriteString("|---|---:|---:|---:|\n")
	writeCounts(&b, d.Before, d.After)
	fmt.Fprintf(&b, "| Follow-up rate | %d%% | %d%% | %s |\n", d.Before.FollowUpRate, d.After.FollowUpRate, signedPP(d.DeltaRate))

	writeBreakdown(&b, d.Before.FollowUpByKind, d.After.FollowUpByKind)
	writeFooter(&b, d.Before.SnapshotAt, d.After.SnapshotAt, d.Status)
	return b.String()
}

// RenderROIReport renders an ROI comparison as markdown.
func RenderROIReport(d ROIDelta, meta ReportMeta) string {
	var b strings.Builder
	writeHeader(&b, "ROI evaluation", d.After.EntityID, d.Status, d.DeltaRate, meta)
	fmt.Fprintf(&b, "**Completion:** %s %s (%s)\n\n", glyphs[d.CompletionStatus], d.CompletionStatus, signedPP(d.CompletionDeltaRate))

	b.WriteString("| Metric | Before | After | Change |\n")
	b.WriteString("|---|---:|---:|---:|\n")
	writeCounts(&b, d.Before.Snapshot, d.After.Snapshot)
	fmt.Fprintf(&b, "| Completions | %d | %d | %s |\n", d.Before.CompletionCount, d.After.CompletionCount, signed(d.After.CompletionCount-d.Before.CompletionCount))
	fmt.Fprintf(&b, "| Follow-up rate | %d%% | %d%% | %s |\n", d.Before.FollowUpRate, d.After.FollowUpRate, signedPP(d.DeltaRate))
	fmt.Fprintf(&b, "| Completion rate | %d%% | %d%% | %s |\n", d.Before.CompletionRate, d.After.CompletionRate, signedPP(d.CompletionDeltaRate))

	writeBreakdown(&b, d.Before.FollowUpByKind, d.After.FollowUpByKind)
	writeFooter(&b, d.Before.SnapshotAt, d.After.SnapshotAt, d.Status)
	return b.String()
}

func writeHeader(b *strings.Builder, heading, id string, st Status, delta int, meta ReportMeta) {
	title := meta.Title
	if title == "" {
		title = id
	}
	kind := meta.EntityKind
	if kind == "" {
		kind = "entity"
	}
	fmt.Fprintf(b, "## %s %s: %s\n\n", glyphs[st], heading, title)
	fmt.Fprintf(b, "- %s: `%s`\n", kind, id)
	fmt.Fprintf(b, "- status: **%s** (%s)\n\n", st, signedPP(delta))
}

func writeCounts(b *strings.Builder, before, after model.Snapshot) {
	fmt.Fprintf(b, "| Origins | %d | %d | %s |\n", before.OriginCount, after.OriginCount, signed(after.OriginCount-before.OriginCount))
	fmt.Fprintf(b, "| Follow-ups | %d | %d | %s |\n", before.FollowUpCount, after.FollowUpCount, signed(after.FollowUpCount-before.FollowUpCount))
}

func writeBreakdown(b *strings.Builder, before, after map[model.Kind]int) {
	kinds := make(map[model.Kind]struct{}, len(before)+len(after))
	for k := range before {
		kinds[k] = struct{}{}
	}
	for k := range after {
		kinds[k] = struct{}{}
	}
	if len(kinds) == 0 {
		return
	}
	sorted := make([]string, 0, len(kinds))
	for k := range kinds {
		sorted = append(sorted, string(k))
	}
	sort.Strings(sorted)

	b.WriteString("\n### Follow-up breakdown\n\n")
	b.WriteString("| Kind | Before | After |\n")
	b.WriteString("|---|---:|---:|\n")
	for _, k := range sorted {
		fmt.Fprintf(b, "| %s | %d | %d |\n", k, before[model.Kind(k)], after[model.Kind(k)])
	}
}

func writeFooter(b *strings.Builder, beforeAt, afterAt time.Time, st Status) {
	fmt.Fprintf(b, "\n_Windows ending %s and %s._\n\n", stamp(beforeAt), stamp(afterAt))
	fmt.Fprintf(b, "> %s\n", recommendations[st])
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return "n/a"
	}
	return t.UTC().Format(time.RFC3339)
}

func signed(n int) string {
	if n > 0 {
		return fmt.Sprintf("+%d", n)
	}
	return fmt.Sprintf("%d", n)
}

func signedPP(n int) string {
	return signed(n) + "pp"
}
