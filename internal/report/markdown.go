package report

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/pivotpie/collection-insights/internal/model"
)

const dateLayout = "2006-01-02"

// FormatMarkdown renders a full analysis result as a human-readable report.
func FormatMarkdown(res *model.AnalysisResult) string {
	var b strings.Builder
	p := message.NewPrinter(language.English)

	fmt.Fprintf(&b, "# Collection Insights Report\n")
	fmt.Fprintf(&b, "Reference date: %s\n\n", res.ReferenceDate.Format(dateLayout))

	// Summary.
	o := res.Overview
	b.WriteString("## Summary\n")
	p.Fprintf(&b, "- Records analyzed: %d\n", o.TotalRecords)
	p.Fprintf(&b, "- Unique entities: %d\n", o.UniqueEntities)
	p.Fprintf(&b, "- Service providers: %d | Vehicles: %d\n", o.UniqueProviders, o.UniqueVehicles)
	p.Fprintf(&b, "- Areas: %d | Zones: %d | Categories: %d\n", o.UniqueAreas, o.UniqueZones, o.UniqueCategories)
	p.Fprintf(&b, "- Total gallons collected: %.0f\n", o.TotalGallons)
	p.Fprintf(&b, "- Average gallons per collection: %.1f\n", o.AvgGallons)
	fmt.Fprintf(&b, "- Completion rate: %.1f%%\n", o.CompletionRate)
	if o.AvgTurnaroundDays != nil {
		fmt.Fprintf(&b, "- Average collection-to-discharge turnaround: %.1f days\n", *o.AvgTurnaroundDays)
	}
	if o.DateRangeStart != nil && o.DateRangeEnd != nil {
		fmt.Fprintf(&b, "- Date range: %s to %s\n",
			o.DateRangeStart.Format(dateLayout), o.DateRangeEnd.Format(dateLayout))
	}
	if o.InvalidDates > 0 {
		p.Fprintf(&b, "- Records without a parseable date: %d\n", o.InvalidDates)
	}
	if res.InsufficientData > 0 {
		p.Fprintf(&b, "- Entities with insufficient history: %d\n", res.InsufficientData)
	}
	b.WriteString("\n")

	// Risk summary across every classified entity.
	b.WriteString("## Risk Summary\n")
	summary := res.RiskSummary()
	title := cases.Title(language.English)
	for _, lvl := range model.RiskLevels {
		p.Fprintf(&b, "- %s: %d\n", title.String(string(lvl)), summary[lvl])
	}
	b.WriteString("\n")

	writeGroupSection(&b, p, "Categories", res.GroupsByCategory, false)
	writeGroupSection(&b, p, "Areas", res.GroupsByArea, true)

	// Forecast peaks.
	b.WriteString("## Peak Demand Days\n")
	if len(res.PeakDemandDays) == 0 {
		b.WriteString("No collections expected within the forecast horizon.\n\n")
	} else {
		for _, d := range res.PeakDemandDays {
			p.Fprintf(&b, "- %s: %d expected collections\n",
				d.Date.Format(dateLayout), d.ExpectedCollections)
		}
		b.WriteString("\n")
	}

	// Critical alerts.
	b.WriteString("## Critical Alerts\n")
	if len(res.CriticalAlerts) == 0 {
		b.WriteString("No entities in the critical tier.\n\n")
	} else {
		for _, a := range res.CriticalAlerts {
			name := a.OutletName
			if name == "" {
				name = a.EntityID
			}
			fmt.Fprintf(&b, "- **%s** (%s, %s): %d days overdue, last collected %s\n",
				name, a.EntityID, a.Area, a.DaysOverdue, a.LastCollectionAt.Format(dateLayout))
		}
		b.WriteString("\n")
	}

	if len(res.HighRiskAreas) > 0 {
		b.WriteString("## High-Risk Areas\n")
		for i, area := range res.HighRiskAreas {
			fmt.Fprintf(&b, "%d. %s\n", i+1, area)
		}
		b.WriteString("\n")
	}
	if len(res.HighRiskCategories) > 0 {
		b.WriteString("## High-Risk Categories\n")
		for i, cat := range res.HighRiskCategories {
			fmt.Fprintf(&b, "%d. %s\n", i+1, cat)
		}
		b.WriteString("\n")
	}

	// Provider workload.
	b.WriteString("## Provider Outlook\n")
	if len(res.ProviderOutlook) == 0 {
		b.WriteString("No provider attribution in the dataset.\n")
	} else {
		for _, po := range res.ProviderOutlook {
			p.Fprintf(&b, "- %s: %d entities, %d overdue, %d due within a week (avg interval %.1f days)\n",
				po.Provider, po.Entities, po.Overdue, po.DueWithinWeek, po.AvgIntervalDays)
		}
	}

	return b.String()
}

func writeGroupSection(b *strings.Builder, p *message.Printer, title string, groups []model.GroupProfile, dominant bool) {
	fmt.Fprintf(b, "## %s\n", title)
	if len(groups) == 0 {
		b.WriteString("No groups.\n\n")
		return
	}
	for _, g := range groups {
		p.Fprintf(b, "- **%s**: %d entities, %d collections, avg interval %.1f days",
			g.Key, g.EntityCount, g.Collections, g.AvgIntervalDays)
		if dominant && g.DominantCategory != "" {
			fmt.Fprintf(b, ", mostly %s", g.DominantCategory)
		}
		b.WriteString("\n")
		fmt.Fprintf(b, "  Risk: %d normal / %d upcoming / %d warning / %d critical",
			g.RiskDistribution[model.RiskNormal],
			g.RiskDistribution[model.RiskUpcoming],
			g.RiskDistribution[model.RiskWarning],
			g.RiskDistribution[model.RiskCritical])
		b.WriteString("\n")
		if g.VolumeStats.Count > 0 {
			fmt.Fprintf(b, "  Gallons: mean %.1f (min %.0f, max %.0f, std %.1f)\n",
				g.VolumeStats.Mean, g.VolumeStats.Min, g.VolumeStats.Max, g.VolumeStats.Std)
		}
	}
	b.WriteString("\n")
}
