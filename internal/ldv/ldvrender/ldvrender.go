// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package ldvrender renders tax reports and LDV projections as markdown.
package ldvrender

import (
	"strings"
	"text/template"

	"github.com/bufdev/ldvctl/internal/ldv/ldvprojection"
	"github.com/bufdev/ldvctl/internal/ldv/ldvtaxreport"
	"github.com/bufdev/ldvctl/internal/pkg/decimalfmt"
	"github.com/bufdev/ldvctl/internal/standard/xtime"
)

// TaxReportMarkdown renders a tax report as markdown under the given title.
func TaxReportMarkdown(title string, report *ldvtaxreport.Report) (string, error) {
	view := &taxReportView{
		Title:  title,
		Year:   report.Year,
		Totals: report.FormatTotals(),
	}
	if view.Totals != nil {
		view.CurrencyLabel = decimalfmt.CurrencyLabel(view.Totals.Currency)
	}
	for _, disposal := range report.Ordinary {
		view.Ordinary = append(view.Ordinary, newDisposalView(disposal))
	}
	for _, disposal := range report.LongTerm {
		view.LongTerm = append(view.LongTerm, newDisposalView(disposal))
	}
	view.SkippedCount = len(report.Skipped)
	return execute(taxReportTemplate, view)
}

// FutureMarkdown renders an LDV projection as markdown.
func FutureMarkdown(projection *ldvprojection.Projection, today xtime.Date) (string, error) {
	view := &futureView{
		Today:   today.String(),
		Horizon: projection.Horizon.String(),
	}
	for _, lot := range projection.Matured {
		view.Matured = append(view.Matured, newLotView(lot))
	}
	for _, lot := range projection.Future {
		view.Future = append(view.Future, newLotView(lot))
	}
	return execute(futureTemplate, view)
}

// *** PRIVATE ***

var (
	taxReportTemplate = template.Must(template.New("taxReport").Parse(taxReportMarkdownTemplate))
	futureTemplate    = template.Must(template.New("future").Parse(futureMarkdownTemplate))
)

const taxReportMarkdownTemplate = `# {{ .Title }} {{ .Year }}
{{ if not .Totals }}
No sales with proceeds in {{ .Year }}.
{{- else }}

## Ordinary gains
{{ template "disposals" .Ordinary }}

## Long-term gains (LDV)
{{ template "disposals" .LongTerm }}

## Totals

| | {{ .CurrencyLabel }} |
|:---|---:|
| Ordinary gains | {{ .Totals.Sum }} |
| Long-term gains (LDV) | {{ .Totals.SumLDV }} |
| **Total gains** | **{{ .Totals.SumTotal }}** |
| Total sales | {{ .Totals.TotalSale }} |
| Total cost | {{ .Totals.TotalCost }} |
| Broker fees | {{ .Totals.BrokerFee }} |
{{- end }}
{{- if .SkippedCount }}

_{{ .SkippedCount }} disposal(s) without proceeds were skipped._
{{- end }}
{{ define "disposals" }}
{{- if . }}
| Date | Narration | Account | Units | Acquired | Days | Price | Cost | Base |
|:---|:---|:---|---:|:---|---:|---:|---:|---:|
{{- range . }}
| {{ .Date }} | {{ .Narration }} | {{ .Account }} | {{ .Units }} | {{ .CostDate }} | {{ .Days }} | {{ .Price }} | {{ .Cost }} | {{ .Base }} |
{{- end }}
{{- else }}
None.
{{- end }}
{{- end }}`

const futureMarkdownTemplate = `# Future LDV on {{ .Today }}

## Reached LDV
{{ template "lots" .Matured }}

## Reaching LDV before {{ .Horizon }}
{{ template "lots" .Future }}
{{ define "lots" }}
{{- if . }}
| Account | Units | Acquired | LDV date | Market value | Basis |
|:---|---:|:---|:---|---:|---:|
{{- range . }}
| {{ .Account }} | {{ .Units }} | {{ .Acquired }} | {{ .LDVDate }} | {{ .MarketValue }} | {{ .Basis }} |
{{- end }}
{{- else }}
None.
{{- end }}
{{- end }}`

type taxReportView struct {
	Title         string
	Year          int
	CurrencyLabel string
	Totals        *ldvtaxreport.FormattedTotals
	Ordinary      []*disposalView
	LongTerm      []*disposalView
	SkippedCount  int
}

type disposalView struct {
	Date      string
	Narration string
	Account   string
	Units     string
	CostDate  string
	Days      int
	Price     string
	Cost      string
	Base      string
}

type futureView struct {
	Today   string
	Horizon string
	Matured []*lotView
	Future  []*lotView
}

type lotView struct {
	Account     string
	Units       string
	Acquired    string
	LDVDate     string
	MarketValue string
	Basis       string
}

func newDisposalView(disposal *ldvtaxreport.Disposal) *disposalView {
	return &disposalView{
		Date:      disposal.Date.String(),
		Narration: escapeCell(disposal.Narration),
		Account:   escapeCell(disposal.Account),
		Units:     disposal.Position.Units.String() + " " + escapeCell(disposal.Position.Currency),
		CostDate:  disposal.Position.CostDate.String(),
		Days:      disposal.DateDiff,
		Price:     decimalfmt.Format(disposal.AllocatedPrice),
		Cost:      decimalfmt.Format(disposal.Cost),
		Base:      decimalfmt.Format(disposal.Base),
	}
}

func newLotView(lot *ldvprojection.ProjectedLot) *lotView {
	return &lotView{
		Account:     escapeCell(lot.Account),
		Units:       lot.Units.String() + " " + escapeCell(lot.Currency),
		Acquired:    lot.AcquisitionDate.String(),
		LDVDate:     lot.LDVDate.String(),
		MarketValue: withCurrency(decimalfmt.Format(lot.MarketValue), lot.CostCurrency),
		Basis:       withCurrency(decimalfmt.Format(lot.CostBasis), lot.CostCurrency),
	}
}

func withCurrency(amount string, currencyCode string) string {
	if currencyCode == "" {
		return amount
	}
	return amount + " " + decimalfmt.CurrencyLabel(currencyCode)
}

// cellReplacer escapes pipes and flattens line breaks so free text stays in one table cell.
var cellReplacer = strings.NewReplacer(
	`\`, `\\`,
	"|", `\|`,
	"\r\n", " ",
	"\n", " ",
	"\r", " ",
)

func escapeCell(s string) string {
	return cellReplacer.Replace(s)
}

func execute(tmpl *template.Template, data any) (string, error) {
	var builder strings.Builder
	if err := tmpl.Execute(&builder, data); err != nil {
		return "", err
	}
	return builder.String(), nil
}
