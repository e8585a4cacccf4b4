package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/model"
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderRecords(w io.Writer, format string, records []*model.RateLimitRecord) error {
	if format == formatJSON {
		return writeJSON(w, records)
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Key", "Function", "Identifier", "Requests", "Last Request", "Updated"})
	for _, rec := range records {
		last := "-"
		if n := len(rec.Requests); n > 0 {
			last = rec.Requests[n-1].UTC().Format(time.RFC3339)
		}
		t.AppendRow(table.Row{
			rec.Key,
			rec.FunctionName,
			rec.Identifier,
			len(rec.Requests),
			last,
			rec.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	t.AppendFooter(table.Row{"", "", "Total", len(records), "", ""})
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

type statusView struct {
	Key         string    `json:"key"`
	Preset      string    `json:"preset"`
	MaxRequests int       `json:"maxRequests"`
	Window      string    `json:"window"`
	Allowed     bool      `json:"allowed"`
	Remaining   int       `json:"remaining"`
	ResetAt     time.Time `json:"resetAt"`
}

func renderStatus(w io.Writer, format string, v statusView) error {
	if format == formatJSON {
		return writeJSON(w, v)
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendRows([]table.Row{
		{"Key", v.Key},
		{"Preset", v.Preset},
		{"Limit", fmt.Sprintf("%d per %s", v.MaxRequests, v.Window)},
		{"Allowed", v.Allowed},
		{"Remaining", v.Remaining},
		{"Resets", v.ResetAt.UTC().Format(time.RFC3339)},
	})
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func renderRisk(w io.Writer, format string, res model.RiskScoreBreakdown) error {
	if format == formatJSON {
		return writeJSON(w, res)
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetTitle("Merchant %s", valueOrDash(res.MerchantID))
	t.AppendHeader(table.Row{"Component", "Score"})
	t.AppendRows([]table.Row{
		{"KYC", res.Components.KYC},
		{"Business maturity", res.Components.BusinessMaturity},
		{"Transaction", res.Components.Transaction},
		{"Compliance", res.Components.Compliance},
		{"Flags", res.Components.Flags},
	})
	t.AppendFooter(table.Row{"Total (" + string(res.Level) + ")", res.TotalScore})

	var b strings.Builder
	b.WriteString(t.Render())
	b.WriteString("\n")
	if len(res.Factors) > 0 {
		b.WriteString("\nFactors:\n")
		for _, f := range res.Factors {
			b.WriteString("  - " + f + "\n")
		}
	}
	b.WriteString("\nRecommendations:\n")
	for _, r := range res.Recommendations {
		b.WriteString("  - " + r + "\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func valueOrDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
