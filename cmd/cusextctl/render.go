package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"cusext/disagreement"
)

type format string

const (
	formatJSON  format = "json"
	formatTable format = "table"
)

type renderer interface {
	Render(w io.Writer, data any) error
}

func newRenderer(f string) (renderer, error) {
	switch format(f) {
	case formatJSON:
		return jsonRenderer{}, nil
	case formatTable:
		return tableRenderer{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", f)
	}
}

type jsonRenderer struct{}

func (jsonRenderer) Render(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

type tableRenderer struct{}

func (tableRenderer) Render(w io.Writer, data any) error {
	cfg := tablewriter.Config{
		Header: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignLeft},
		},
		Row: tw.CellConfig{
			Formatting: tw.CellFormatting{AutoWrap: int(tw.Off)},
		},
	}
	table := tablewriter.NewTable(w, tablewriter.WithConfig(cfg))

	switch v := data.(type) {
	case []disagreement.Summary:
		renderSummaries(table, v)
	case disagreement.Detail:
		renderDetail(table, v)
	default:
		return fmt.Errorf("unsupported model type: %T", data)
	}
	return table.Render()
}

func renderSummaries(table *tablewriter.Table, items []disagreement.Summary) {
	table.Header([]string{"Record No", "Competitor", "Product", "Memo", "Entered", "Updated"})
	for _, s := range items {
		table.Append([]string{
			s.RecordNumber,
			s.Competitor.Company,
			s.Competitor.Product,
			s.Memo,
			s.EntryDate,
			s.UpdateDate,
		})
	}
}

func renderDetail(table *tablewriter.Table, d disagreement.Detail) {
	table.Header([]string{"Field", "Value"})
	rows := [][]string{
		{"Record No", d.RecordNumber},
		{"Activity", d.ActivityID},
		{"Subject", d.Subject},
		{"Activity subject", d.ActivitySubject},
		{"Household", d.HouseholdID},
		{"No contact", d.NoContact},
		{"Distrust", d.Distrust},
		{"Via other agent", d.ViaOtherAgent},
		{"Underwrite rejected", d.UnderwriteRejected},
		{"Memo", d.Memo},
	}
	for i, c := range d.Competitors {
		if c.Company == "" && c.Product == "" {
			continue
		}
		rows = append(rows, []string{fmt.Sprintf("Competitor %d", i+1), c.Company + " / " + c.Product})
	}
	rows = append(rows,
		[]string{"Entered", d.EntryDate + " by " + d.EntryBy + " (" + d.EntryProgramID + ")"},
		[]string{"Updated", d.UpdateDate + " by " + d.UpdateBy + " (" + d.UpdateProgramID + ")"},
	)
	for _, r := range rows {
		table.Append(r)
	}
}
