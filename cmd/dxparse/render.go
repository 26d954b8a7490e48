package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/couchcryptid/dxcluster-spot-etl/internal/domain"
)

func render(w io.Writer, format string, results []result) error {
	if format == formatTable {
		_, err := fmt.Fprintln(w, renderTable(results))
		return err
	}
	enc := json.NewEncoder(w)
	for _, r := range results {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}

func renderTable(results []result) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"#", "Category", "Dialect", "From", "Time", "Details"})

	for _, r := range results {
		seq := ""
		if r.Seq > 0 {
			seq = strconv.Itoa(r.Seq)
		}
		if r.Outcome != outcomeSpot {
			tw.AppendRow(table.Row{seq, string(r.Category), r.Outcome, "", "", r.Error})
			continue
		}
		tw.AppendRow(table.Row{
			seq,
			string(r.Category),
			string(r.Dialect),
			domain.Originator(r.Spot),
			timeOf(r.Spot),
			details(r.Spot),
		})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 6, WidthMax: 60},
	})
	return tw.Render()
}

func timeOf(s domain.Spot) string {
	var t domain.Optional[domain.TimeOfDay]
	switch v := s.(type) {
	case domain.DX:
		t = v.Time
	case domain.RBN:
		t = v.Time
	case domain.WWV:
		t = v.Time
	case domain.WCY:
		t = v.Time
	case domain.WX:
		t = v.Time
	case domain.ToAll:
		t = v.Time
	case domain.ToLocal:
		t = v.Time
	}
	if tod, ok := t.Get(); ok {
		return tod.String()
	}
	return ""
}

// details condenses the category-specific fields into one column.
func details(s domain.Spot) string {
	switch v := s.(type) {
	case domain.DX:
		return strings.TrimSpace(fmt.Sprintf("%s %s %s", v.Frequency, v.Spotted, v.Comment.OrElse("")))
	case domain.RBN:
		out := fmt.Sprintf("%s %s %s", v.Frequency, v.Spotted, v.Mode.OrElse(""))
		if snr, ok := v.SNR.Get(); ok {
			out += fmt.Sprintf(" %d dB", snr)
		}
		if speed, ok := v.Speed.Get(); ok {
			out += fmt.Sprintf(" %d %s", speed, v.SpeedUnit.OrElse(""))
		}
		return strings.TrimSpace(out)
	case domain.WWV:
		return strings.TrimSpace(fmt.Sprintf("SFI=%d A=%d K=%d %s", v.SFI, v.A, v.K, v.Conditions.OrElse("")))
	case domain.WCY:
		return fmt.Sprintf("K=%d A=%d SFI=%d", v.K, v.A, v.SFI)
	case domain.WX:
		return v.Message.OrElse("")
	case domain.ToAll:
		return v.Message.OrElse("")
	case domain.ToLocal:
		return v.Message.OrElse("")
	}
	return ""
}
