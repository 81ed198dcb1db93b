package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/shopspring/decimal"

	"github.com/robinvdvleuten/gains/ledger"
)

// columns of the text table, in order.
var columns = []struct {
	title string
	right bool
}{
	{"SOLD", false},
	{"TYPE", false},
	{"LINE", true},
	{"ACQUIRED", false},
	{"LOT LINE", true},
	{"QUANTITY", true},
	{"COST BASIS", true},
	{"PROCEEDS", true},
	{"GAIN", true},
	{"TERM", false},
}

const (
	colGain = 8
	colTerm = 9
)

const indent = "  "

// Text writes one table per asset followed by the totals over all reported assets.
func (r *Reporter) Text(w io.Writer, batch *ledger.Batch) error {
	sets := r.sets(batch)

	var buf strings.Builder
	if len(sets) == 0 {
		buf.WriteString("No disposals to report.\n")
		_, err := io.WriteString(w, buf.String())
		return err
	}

	for i, set := range sets {
		if i > 0 {
			buf.WriteByte('\n')
		}
		r.writeSet(&buf, set)
	}

	if len(sets) > 1 {
		buf.WriteByte('\n')
		buf.WriteString(r.keyword("Total"))
		buf.WriteByte('\n')
		r.writeSummary(&buf, total(sets))
	}

	_, err := io.WriteString(w, buf.String())
	return err
}

func (r *Reporter) writeSet(buf *strings.Builder, set *ledger.GainLossSet) {
	records := set.Records()

	buf.WriteString(r.asset(set.Asset()))
	buf.WriteString(r.dim(fmt.Sprintf(" (%d records)", len(records))))
	buf.WriteByte('\n')

	if !r.SummaryOnly && len(records) > 0 {
		rows := make([][]string, len(records))
		for i := range records {
			rows[i] = row(&records[i])
		}
		widths := columnWidths(rows)

		header := make([]string, len(columns))
		for i, col := range columns {
			header[i] = r.dim(pad(col.title, widths[i], col.right))
		}
		buf.WriteString(indent)
		buf.WriteString(strings.TrimRight(strings.Join(header, "  "), " "))
		buf.WriteByte('\n')

		for i, cells := range rows {
			out := make([]string, len(cells))
			for j, cell := range cells {
				padded := pad(cell, widths[j], columns[j].right)
				switch j {
				case colGain:
					padded = r.gain(padded, records[i].Gain)
				case colTerm:
					padded = r.term(records[i].LongTerm, widths[j])
				}
				out[j] = padded
			}
			buf.WriteString(indent)
			buf.WriteString(strings.TrimRight(strings.Join(out, "  "), " "))
			buf.WriteByte('\n')
		}
	}

	r.writeSummary(buf, set.Summary())
}

func (r *Reporter) writeSummary(buf *strings.Builder, sum ledger.Summary) {
	labels := []string{"short-term gain", "long-term gain", "total gain", "proceeds", "cost basis"}
	values := []decimal.Decimal{sum.ShortTermGain, sum.LongTermGain, sum.TotalGain(), sum.Proceeds, sum.CostBasis}

	labelWidth := 0
	valueWidth := 0
	for i := range labels {
		labelWidth = max(labelWidth, runewidth.StringWidth(labels[i]))
		valueWidth = max(valueWidth, runewidth.StringWidth(usd(values[i])))
	}

	for i, label := range labels {
		value := pad(usd(values[i]), valueWidth, true)
		if i < 3 {
			value = r.gain(value, values[i])
		}
		buf.WriteString(indent)
		buf.WriteString(pad(label, labelWidth, false))
		buf.WriteString("  ")
		buf.WriteString(value)
		buf.WriteByte('\n')
	}
}

func row(g *ledger.GainLoss) []string {
	return []string{
		g.Disposal.Timestamp.Format(DateFormat),
		g.Disposal.Kind.String(),
		strconv.Itoa(g.Disposal.Line),
		g.Acquisition.Timestamp.Format(DateFormat),
		strconv.Itoa(g.Acquisition.Line),
		quantity(g.Quantity),
		usd(g.CostBasis),
		usd(g.Proceeds),
		usd(g.Gain),
		g.Term(),
	}
}

// columnWidths returns the display width of every column over the titles and rows.
func columnWidths(rows [][]string) []int {
	widths := make([]int, len(columns))
	for i, col := range columns {
		widths[i] = runewidth.StringWidth(col.title)
	}
	for _, cells := range rows {
		for i, cell := range cells {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}
	return widths
}

func pad(s string, width int, right bool) string {
	if right {
		return runewidth.FillLeft(s, width)
	}
	return runewidth.FillRight(s, width)
}

func (r *Reporter) asset(s string) string {
	if r.Styles == nil {
		return s
	}
	return r.Styles.Asset(s)
}

func (r *Reporter) keyword(s string) string {
	if r.Styles == nil {
		return s
	}
	return r.Styles.Keyword(s)
}

func (r *Reporter) dim(s string) string {
	if r.Styles == nil {
		return s
	}
	return r.Styles.Dim(s)
}

func (r *Reporter) gain(s string, amount decimal.Decimal) string {
	if r.Styles == nil {
		return s
	}
	return r.Styles.Gain(s, amount)
}

func (r *Reporter) term(longTerm bool, width int) string {
	label := "SHORT"
	if longTerm {
		label = "LONG"
	}
	if r.Styles == nil {
		return pad(label, width, false)
	}
	return r.Styles.Term(longTerm) + strings.Repeat(" ", width-runewidth.StringWidth(label))
}
