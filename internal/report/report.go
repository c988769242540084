// Package report renders simulation results as console tables and CSV.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/yourusername/podium/internal/odds"
	"github.com/yourusername/podium/internal/simulation"
)

// Options controls how many tuple rows are printed.
type Options struct {
	Top   int
	Pairs int
}

// DefaultOptions prints the ten most likely finishing tuples and twenty pairs.
func DefaultOptions() Options {
	return Options{Top: 10, Pairs: 20}
}

// Console writes human-readable probability tables. names maps competitor ids
// to display names and may be nil.
func Console(w io.Writer, result *simulation.Result, names map[string]string, opts Options) error {
	if opts.Top <= 0 {
		opts.Top = DefaultOptions().Top
	}
	if opts.Pairs <= 0 {
		opts.Pairs = DefaultOptions().Pairs
	}
	meta := result.Metadata
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "Trials: %d\tDepth: %d\tMode: %s\tSeed: %d\tDuration: %s\n",
		meta.Trials, meta.Depth, meta.Mode, meta.Seed, meta.Duration.Round(time.Microsecond))
	if meta.Fallbacks > 0 {
		fmt.Fprintf(tw, "Numeric fallbacks: %d (%s)\n", meta.Fallbacks, meta.FallbackPolicy)
	}

	fmt.Fprintln(tw, "\nWin probabilities")
	fmt.Fprintln(tw, "Runner\tModel\tSimulated\tPlace\tFair odds")
	for _, row := range result.Win.Sorted() {
		fair := "-"
		if f, err := odds.FairOdds(row.Value); err == nil {
			fair = f.StringFixed(2)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			label(row.ID, names), percent(row.Model), percent(row.Value), percent(result.Place.Value(row.ID)), fair)
	}

	writeTuples(tw, fmt.Sprintf("Top %d finishing orders", opts.Top), result.Ordered.Top(opts.Top), names, " > ")
	writeTuples(tw, fmt.Sprintf("Top %d finishing sets", opts.Top), result.Unordered.Top(opts.Top), names, ", ")
	writeTuples(tw, fmt.Sprintf("Top %d pairs within top %d", opts.Pairs, meta.Depth), result.Pairs.Top(opts.Pairs), names, " & ")

	return tw.Flush()
}

func writeTuples(w io.Writer, title string, rows []simulation.TupleRow, names map[string]string, sep string) {
	fmt.Fprintf(w, "\n%s\n", title)
	fmt.Fprintln(w, "#\tRunners\tProbability\t± StdErr")
	for i, row := range rows {
		labels := make([]string, len(row.IDs))
		for j, id := range row.IDs {
			labels[j] = label(id, names)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i+1, strings.Join(labels, sep), percent(row.Value), percent(row.StdErr))
	}
}

// WriteCSV writes every table as rows of table,rank,ids,names,probability,std_err,count.
func WriteCSV(w io.Writer, result *simulation.Result, names map[string]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"table", "rank", "ids", "names", "model_probability", "probability", "std_err", "count"}); err != nil {
		return err
	}

	competitorRows := func(table string, rows []simulation.CompetitorRow) error {
		for i, row := range rows {
			record := []string{table, strconv.Itoa(i + 1), row.ID, names[row.ID],
				formatFloat(row.Model), formatFloat(row.Value), formatFloat(row.StdErr), strconv.FormatInt(row.Count, 10)}
			if err := cw.Write(record); err != nil {
				return err
			}
		}
		return nil
	}
	tupleRows := func(table string, rows []simulation.TupleRow) error {
		for i, row := range rows {
			rowNames := make([]string, len(row.IDs))
			for j, id := range row.IDs {
				rowNames[j] = names[id]
			}
			record := []string{table, strconv.Itoa(i + 1), strings.Join(row.IDs, "-"), strings.Join(rowNames, "-"),
				"", formatFloat(row.Value), formatFloat(row.StdErr), strconv.FormatInt(row.Count, 10)}
			if err := cw.Write(record); err != nil {
				return err
			}
		}
		return nil
	}

	if err := competitorRows("win", result.Win.Sorted()); err != nil {
		return err
	}
	if err := competitorRows("place", result.Place.Sorted()); err != nil {
		return err
	}
	if err := tupleRows("ordered", result.Ordered.Top(0)); err != nil {
		return err
	}
	if err := tupleRows("unordered", result.Unordered.Top(0)); err != nil {
		return err
	}
	if err := tupleRows("pairs", result.Pairs.Top(0)); err != nil {
		return err
	}

	cw.Flush()
	return cw.Error()
}

// ValueBets writes screened bets as a table.
func ValueBets(w io.Writer, bets []odds.ValueBet, names map[string]string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Market\tRunners\tProbability\tFair odds\tOdds\tEV")
	for _, b := range bets {
		labels := make([]string, len(b.IDs))
		for i, id := range b.IDs {
			labels[i] = label(id, names)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			b.Market, strings.Join(labels, "-"), percent(b.Probability), b.FairOdds.StringFixed(2), b.Odds.String(), b.EV.StringFixed(2))
	}
	return tw.Flush()
}

func label(id string, names map[string]string) string {
	if name := names[id]; name != "" {
		return id + " " + name
	}
	return id
}

func percent(p float64) string {
	return strconv.FormatFloat(p*100, 'f', 2, 64) + "%"
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 6, 64)
}
