package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/yourusername/podium/internal/app"
	"github.com/yourusername/podium/internal/config"
	"github.com/yourusername/podium/internal/odds"
	"github.com/yourusername/podium/internal/report"
	"github.com/yourusername/podium/internal/service"
	"github.com/yourusername/podium/internal/simulation"
)

// runFlags are shared by every command that prints a result.
type runFlags struct {
	mode      string
	trials    int
	depth     int
	seed      int64
	top       int
	pairs     int
	csvPath   string
	oddsPath  string
	threshold string
	asJSON    bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.mode, "mode", "m", "", "Score mode: logits or weights (default from config)")
	cmd.Flags().IntVarP(&f.trials, "trials", "n", 0, "Number of trials (default from config)")
	cmd.Flags().IntVarP(&f.depth, "depth", "d", 0, "Finishing positions to tally (default from config)")
	cmd.Flags().Int64Var(&f.seed, "seed", 0, "Random seed; 0 seeds from the clock")
	cmd.Flags().IntVar(&f.top, "top", 10, "Finishing orders and sets to print")
	cmd.Flags().IntVar(&f.pairs, "pairs", 20, "Pairs to print")
	cmd.Flags().StringVar(&f.csvPath, "csv", "", "Also write every table to this CSV file")
	cmd.Flags().StringVar(&f.oddsPath, "odds", "", "CSV of market,selection,odds to screen for value")
	cmd.Flags().StringVar(&f.threshold, "threshold", odds.DefaultThreshold.String(), "Minimum expected value for value bets")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "Print the result as JSON")
}

func (f *runFlags) scoreMode() (simulation.ScoreMode, error) {
	if f.mode == "" {
		return "", nil
	}
	return simulation.ParseScoreMode(f.mode)
}

func newRunCmd() *cobra.Command {
	var (
		flags       runFlags
		file        string
		competitors []string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Simulate competitors from a file or flags",
		Example: `  simulate run --competitor A=1.2 --competitor B=0.4 --competitor C=-0.3
  simulate run --file field.csv --mode weights --trials 50000 --csv out.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				field []simulation.Competitor
				names map[string]string
				err   error
			)
			switch {
			case file != "" && len(competitors) > 0:
				return fmt.Errorf("use either --file or --competitor, not both")
			case file != "":
				field, names, err = readCompetitors(file)
			default:
				field, err = parseCompetitorFlags(competitors)
			}
			if err != nil {
				return err
			}

			mode, err := flags.scoreMode()
			if err != nil {
				return err
			}

			a, err := app.New(cmd.Context(), withoutBackends(), appLog)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.Service.SimulateCompetitors(cmd.Context(), simulation.Request{
				Competitors: field,
				Mode:        mode,
				Trials:      flags.trials,
				Depth:       flags.depth,
				Seed:        flags.seed,
			})
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), result, names, &flags)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&file, "file", "f", "", "Competitors file (.json or .csv)")
	cmd.Flags().StringArrayVarP(&competitors, "competitor", "r", nil, "Competitor as id=strength (repeatable)")
	return cmd
}

func newRaceCmd() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "race <race-id-or-url>",
		Short: "Simulate a race from stored or ranker scores",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := flags.scoreMode()
			if err != nil {
				return err
			}

			a, err := app.New(cmd.Context(), cfg, appLog)
			if err != nil {
				return err
			}
			defer a.Close()

			prediction, err := a.Service.PredictRace(cmd.Context(), service.PredictRequest{
				Race:   args[0],
				Mode:   mode,
				Trials: flags.trials,
				Depth:  flags.depth,
				Seed:   flags.seed,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !flags.asJSON {
				fmt.Fprintf(out, "Race %s", prediction.RaceID)
				if prediction.Race != nil {
					fmt.Fprintf(out, "  %s %s", prediction.Race.Track, prediction.Race.Name)
				}
				if prediction.ModelVersion != "" {
					fmt.Fprintf(out, "  (model %s)", prediction.ModelVersion)
				}
				fmt.Fprintln(out)
			}
			return render(out, prediction.Result, prediction.Names, &flags)
		},
	}

	flags.register(cmd)
	return cmd
}

// withoutBackends returns a copy of the loaded config that needs no database or ranker.
func withoutBackends() *config.Config {
	c := *cfg
	c.Database.Enabled = false
	c.Ranker.Enabled = false
	c.Cache.Enabled = false
	return &c
}

func render(out io.Writer, result *simulation.Result, names map[string]string, flags *runFlags) error {
	var bets []odds.ValueBet
	if flags.oddsPath != "" {
		threshold, err := decimal.NewFromString(flags.threshold)
		if err != nil {
			return fmt.Errorf("invalid threshold %q: %w", flags.threshold, err)
		}
		f, err := os.Open(flags.oddsPath)
		if err != nil {
			return fmt.Errorf("failed to open odds file: %w", err)
		}
		book, err := odds.ParseBook(f)
		f.Close()
		if err != nil {
			return err
		}
		if bets, err = odds.ValueBets(result, book, threshold); err != nil {
			return err
		}
	}

	if flags.csvPath != "" {
		f, err := os.Create(flags.csvPath)
		if err != nil {
			return fmt.Errorf("failed to create csv file: %w", err)
		}
		if err := report.WriteCSV(f, result, names); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}

	if flags.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Result    *simulation.Result `json:"result"`
			Names     map[string]string  `json:"names,omitempty"`
			ValueBets []odds.ValueBet    `json:"value_bets,omitempty"`
		}{result, names, bets})
	}

	if err := report.Console(out, result, names, report.Options{Top: flags.top, Pairs: flags.pairs}); err != nil {
		return err
	}
	if flags.oddsPath != "" {
		fmt.Fprintf(out, "\nValue bets (EV >= %s)\n", flags.threshold)
		return report.ValueBets(out, bets, names)
	}
	return nil
}
