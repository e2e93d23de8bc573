package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/i474232898/harvest-advisor/internal/apperrors"
	"github.com/i474232898/harvest-advisor/internal/app"
	"github.com/i474232898/harvest-advisor/internal/config"
	"github.com/i474232898/harvest-advisor/internal/cropinfo"
	"github.com/i474232898/harvest-advisor/internal/csvimport"
	"github.com/i474232898/harvest-advisor/internal/geocode"
	"github.com/i474232898/harvest-advisor/internal/harvest"
	"github.com/i474232898/harvest-advisor/internal/logger"
	"github.com/i474232898/harvest-advisor/internal/render"
	"github.com/i474232898/harvest-advisor/internal/weather"
)

var (
	headColor = color.New(color.FgCyan, color.Bold)
	bestColor = color.New(color.FgGreen, color.Bold)
	warnColor = color.New(color.FgYellow)
	errColor  = color.New(color.FgRed)
	dimColor  = color.New(color.FgHiBlack)
)

func cliLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return logger.NewText(os.Stderr, level)
}

func buildApp(opts *rootOptions) (*app.App, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	log := cliLogger(opts.verbose)
	a, err := app.Build(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return a, log, nil
}

type planOptions struct {
	crop     string
	location string
	start    string
	end      string
	minTemp  string
	maxTemp  string
	lat      float64
	lng      float64
}

func newPlanCmd(root *rootOptions) *cobra.Command {
	opts := &planOptions{}
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Recommend a harvest day",
		Example: `  harvest plan --crop soja --location "Sorriso, MT" --start 2024-01-01 --end 2024-01-31
  harvest plan --crop milho --location Cascavel --lat -24.95 --lng -53.45 --start 20240101 --end 20240131 --min 20 --max 30`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPlan(cmd, root, opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.crop, "crop", "", "crop type")
	f.StringVar(&opts.location, "location", "", "place name, geocoded unless --lat/--lng are given")
	f.StringVar(&opts.start, "start", "", "first day, YYYY-MM-DD or YYYYMMDD")
	f.StringVar(&opts.end, "end", "", "last day, YYYY-MM-DD or YYYYMMDD")
	f.StringVar(&opts.minTemp, "min", "", "minimum target temperature in °C")
	f.StringVar(&opts.maxTemp, "max", "", "maximum target temperature in °C")
	f.Float64Var(&opts.lat, "lat", 0, "latitude, skips geocoding together with --lng")
	f.Float64Var(&opts.lng, "lng", 0, "longitude")
	cmd.MarkFlagsRequiredTogether("lat", "lng")
	return cmd
}

func runPlan(cmd *cobra.Command, root *rootOptions, opts *planOptions) error {
	var fixed *geocode.Fixed
	if cmd.Flags().Changed("lat") {
		f, err := geocode.NewFixed(opts.lat, opts.lng)
		if err != nil {
			return err
		}
		fixed = &f
	}

	a, log, err := buildApp(root)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	var sel geocode.SelectionSource
	if fixed != nil {
		sel = *fixed
	} else {
		gs := geocode.NewGeocoderSource(a.Config.GoogleMapsAPIKey, log)
		if err := gs.Select(opts.location); err != nil {
			log.Debug("geocoding failed", "error", err)
		}
		sel = gs
	}

	res, err := a.Planner.Plan(ctx, harvest.PlanRequest{
		CropType:  opts.crop,
		Location:  opts.location,
		StartDate: opts.start,
		EndDate:   opts.end,
		MinTemp:   opts.minTemp,
		MaxTemp:   opts.maxTemp,
	}, sel)
	if err != nil {
		log.Debug("plan failed", "error", err)
		return errors.New(apperrors.Message(err))
	}

	return printPlan(cmd.OutOrStdout(), res)
}

func printPlan(w io.Writer, res *harvest.PlanResult) error {
	headColor.Fprintf(w, "Climate data for %s\n", res.Coordinates.String())
	printClimate(w, res.Series)
	if s := res.Summary; s.Days > 0 {
		dimColor.Fprintf(w, "%d days, %s°C to %s°C, mean %s°C, %s mm rain\n",
			s.Days, num(s.MinTempC), num(s.MaxTempC), num(s.MeanTempC), num(s.TotalPrecipMm))
	}
	fmt.Fprintln(w)

	if res.Best.HasDate() {
		bestColor.Fprintf(w, "Best harvest date: %s\n", *res.Best.Date)
		fmt.Fprintf(w, "Reason: %s\n", res.Best.Reason)
	} else {
		warnColor.Fprintln(w, "Best harvest date: none (no climate data for this period)")
	}

	if res.HistoryError != "" {
		warnColor.Fprintln(w, res.HistoryError)
	}

	if res.CropInfoError != "" {
		warnColor.Fprintln(w, "\n"+res.CropInfoError)
		return nil
	}
	if res.CropInfoHTML != "" {
		md, err := render.ToMarkdown(res.CropInfoHTML)
		if err != nil {
			return err
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, md)
	}
	return nil
}

func printClimate(w io.Writer, series *weather.ClimateSeries) {
	if series.Len() == 0 {
		warnColor.Fprintln(w, "No climate data for this period.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprint(tw, "DATE")
	for _, p := range series.Parameters {
		fmt.Fprintf(tw, "\t%s", p)
	}
	fmt.Fprintln(tw)
	for _, d := range series.Days {
		fmt.Fprint(tw, d.Date)
		for _, p := range series.Parameters {
			if v, ok := d.Value(p); ok {
				fmt.Fprintf(tw, "\t%s", num(v))
			} else {
				fmt.Fprint(tw, "\t-")
			}
		}
		fmt.Fprintln(tw)
	}
	tw.Flush()
}

func newHistoryCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List past queries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, _, err := buildApp(root)
			if err != nil {
				return err
			}
			defer a.Close()

			records, err := a.History.List(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(records) == 0 {
				dimColor.Fprintln(w, "No queries yet.")
				return nil
			}
			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "CREATED\tCROP\tLOCATION\tPERIOD\tBEST DAY")
			for _, r := range records {
				created := "-"
				if !r.CreatedAt.IsZero() {
					created = r.CreatedAt.Local().Format("2006-01-02 15:04")
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s-%s\t%s\n",
					created, r.CropType, r.Location, r.StartDate, r.EndDate, r.BestHarvestDate.DateOr("none"))
			}
			return tw.Flush()
		},
	}
}

func newGuideCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "guide [crop]",
		Short: "Show temperature guidance for a crop, or list all crops",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			guide, err := cropinfo.LoadGuide()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()

			if len(args) == 0 {
				for _, c := range guide.All() {
					headColor.Fprint(w, c.Name)
					fmt.Fprintf(w, "  %s°C to %s°C\n", num(c.MinC), num(c.MaxC))
				}
				return nil
			}

			c, ok := guide.Lookup(args[0])
			if !ok {
				warnColor.Fprintln(w, cropinfo.NotFoundMessage)
				return nil
			}
			headColor.Fprintln(w, c.Name)
			fmt.Fprintln(w, c.Guidance)
			return nil
		},
	}
}

func newCSVCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "csv <file>",
		Short: "Load a CSV file and print it as a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			table, err := csvimport.Parse(f)
			if err != nil {
				return errors.New(apperrors.Message(err))
			}
			printTable(cmd.OutOrStdout(), table)
			return nil
		},
	}
}

func printTable(w io.Writer, t *csvimport.Table) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(t.Header, "\t"))
	for _, row := range t.Rows {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = csvimport.FormatValue(c.Value)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	tw.Flush()
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
