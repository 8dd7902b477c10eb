// Command equipcost is the operator CLI: schema setup, synthetic data
// generation, cost rollups, forecasting, replacement analysis, fleet
// reports, and the HTTP API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"equipcost_forecast/pkg/api"
	"equipcost_forecast/pkg/core/config"
	"equipcost_forecast/pkg/core/fleet"
	"equipcost_forecast/pkg/core/forecast"
	"equipcost_forecast/pkg/core/ingest"
	"equipcost_forecast/pkg/core/rollup"
	"equipcost_forecast/pkg/core/store"
	"equipcost_forecast/pkg/models"
)

const defaultConfigPath = "config/equipcost.yaml"

var logger = logrus.New()

func main() {
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load(defaultConfigPath)
	if err != nil {
		fatal(err)
	}
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if cfg.Debug {
		logger.SetLevel(logrus.DebugLevel)
	}

	if err := dispatch(flag.Arg(0), flag.Args()[1:], cfg); err != nil {
		fatal(err)
	}
}

func dispatch(cmd string, args []string, cfg config.Config) error {
	ctx := context.Background()
	switch cmd {
	case "init-db":
		return runInitDB(args, cfg)
	case "generate-data":
		return runGenerateData(ctx, args, cfg)
	case "load-data":
		if err := runInitDB(nil, cfg); err != nil {
			return err
		}
		return runGenerateData(ctx, nil, cfg)
	case "aggregate":
		return runAggregate(ctx, args, cfg)
	case "forecast":
		return runForecast(ctx, args, cfg)
	case "analyze":
		return runAnalyze(ctx, args, cfg)
	case "report":
		return runReport(ctx, args, cfg)
	case "serve":
		return runServe(args, cfg)
	default:
		fmt.Fprintf(os.Stderr, "equipcost: unknown command %q\n\n", cmd)
		usage()
		os.Exit(2)
		return nil
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `usage: equipcost <command> [flags]

Commands:
  init-db        create the database schema
  generate-data  run the synthetic fleet generator
  load-data      init-db followed by generate-data
  aggregate      compute monthly cost rollups from work orders and contracts
  forecast       run a cost forecast for one asset
  analyze        rank fleet replacement priorities under a capital budget
  report         print a fleet cost summary report
  serve          start the HTTP API server

Run 'equipcost <command> -h' for the flags of one command.
`)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "equipcost: %v\n", err)
	os.Exit(1)
}

func openStore(cfg config.Config) (*gorm.DB, error) {
	if err := store.Init(cfg.DatabaseURL); err != nil {
		return nil, fmt.Errorf("failed to open database %q: %w", cfg.DatabaseURL, err)
	}
	return store.Get(), nil
}

func runInitDB(args []string, cfg config.Config) error {
	fs := flag.NewFlagSet("init-db", flag.ExitOnError)
	fs.Parse(args)

	conn, err := openStore(cfg)
	if err != nil {
		return err
	}
	if err := store.AutoMigrate(conn); err != nil {
		return err
	}
	fmt.Println("Database initialized.")
	return nil
}

func runGenerateData(ctx context.Context, args []string, cfg config.Config) error {
	fs := flag.NewFlagSet("generate-data", flag.ExitOnError)
	fs.Parse(args)

	conn, err := openStore(cfg)
	if err != nil {
		return err
	}
	if err := store.AutoMigrate(conn); err != nil {
		return err
	}

	fmt.Println("Generating synthetic fleet data...")
	gen := ingest.NewGenerator(conn, cfg.Fleet, time.Now().UTC())
	counts, err := gen.Generate(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Generated %d equipment, %d work orders, %d contracts, %d PM schedules.\n",
		counts.Equipment, counts.WorkOrders, counts.Contracts, counts.PMSchedules)
	return nil
}

func runAggregate(ctx context.Context, args []string, cfg config.Config) error {
	fs := flag.NewFlagSet("aggregate", flag.ExitOnError)
	equipmentID := fs.Int64("equipment-id", 0, "equipment ID (all assets when omitted)")
	fs.Parse(args)

	conn, err := openStore(cfg)
	if err != nil {
		return err
	}

	var filter *int64
	if *equipmentID != 0 {
		filter = equipmentID
	}
	n, err := rollup.NewAggregator(conn).ComputeMonthlyRollups(ctx, filter)
	if err != nil {
		return err
	}
	fmt.Printf("Created %d monthly rollup records.\n", n)
	return nil
}

func runForecast(ctx context.Context, args []string, cfg config.Config) error {
	fs := flag.NewFlagSet("forecast", flag.ExitOnError)
	equipmentID := fs.Int64("equipment-id", 0, "equipment ID (picks the first CT scanner when omitted)")
	horizon := fs.Int("horizon", forecast.DefaultHorizonMonths, "forecast horizon in months")
	method := fs.String("method", models.MethodAuto, "forecast method: auto, arima, exponential_smoothing")
	fs.Parse(args)

	conn, err := openStore(cfg)
	if err != nil {
		return err
	}

	id := *equipmentID
	if id == 0 {
		assets, _, err := store.NewEquipmentRepo(conn).List(ctx, store.EquipmentFilter{
			EquipmentClass: "ct_scanner",
			PageSize:       1,
		})
		if err != nil {
			return err
		}
		if len(assets) == 0 {
			return fmt.Errorf("no equipment found; run load-data first")
		}
		id = assets[0].ID
		fmt.Printf("Auto-selected: %s (%s %s)\n",
			assets[0].AssetTag, assets[0].Manufacturer, assets[0].ModelName)
	}

	// Aggregate on demand so a fresh load can be forecast directly.
	history, err := store.NewRollupRepo(conn).History(ctx, id)
	if err != nil {
		return err
	}
	if len(history) == 0 {
		fmt.Println("Computing cost rollups first...")
		if _, err := rollup.NewAggregator(conn).ComputeMonthlyRollups(ctx, &id); err != nil {
			return err
		}
	}

	result, err := forecast.NewForecaster(conn).ForecastEquipment(ctx, id, *horizon, *method, time.Now().UTC())
	if err != nil {
		return err
	}

	fmt.Printf("\nForecast complete: %s\n", result.Method)
	fmt.Printf("  Horizon: %d months\n", result.HorizonMonths)
	fmt.Printf("  Metrics: MAE=$%.2f, RMSE=$%.2f, MAPE=%.1f%%\n",
		result.Metrics.MAE, result.Metrics.RMSE, result.Metrics.MAPE)

	fmt.Printf("\nMonthly forecast (first 12 of %d):\n", result.HorizonMonths)
	fmt.Printf("  %-8s  %12s  %12s  %12s\n", "Month", "Predicted", "Lower", "Upper")
	for i, p := range result.Predictions {
		if i >= 12 {
			break
		}
		fmt.Printf("  %-8s  %12.2f  %12.2f  %12.2f\n",
			p.Month.Format("2006-01"), p.PredictedCost, p.LowerBound, p.UpperBound)
	}
	return nil
}

func runAnalyze(ctx context.Context, args []string, cfg config.Config) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	facility := fs.String("facility", "", "facility ID filter")
	budget := fs.Float64("budget", cfg.AnnualCapitalBudget, "annual capital budget")
	fs.Parse(args)

	conn, err := openStore(cfg)
	if err != nil {
		return err
	}

	rollups, err := store.NewRollupRepo(conn).Count(ctx)
	if err != nil {
		return err
	}
	if rollups == 0 {
		fmt.Println("Computing cost rollups first...")
		if _, err := rollup.NewAggregator(conn).ComputeMonthlyRollups(ctx, nil); err != nil {
			return err
		}
	}

	if *facility != "" {
		fmt.Printf("Running repair-vs-replace analysis for %s...\n", *facility)
	} else {
		fmt.Println("Running repair-vs-replace analysis...")
	}
	optimizer := fleet.NewOptimizer(conn, *budget, cfg.DiscountRate)
	priorities, err := optimizer.RankReplacementPriorities(ctx, *facility, time.Now().UTC())
	if err != nil {
		return err
	}

	var replaceNow, planned []models.ReplacementPriority
	var keep int
	for _, p := range priorities {
		switch p.RecommendedAction {
		case models.ActionReplaceImmediately:
			replaceNow = append(replaceNow, p)
		case models.ActionPlanReplacement:
			planned = append(planned, p)
		default:
			keep++
		}
	}

	fmt.Println("\nAnalysis summary")
	fmt.Printf("  Total evaluated:     %d\n", len(priorities))
	fmt.Printf("  Replace immediately: %d\n", len(replaceNow))
	fmt.Printf("  Plan replacement:    %d\n", len(planned))
	fmt.Printf("  Continue operating:  %d\n", keep)

	top := append(replaceNow, planned...)
	if len(top) > 20 {
		top = top[:20]
	}
	if len(top) > 0 {
		fmt.Println("\nTop replacement priorities")
		fmt.Printf("  %4s  %-14s  %-18s  %7s  %12s  %12s  %s\n",
			"Rank", "Asset Tag", "Class", "Age(yr)", "NPV Savings", "Repl. Cost", "Action")
		for _, p := range top {
			fmt.Printf("  %4d  %-14s  %-18s  %7.1f  %12.0f  %12.0f  %s\n",
				p.Rank, p.AssetTag, p.EquipmentClass, float64(p.AgeMonths)/12,
				p.NPVSavings, p.ReplacementCost, p.RecommendedAction)
		}
	}
	return nil
}

func runReport(ctx context.Context, args []string, cfg config.Config) error {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	facility := fs.String("facility", "", "facility ID filter")
	pdfPath := fs.String("pdf", "", "also write the report as a PDF to this path")
	fs.Parse(args)

	conn, err := openStore(cfg)
	if err != nil {
		return err
	}

	rep, err := buildFleetReport(ctx, conn, *facility, time.Now().UTC())
	if err != nil {
		return err
	}
	printFleetReport(rep)

	if *pdfPath != "" {
		if err := writeFleetReportPDF(rep, *pdfPath); err != nil {
			return fmt.Errorf("failed to write PDF report: %w", err)
		}
		fmt.Printf("\nPDF report written to %s\n", *pdfPath)
	}
	return nil
}

func runServe(args []string, cfg config.Config) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	host := fs.String("host", "0.0.0.0", "listen address")
	port := fs.Int("port", 8000, "listen port")
	fs.Parse(args)

	conn, err := openStore(cfg)
	if err != nil {
		return err
	}
	if err := store.AutoMigrate(conn); err != nil {
		return err
	}

	server, err := api.NewServer(conn, cfg, logger)
	if err != nil {
		return err
	}
	defer server.Close()
	defer store.Close()
	return server.Run(fmt.Sprintf("%s:%d", *host, *port))
}

// classLine is one equipment class in the fleet report breakdown.
type classLine struct {
	Class       string
	Count       int
	AvgAgeYears float64
	AnnualCost  float64
}

// fleetReport is the data behind both the console and PDF reports.
type fleetReport struct {
	Facility          string
	Date              time.Time
	TotalAssets       int
	AvgAgeYears       float64
	PastUsefulLife    int
	TotalAcquisition  float64
	AnnualMaintenance float64
	Classes           []classLine
}

func buildFleetReport(ctx context.Context, conn *gorm.DB, facilityID string, asOf time.Time) (fleetReport, error) {
	assets, err := store.NewEquipmentRepo(conn).ByFacility(ctx, facilityID)
	if err != nil {
		return fleetReport{}, err
	}
	if len(assets) == 0 {
		return fleetReport{}, fmt.Errorf("no equipment found; run load-data first")
	}

	rep := fleetReport{Facility: facilityID, Date: asOf, TotalAssets: len(assets)}
	yearAgo := time.Date(asOf.Year()-1, asOf.Month(), 1, 0, 0, 0, 0, time.UTC)
	rollups := store.NewRollupRepo(conn)

	byClass := make(map[string][]models.Equipment)
	var ageSum float64
	var allIDs []int64
	for _, eq := range assets {
		ageYears := asOf.Sub(eq.AcquisitionDate).Hours() / 24 / 365.25
		ageMonths := asOf.Sub(eq.AcquisitionDate).Hours() / 24 / 30.44
		ageSum += ageYears
		if eq.ExpectedUsefulLifeMonths > 0 && ageMonths > float64(eq.ExpectedUsefulLifeMonths) {
			rep.PastUsefulLife++
		}
		rep.TotalAcquisition += eq.AcquisitionCost
		allIDs = append(allIDs, eq.ID)
		byClass[eq.EquipmentClass] = append(byClass[eq.EquipmentClass], eq)
	}
	rep.AvgAgeYears = ageSum / float64(len(assets))

	rep.AnnualMaintenance, err = rollups.TotalSince(ctx, allIDs, yearAgo)
	if err != nil {
		return fleetReport{}, err
	}

	classes := make([]string, 0, len(byClass))
	for class := range byClass {
		classes = append(classes, class)
	}
	sort.Strings(classes)

	for _, class := range classes {
		group := byClass[class]
		line := classLine{Class: class, Count: len(group)}
		ids := make([]int64, 0, len(group))
		var groupAge float64
		for _, eq := range group {
			ids = append(ids, eq.ID)
			groupAge += asOf.Sub(eq.AcquisitionDate).Hours() / 24 / 365.25
		}
		line.AvgAgeYears = groupAge / float64(len(group))
		line.AnnualCost, err = rollups.TotalSince(ctx, ids, yearAgo)
		if err != nil {
			return fleetReport{}, err
		}
		rep.Classes = append(rep.Classes, line)
	}
	return rep, nil
}

func printFleetReport(rep fleetReport) {
	title := "Fleet Cost Report"
	if rep.Facility != "" {
		title += " - " + rep.Facility
	}
	fmt.Printf("\n%s\n", title)
	fmt.Printf("  Date: %s\n", rep.Date.Format("2006-01-02"))
	fmt.Printf("  Total assets: %d\n", rep.TotalAssets)
	fmt.Printf("  Average age: %.1f years\n", rep.AvgAgeYears)
	fmt.Printf("  Past useful life: %d\n", rep.PastUsefulLife)
	fmt.Printf("  Total acquisition value: $%.0f\n", rep.TotalAcquisition)
	fmt.Printf("  Annual maintenance cost: $%.0f\n", rep.AnnualMaintenance)
	if rep.TotalAcquisition > 0 {
		fmt.Printf("  Maintenance/acquisition ratio: %.1f%%\n",
			rep.AnnualMaintenance/rep.TotalAcquisition*100)
	}

	fmt.Println("\nCost by equipment class")
	fmt.Printf("  %-18s  %6s  %8s  %12s  %14s\n",
		"Class", "Count", "Avg Age", "Annual Cost", "Avg Cost/Asset")
	for _, line := range rep.Classes {
		fmt.Printf("  %-18s  %6d  %8.1f  %12.0f  %14.0f\n",
			line.Class, line.Count, line.AvgAgeYears,
			line.AnnualCost, line.AnnualCost/float64(line.Count))
	}
}
