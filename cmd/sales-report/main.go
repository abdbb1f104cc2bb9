// Command sales-report mails the daily sales summary to the admin. It is
// meant to be run once a day by cron or a Kubernetes CronJob.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/config"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/logger"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/notify"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/report"
)

func main() {
	if err := run(); err != nil {
		slog.Error("sales report failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	dateFlag := flag.String("date", "", "day to report on (YYYY-MM-DD), defaults to yesterday")
	dryRun := flag.Bool("dry-run", false, "print the report instead of mailing it")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(logger.Options{Service: "sales-report", Env: cfg.AppEnv, Level: cfg.LogLevel})

	date, err := reportDate(*dateFlag, time.Now(), cfg.ReportLocation)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	sqlDB, err := db.OpenSQL(ctx, cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer sqlDB.Close()

	sender, err := notify.NewSMTPSender(notify.SMTPOptions{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
	})
	if err != nil {
		return err
	}
	mailer := notify.NewMailer(sender, cfg.MailFrom, cfg.AdminEmail, log)
	reporter := report.NewReporter(sqlDB, cfg.ReportLocation, mailer, log)

	if *dryRun {
		rep, err := reporter.Aggregate(ctx, date)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %d products sold, revenue %s\n", rep.Day(), rep.TotalProductsSold, rep.TotalRevenue.StringFixed(2))
		for _, p := range rep.TopProducts {
			fmt.Printf("  %-40s %6d %12s\n", p.Name, p.Quantity, p.Revenue.StringFixed(2))
		}
		return nil
	}

	_, err = reporter.Send(ctx, date)
	return err
}

// reportDate parses the -date flag in loc, or returns the day before now.
func reportDate(v string, now time.Time, loc *time.Location) (time.Time, error) {
	if v == "" {
		return now.In(loc).AddDate(0, 0, -1), nil
	}
	d, err := time.ParseInLocation(time.DateOnly, v, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid -date %q: %w", v, err)
	}
	return d, nil
}
