package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"swap-sentinel/config"
	"swap-sentinel/journal"
	"swap-sentinel/models"
)

type reportRow struct {
	Closed time.Time
	ID     string
	Side   models.Side
	Entry  float64
	Exit   float64
	PnL    float64
	Status string
	Reason models.ExitReason
}

// closedSince keeps records closed at or after since, oldest close first
func closedSince(records []models.OrderRecord, since time.Time) []reportRow {
	var rows []reportRow
	for _, r := range records {
		if r.CloseTimestamp == nil || r.CloseTimestamp.Before(since) {
			continue
		}
		pnl := r.Side.Sign() * (r.ClosePrice - r.Price)
		rows = append(rows, reportRow{
			Closed: *r.CloseTimestamp, ID: r.ID, Side: r.Side, Entry: r.Price, Exit: r.ClosePrice,
			PnL: pnl, Status: r.Status, Reason: r.ExitReason,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Closed.Before(rows[j].Closed) })
	return rows
}

func printReport(w io.Writer, label string, rows []reportRow, sum journal.Summary) {
	fmt.Fprintf(w, "Closed trades %s\n", label)
	fmt.Fprintf(w, "%-16s %-8s %-6s %-12s %-12s %-12s %-5s %s\n", "Time", "ID", "Side", "Entry", "Exit", "PnL", "Res", "Reason")
	var total float64
	for _, r := range rows {
		total += r.PnL
		id := r.ID
		if len(id) > 8 {
			id = id[:8]
		}
		fmt.Fprintf(w, "%-16s %-8s %-6s %-12.6f %-12.6f %-12.6f %-5s %s\n",
			r.Closed.In(time.Local).Format("2006-01-02 15:04"), id, r.Side, r.Entry, r.Exit, r.PnL, r.Status, r.Reason)
	}
	fmt.Fprintf(w, "\nWins %d, losses %d, still open %d, win rate %.2f%%\n", sum.Wins, sum.Losses, sum.Open, sum.WinRate)
	fmt.Fprintf(w, "Total PnL per unit: %.6f\n", total)
	if len(sum.ByReason) > 0 {
		reasons := make([]string, 0, len(sum.ByReason))
		for reason, n := range sum.ByReason {
			reasons = append(reasons, fmt.Sprintf("%s=%d", reason, n))
		}
		sort.Strings(reasons)
		fmt.Fprintf(w, "Exits: %s\n", strings.Join(reasons, ", "))
	}
}

func writeCSV(path string, rows []reportRow) error {
	var b strings.Builder
	b.WriteString("time,id,side,entry,exit,pnl,status,reason\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "%s,%s,%s,%.6f,%.6f,%.6f,%s,%s\n",
			r.Closed.UTC().Format(time.RFC3339), r.ID, r.Side, r.Entry, r.Exit, r.PnL, r.Status, r.Reason)
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

func loadRecords(ctx context.Context, cfg *config.Config, file, dsn string) ([]models.OrderRecord, error) {
	if dsn != "" {
		db, err := journal.OpenDB(dsn, cfg.InstID, nil)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		return db.Records(ctx)
	}
	return journal.ReadFile(file)
}

func main() {
	_ = config.LoadEnvFile()
	cfg := config.LoadConfig()

	hours := flag.Int("hours", 0, "lookback window in hours (0 = whole journal)")
	today := flag.Bool("today", false, "limit to current calendar day (local time); overrides -hours")
	file := flag.String("file", cfg.JournalFile, "journal JSON file")
	dsn := flag.String("dsn", cfg.JournalDSN, "journal database DSN (overrides -file)")
	outCSV := flag.String("out", "", "path to write CSV report (empty to disable)")
	flag.Parse()

	records, err := loadRecords(context.Background(), cfg, *file, *dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading journal: %v\n", err)
		os.Exit(1)
	}

	now := time.Now()
	since := time.Time{}
	label := "in journal"
	switch {
	case *today:
		since = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		label = "today"
	case *hours > 0:
		since = now.Add(-time.Duration(*hours) * time.Hour)
		label = fmt.Sprintf("last %dh", *hours)
	}

	rows := closedSince(records, since)
	if len(rows) == 0 {
		fmt.Println("No closed positions in the selected window.")
		return
	}

	var window []models.OrderRecord
	for _, r := range records {
		if r.CloseTimestamp == nil || !r.CloseTimestamp.Before(since) {
			window = append(window, r)
		}
	}
	printReport(os.Stdout, label, rows, journal.Summarize(window))

	if *outCSV != "" {
		if err := writeCSV(*outCSV, rows); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write CSV: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("CSV saved to %s\n", *outCSV)
	}
}
