package journal

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"swap-sentinel/models"
)

type store interface {
	Reader
	PositionOpened(ctx context.Context, p models.Position, snap models.IndicatorSnapshot) error
	PositionClosed(ctx context.Context, p models.Position, reason models.ExitReason, price float64) error
}

func samplePosition(id string, side models.Side) models.Position {
	opened := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return models.Position{
		ClientOrderID: id, Side: side, EntryPrice: 0.5, Size: 0.1, OpenTime: opened,
		StopLoss: 0.49, TakeProfit: 0.52, LastAdjustTime: opened,
	}
}

func sampleSnapshot() models.IndicatorSnapshot {
	return models.IndicatorSnapshot{Close: 0.5, RSI: math.NaN(), ATR: 0.0067, BBLower: 0.495, BBUpper: 0.51, EMAPeriod: 50}
}

func exerciseStore(t *testing.T, s store) {
	t.Helper()
	ctx := context.Background()

	if err := s.PositionOpened(ctx, samplePosition("a", models.SideLong), sampleSnapshot()); err != nil {
		t.Fatalf("PositionOpened(a) error: %v", err)
	}
	if err := s.PositionOpened(ctx, samplePosition("b", models.SideShort), sampleSnapshot()); err != nil {
		t.Fatalf("PositionOpened(b) error: %v", err)
	}
	if err := s.PositionClosed(ctx, samplePosition("a", models.SideLong), models.ExitTakeProfit, 0.52); err != nil {
		t.Fatalf("PositionClosed(a) error: %v", err)
	}
	if err := s.PositionClosed(ctx, samplePosition("b", models.SideShort), models.ExitStopLoss, 0.51); err != nil {
		t.Fatalf("PositionClosed(b) error: %v", err)
	}
	err := s.PositionClosed(ctx, samplePosition("zzz", models.SideLong), models.ExitTimeout, 1)
	if !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}

	records, err := s.Records(ctx)
	if err != nil {
		t.Fatalf("Records error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	byID := map[string]models.OrderRecord{}
	for _, r := range records {
		byID[r.ID] = r
	}
	a, b := byID["a"], byID["b"]
	if a.Status != models.StatusWin || a.ExitReason != models.ExitTakeProfit || a.ClosePrice != 0.52 || a.CloseTimestamp == nil {
		t.Fatalf("unexpected record a: %+v", a)
	}
	if b.Status != models.StatusLoss || b.ExitReason != models.ExitStopLoss || b.Side != models.SideShort {
		t.Fatalf("unexpected record b: %+v", b)
	}
	if a.Price != 0.5 || a.StopLoss != 0.49 || a.TakeProfit != 0.52 {
		t.Fatalf("unexpected prices: %+v", a)
	}
	if a.Indicators.ATR != 0.0067 || !math.IsNaN(a.Indicators.RSI) {
		t.Fatalf("indicator snapshot not preserved: %+v", a.Indicators)
	}

	sum := Summarize(records)
	if sum.Wins != 1 || sum.Losses != 1 || sum.WinRate != 50 || sum.ByReason[models.ExitStopLoss] != 1 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
}

func TestFileJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "orders.json")
	j, err := NewFileJournal(path, nil)
	if err != nil {
		t.Fatalf("NewFileJournal error: %v", err)
	}
	exerciseStore(t, j)

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file should be renamed away")
	}
	records, err := ReadFile(path)
	if err != nil || len(records) != 2 {
		t.Fatalf("ReadFile = %d records, %v", len(records), err)
	}
}

func TestReadFileMissingIsEmpty(t *testing.T) {
	records, err := ReadFile(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil || len(records) != 0 {
		t.Fatalf("expected no records, got %v %v", records, err)
	}
}

func TestDBJournalSQLite(t *testing.T) {
	j, err := OpenDB(filepath.Join(t.TempDir(), "journal.db"), "XRP-USDT-SWAP", nil)
	if err != nil {
		t.Fatalf("OpenDB error: %v", err)
	}
	defer j.Close()
	exerciseStore(t, j)
}

func TestSummarizeOpenOnly(t *testing.T) {
	sum := Summarize([]models.OrderRecord{{Status: models.StatusOpen}})
	if sum.Open != 1 || sum.WinRate != 0 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
}
