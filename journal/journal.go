// Package journal keeps a record of every position the bot opened and how
// it ended. Two stores exist: a JSON file and a SQL database.
package journal

import (
	"context"
	"errors"
	"time"

	"swap-sentinel/models"
)

// ErrRecordNotFound is returned when a close refers to an unknown record
var ErrRecordNotFound = errors.New("journal record not found")

// Reader lists stored records, oldest first
type Reader interface {
	Records(ctx context.Context) ([]models.OrderRecord, error)
}

// openRecord builds the record written when a position opens
func openRecord(p models.Position, snap models.IndicatorSnapshot) models.OrderRecord {
	return models.OrderRecord{
		ID:            p.ClientOrderID,
		Price:         p.EntryPrice,
		Indicators:    snap,
		StopLoss:      p.StopLoss,
		TakeProfit:    p.TakeProfit,
		Side:          p.Side,
		Status:        models.StatusOpen,
		OpenTimestamp: p.OpenTime,
	}
}

// closeRecord marks r as won or lost
func closeRecord(r *models.OrderRecord, p models.Position, reason models.ExitReason, price float64, at time.Time) {
	r.Status = models.StatusLoss
	if p.Profit(price) > 0 {
		r.Status = models.StatusWin
	}
	closed := at
	r.CloseTimestamp = &closed
	r.ClosePrice = price
	r.ExitReason = reason
}

// Summary is the win rate over closed records
type Summary struct {
	Total   int     `json:"total"`
	Open    int     `json:"open"`
	Wins    int     `json:"wins"`
	Losses  int     `json:"losses"`
	WinRate float64 `json:"winRate"`
	// ByReason counts closed records per exit reason
	ByReason map[models.ExitReason]int `json:"byReason"`
}

// Summarize counts outcomes; WinRate is wins over closed records in percent
func Summarize(records []models.OrderRecord) Summary {
	s := Summary{Total: len(records), ByReason: make(map[models.ExitReason]int)}
	for _, r := range records {
		switch r.Status {
		case models.StatusWin:
			s.Wins++
		case models.StatusLoss:
			s.Losses++
		default:
			s.Open++
			continue
		}
		if r.ExitReason != "" {
			s.ByReason[r.ExitReason]++
		}
	}
	if closed := s.Wins + s.Losses; closed > 0 {
		s.WinRate = float64(s.Wins) / float64(closed) * 100
	}
	return s
}
