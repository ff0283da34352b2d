package journal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"swap-sentinel/logging"
	"swap-sentinel/models"
)

// TradeRecord is the SQL row of one journal record
type TradeRecord struct {
	ID         string                   `gorm:"primaryKey"`
	InstID     string                   `gorm:"index"`
	Side       string                   // "long" or "short"
	Price      decimal.Decimal          `gorm:"type:decimal(20,8)"`
	StopLoss   decimal.Decimal          `gorm:"type:decimal(20,8)"`
	TakeProfit decimal.Decimal          `gorm:"type:decimal(20,8)"`
	ClosePrice decimal.Decimal          `gorm:"type:decimal(20,8)"`
	Indicators models.IndicatorSnapshot `gorm:"serializer:json"`
	Status     string                   `gorm:"index"` // "open", "win", "loss"
	ExitReason string
	OpenedAt   time.Time
	ClosedAt   *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DBJournal stores records through gorm in SQLite or PostgreSQL
type DBJournal struct {
	db     *gorm.DB
	instID string
	logger logging.LoggerInterface
	now    func() time.Time
}

// OpenDB connects to dsn. postgres:// and postgresql:// URLs use
// PostgreSQL; anything else is a SQLite file path.
func OpenDB(dsn, instID string, log logging.LoggerInterface) (*DBJournal, error) {
	if log == nil {
		log = logging.NopLogger{}
	}
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}

	var (
		db  *gorm.DB
		err error
	)
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		db, err = gorm.Open(postgres.Open(dsn), cfg)
		if err != nil {
			return nil, fmt.Errorf("open postgres journal: %w", err)
		}
		log.Info("Journal database connected (PostgreSQL)")
	} else {
		path := strings.TrimPrefix(dsn, "sqlite://")
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create journal dir: %w", err)
		}
		db, err = gorm.Open(sqlite.Open(path), cfg)
		if err != nil {
			return nil, fmt.Errorf("open sqlite journal: %w", err)
		}
		log.Info("Journal database initialized (SQLite): %s", path)
	}

	if err := db.AutoMigrate(&TradeRecord{}); err != nil {
		return nil, fmt.Errorf("migrate journal: %w", err)
	}
	return &DBJournal{db: db, instID: instID, logger: log, now: time.Now}, nil
}

func (j *DBJournal) PositionOpened(ctx context.Context, p models.Position, snap models.IndicatorSnapshot) error {
	row := toRow(openRecord(p, snap), j.instID)
	if err := j.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("insert journal record %s: %w", p.ClientOrderID, err)
	}
	return nil
}

func (j *DBJournal) PositionClosed(ctx context.Context, p models.Position, reason models.ExitReason, price float64) error {
	var row TradeRecord
	err := j.db.WithContext(ctx).First(&row, "id = ?", p.ClientOrderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrRecordNotFound, p.ClientOrderID)
	}
	if err != nil {
		return fmt.Errorf("load journal record %s: %w", p.ClientOrderID, err)
	}

	rec := fromRow(row)
	closeRecord(&rec, p, reason, price, j.now())
	updated := toRow(rec, row.InstID)
	updated.CreatedAt = row.CreatedAt
	if err := j.db.WithContext(ctx).Save(&updated).Error; err != nil {
		return fmt.Errorf("update journal record %s: %w", p.ClientOrderID, err)
	}
	return nil
}

// Records returns every record ordered by open time
func (j *DBJournal) Records(ctx context.Context) ([]models.OrderRecord, error) {
	var rows []TradeRecord
	if err := j.db.WithContext(ctx).Order("opened_at asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list journal: %w", err)
	}
	out := make([]models.OrderRecord, len(rows))
	for i, r := range rows {
		out[i] = fromRow(r)
	}
	return out, nil
}

// Close releases the underlying connection pool
func (j *DBJournal) Close() error {
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toRow(r models.OrderRecord, instID string) TradeRecord {
	return TradeRecord{
		ID:         r.ID,
		InstID:     instID,
		Side:       string(r.Side),
		Price:      decimal.NewFromFloat(r.Price),
		StopLoss:   decimal.NewFromFloat(r.StopLoss),
		TakeProfit: decimal.NewFromFloat(r.TakeProfit),
		ClosePrice: decimal.NewFromFloat(r.ClosePrice),
		Indicators: r.Indicators,
		Status:     r.Status,
		ExitReason: string(r.ExitReason),
		OpenedAt:   r.OpenTimestamp,
		ClosedAt:   r.CloseTimestamp,
	}
}

func fromRow(row TradeRecord) models.OrderRecord {
	return models.OrderRecord{
		ID:             row.ID,
		Price:          row.Price.InexactFloat64(),
		Indicators:     row.Indicators,
		StopLoss:       row.StopLoss.InexactFloat64(),
		TakeProfit:     row.TakeProfit.InexactFloat64(),
		Side:           models.Side(row.Side),
		Status:         row.Status,
		OpenTimestamp:  row.OpenedAt,
		CloseTimestamp: row.ClosedAt,
		ClosePrice:     row.ClosePrice.InexactFloat64(),
		ExitReason:     models.ExitReason(row.ExitReason),
	}
}
