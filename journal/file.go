package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"swap-sentinel/logging"
	"swap-sentinel/models"
)

// FileJournal stores records as one JSON array, rewritten atomically on
// every change.
type FileJournal struct {
	Path   string
	Logger logging.LoggerInterface

	mu  sync.Mutex
	now func() time.Time
}

// NewFileJournal creates the journal, making the parent directory if needed
func NewFileJournal(path string, logger logging.LoggerInterface) (*FileJournal, error) {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create journal dir: %w", err)
		}
	}
	return &FileJournal{Path: path, Logger: logger, now: time.Now}, nil
}

func (j *FileJournal) PositionOpened(_ context.Context, p models.Position, snap models.IndicatorSnapshot) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	records, err := j.load()
	if err != nil {
		return err
	}
	records = append(records, openRecord(p, snap))
	if err := j.save(records); err != nil {
		return err
	}
	j.Logger.Debug("Journal: recorded open of %s", p.ClientOrderID)
	return nil
}

func (j *FileJournal) PositionClosed(_ context.Context, p models.Position, reason models.ExitReason, price float64) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	records, err := j.load()
	if err != nil {
		return err
	}
	for i := range records {
		if records[i].ID == p.ClientOrderID {
			closeRecord(&records[i], p, reason, price, j.now())
			if err := j.save(records); err != nil {
				return err
			}
			j.Logger.Debug("Journal: %s marked %s (%s)", p.ClientOrderID, records[i].Status, reason)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrRecordNotFound, p.ClientOrderID)
}

// Records returns the stored records in file order
func (j *FileJournal) Records(context.Context) ([]models.OrderRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.load()
}

func (j *FileJournal) load() ([]models.OrderRecord, error) {
	return ReadFile(j.Path)
}

// ReadFile parses a journal file; a missing or empty file has no records
func ReadFile(path string) ([]models.OrderRecord, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var records []models.OrderRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("parse journal %s: %w", path, err)
	}
	return records, nil
}

// save writes to a temp file, syncs it and renames it over the journal
func (j *FileJournal) save(records []models.OrderRecord) error {
	b, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal journal: %w", err)
	}
	tmp := j.Path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create temp journal: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(b); err != nil {
		return fmt.Errorf("write temp journal: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync temp journal: %w", err)
	}
	f.Close()
	if err := os.Rename(tmp, j.Path); err != nil {
		return fmt.Errorf("replace journal: %w", err)
	}
	return nil
}
