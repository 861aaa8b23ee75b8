package archive

import (
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/trailsentry/trailsentry-go/internal/alert"
	"github.com/trailsentry/trailsentry-go/internal/errors"
	"github.com/trailsentry/trailsentry-go/internal/logging"
)

const (
	recentCacheKey = "recent"
	cacheTTL       = 30 * time.Second
)

// Store is a resolved-alert archive backed by SQLite. It implements the
// dispatcher's resolution sink. Reads for the status API go through a
// short-lived cache so polling dashboards do not hammer the SD card.
type Store struct {
	db     *gorm.DB
	cache  *gocache.Cache
	logger *slog.Logger
}

// Open opens or creates the archive database at the given path and runs
// the schema migration. Use ":memory:" for an ephemeral archive.
func Open(path string) (*Store, error) {
	logger := logging.ForService("archive")
	if logger == nil {
		logger = slog.Default().With("service", "archive")
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, errors.New(err).
			Component("archive").
			Category(errors.CategoryDatabase).
			Context("path", path).
			Build()
	}

	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, errors.New(err).
			Component("archive").
			Category(errors.CategoryDatabase).
			Context("path", path).
			Build()
	}

	return &Store{
		db:     db,
		cache:  gocache.New(cacheTTL, time.Minute),
		logger: logger,
	}, nil
}

// OnAlertResolved persists the record. Archive failures are logged and
// swallowed: losing an audit row must never disturb alert processing.
func (s *Store) OnAlertResolved(rec *alert.Record) {
	entry := Entry{
		AlertID:        rec.ID,
		Species:        rec.Species,
		Confidence:     rec.Confidence,
		Priority:       string(rec.Priority),
		Message:        rec.Message,
		State:          string(rec.State),
		DetectionCount: rec.DetectionCount,
		AttemptCount:   len(rec.Attempts),
		DeliveredVia:   deliveredVia(rec),
		CreatedAt:      rec.CreatedAt,
		ResolvedAt:     resolvedAt(rec),
	}

	if err := s.db.Create(&entry).Error; err != nil {
		s.logger.Error("failed to archive resolved alert",
			"alert_id", rec.ID,
			"error", err,
		)
		return
	}
	s.cache.Flush()
}

// Recent returns the newest resolved entries, most recent first.
func (s *Store) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	if cached, found := s.cache.Get(recentCacheKey); found {
		entries := cached.([]Entry)
		if len(entries) >= limit {
			return entries[:limit], nil
		}
	}

	var entries []Entry
	err := s.db.Order("resolved_at DESC").Limit(limit).Find(&entries).Error
	if err != nil {
		return nil, errors.New(err).
			Component("archive").
			Category(errors.CategoryDatabase).
			Build()
	}

	s.cache.Set(recentCacheKey, entries, gocache.DefaultExpiration)
	return entries, nil
}

// CountSince returns resolution counts per state since the given time.
func (s *Store) CountSince(since time.Time) (map[string]int64, error) {
	type row struct {
		State string
		N     int64
	}

	var rows []row
	err := s.db.Model(&Entry{}).
		Select("state, count(*) as n").
		Where("resolved_at >= ?", since).
		Group("state").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.New(err).
			Component("archive").
			Category(errors.CategoryDatabase).
			Build()
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.State] = r.N
	}
	return counts, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// deliveredVia returns the transport of the last successful attempt.
func deliveredVia(rec *alert.Record) string {
	for i := len(rec.Attempts) - 1; i >= 0; i-- {
		if rec.Attempts[i].Outcome == alert.OutcomeSuccess {
			return rec.Attempts[i].Transport
		}
	}
	return ""
}

// resolvedAt returns the timestamp of the final attempt, falling back to
// the record's creation time for records resolved without any attempt.
func resolvedAt(rec *alert.Record) time.Time {
	if len(rec.Attempts) > 0 {
		return rec.Attempts[len(rec.Attempts)-1].Timestamp
	}
	return rec.CreatedAt
}
