// Package store – relational backend.
//
// GormStore persists wishes through GORM and works against both the pure-Go
// SQLite driver (development, tests) and Postgres (production). Schema
// provisioning is idempotent and latched, so AutoMigrate runs at most once
// per process no matter how many operations race on first use.
package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/mooky-live/wishes-backend/internal/domain"
)

// GormStore implements WishStore over a relational database.
type GormStore struct {
	db *gorm.DB

	ensure    sync.Once
	ensureErr error
}

// NewGormStore wraps an already-open GORM handle. The schema is provisioned
// lazily on first use.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// OpenSQLite opens (or creates) a SQLite database with the PRAGMAs and pool
// settings appropriate for a small single-node deployment.
func OpenSQLite(path string) (*GormStore, error) {
	// Fail early if the parent directory does not exist, instead of an
	// opaque sqlite "out of memory (14)" later.
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	_ = db.Use(tracing.NewPlugin(tracing.WithoutMetrics()))

	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA busy_timeout=5000;")

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	return NewGormStore(db), nil
}

// OpenPostgres connects to Postgres using the given DSN or URL.
func OpenPostgres(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	_ = db.Use(tracing.NewPlugin(tracing.WithoutMetrics()))
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	}
	return NewGormStore(db), nil
}

// ensureSchema provisions the wishes table exactly once per process.
func (s *GormStore) ensureSchema() error {
	s.ensure.Do(func() {
		s.ensureErr = s.db.AutoMigrate(&domain.Wish{})
	})
	return s.ensureErr
}

// Create inserts a new wish with a server-assigned id and timestamp.
func (s *GormStore) Create(ctx context.Context, name, message string) (*domain.Wish, error) {
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	w := &domain.Wish{
		ID:        uuid.NewString(),
		Name:      name,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(w).Error; err != nil {
		return nil, err
	}
	return w, nil
}

// List returns all wishes newest first (created_at DESC, id ASC for ties).
func (s *GormStore) List(ctx context.Context) ([]domain.Wish, error) {
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	out := []domain.Wish{}
	err := s.db.WithContext(ctx).
		Order("created_at DESC, id ASC").
		Find(&out).Error
	return out, err
}

// ListSince returns wishes strictly newer than t, oldest first.
func (s *GormStore) ListSince(ctx context.Context, t time.Time) ([]domain.Wish, error) {
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	out := []domain.Wish{}
	err := s.db.WithContext(ctx).
		Where("created_at > ?", t).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// Count uses a dedicated COUNT query so it stays cheap regardless of list size.
func (s *GormStore) Count(ctx context.Context) (int64, error) {
	if err := s.ensureSchema(); err != nil {
		return 0, err
	}
	var total int64
	err := s.db.WithContext(ctx).Model(&domain.Wish{}).Count(&total).Error
	return total, err
}

// Delete removes a wish by exact id or unambiguous hex prefix.
func (s *GormStore) Delete(ctx context.Context, idOrPrefix string) (string, error) {
	if err := s.ensureSchema(); err != nil {
		return "", err
	}

	res := s.db.WithContext(ctx).Where("id = ?", idOrPrefix).Delete(&domain.Wish{})
	if res.Error != nil {
		return "", res.Error
	}
	if res.RowsAffected > 0 {
		return idOrPrefix, nil
	}

	if !IsPrefixCandidate(idOrPrefix) {
		return "", ErrNotFound
	}

	// Two is enough to detect ambiguity.
	var ids []string
	err := s.db.WithContext(ctx).Model(&domain.Wish{}).
		Where("id LIKE ?", strings.ToLower(idOrPrefix)+"%").
		Limit(2).
		Pluck("id", &ids).Error
	if err != nil {
		return "", err
	}
	switch len(ids) {
	case 0:
		return "", ErrNotFound
	case 1:
		if err := s.db.WithContext(ctx).Where("id = ?", ids[0]).Delete(&domain.Wish{}).Error; err != nil {
			return "", err
		}
		return ids[0], nil
	default:
		return "", ErrAmbiguousID
	}
}

// Import inserts a batch, skipping rows whose id already exists.
func (s *GormStore) Import(ctx context.Context, wishes []domain.Wish) (int, error) {
	if err := s.ensureSchema(); err != nil {
		return 0, err
	}
	if len(wishes) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(&wishes)
	if res.Error != nil {
		return 0, res.Error
	}
	return int(res.RowsAffected), nil
}

// Ping verifies database connectivity.
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
