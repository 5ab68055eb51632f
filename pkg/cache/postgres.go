package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// kvEntry is one row of the key/value table.
type kvEntry struct {
	Key       string     `gorm:"column:key;primaryKey;size:255"`
	Value     string     `gorm:"column:value;type:text;not null"`
	ExpiresAt *time.Time `gorm:"column:expires_at;index"`
	UpdatedAt time.Time  `gorm:"column:updated_at"`
}

// PostgresCache implements Service on a single PostgreSQL table, for
// deployments that want persisted state without running Redis.
type PostgresCache struct {
	db     *gorm.DB
	table  string
	prefix string
	now    func() time.Time
}

// NewPostgresCache connects with GORM and makes sure the table exists.
func NewPostgresCache(dsn string, opts ...PostgresOption) (*PostgresCache, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	return NewPostgresCacheWithDB(db, opts...)
}

// NewPostgresCacheWithDB wraps an existing GORM handle.
func NewPostgresCacheWithDB(db *gorm.DB, opts ...PostgresOption) (*PostgresCache, error) {
	cfg := &PostgresConfig{
		Table:  "kv_entries",
		Prefix: "stockpulse",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if err := db.Table(cfg.Table).AutoMigrate(&kvEntry{}); err != nil {
		return nil, fmt.Errorf("postgres migrate %s: %w", cfg.Table, err)
	}

	return &PostgresCache{db: db, table: cfg.Table, prefix: cfg.Prefix, now: time.Now}, nil
}

func (c *PostgresCache) q(ctx context.Context) *gorm.DB {
	return c.db.WithContext(ctx).Table(c.table)
}

func (c *PostgresCache) expiry(ttl time.Duration) *time.Time {
	if ttl <= 0 {
		return nil
	}
	t := c.now().Add(ttl)
	return &t
}

func (c *PostgresCache) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	entry := kvEntry{
		Key:       c.wrapKey(key),
		Value:     value,
		ExpiresAt: c.expiry(expiration),
		UpdatedAt: c.now(),
	}
	return c.q(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
	}).Create(&entry).Error
}

func (c *PostgresCache) Get(ctx context.Context, key string) (string, error) {
	var entry kvEntry
	err := c.q(ctx).
		Where("key = ? AND (expires_at IS NULL OR expires_at > ?)", c.wrapKey(key), c.now()).
		Take(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrCacheMiss
		}
		return "", err
	}
	return entry.Value, nil
}

func (c *PostgresCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.q(ctx).Where("key IN ?", c.wrapKeys(keys...)).Delete(&kvEntry{}).Error
}

func (c *PostgresCache) Exists(ctx context.Context, keys ...string) (bool, error) {
	var n int64
	err := c.q(ctx).
		Where("key IN ? AND (expires_at IS NULL OR expires_at > ?)", c.wrapKeys(keys...), c.now()).
		Count(&n).Error
	return n > 0, err
}

func (c *PostgresCache) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	wrapped := c.wrapKey(key)
	now := c.now()

	// An expired lock row would block the insert below.
	if err := c.q(ctx).Where("key = ? AND expires_at IS NOT NULL AND expires_at <= ?", wrapped, now).
		Delete(&kvEntry{}).Error; err != nil {
		return false, err
	}

	res := c.q(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&kvEntry{
		Key:       wrapped,
		Value:     "locked",
		ExpiresAt: c.expiry(ttl),
		UpdatedAt: now,
	})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (c *PostgresCache) Unlock(ctx context.Context, key string) error {
	return c.Delete(ctx, key)
}

// Close closes the underlying connection pool.
func (c *PostgresCache) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (c *PostgresCache) wrapKey(key string) string {
	return GenerateKey(c.prefix, key)
}

func (c *PostgresCache) wrapKeys(keys ...string) []string {
	wrapped := make([]string, len(keys))
	for i, key := range keys {
		wrapped[i] = c.wrapKey(key)
	}
	return wrapped
}
