package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"geofeed/internal/middleware"

	"gorm.io/gorm"
)

// MigrationLog is one row of the applied-migrations ledger. Checksum is the
// digest of the up script as it was when applied.
type MigrationLog struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255"`
	Checksum  string    `gorm:"size:64"`
	AppliedAt time.Time `gorm:"autoCreateTime"`
}

func (MigrationLog) TableName() string {
	return "migration_logs"
}

// MigrationStore persists the ledger and runs scripts against the schema.
type MigrationStore interface {
	Applied(ctx context.Context) ([]MigrationLog, error)
	Apply(ctx context.Context, m Migration) error
	Revert(ctx context.Context, m Migration) error
}

type gormMigrationStore struct {
	db *gorm.DB
}

func NewMigrationStore(db *gorm.DB) MigrationStore {
	return &gormMigrationStore{db: db}
}

func (s *gormMigrationStore) Applied(ctx context.Context) ([]MigrationLog, error) {
	var logs []MigrationLog
	if err := s.db.WithContext(ctx).Order("version ASC").Find(&logs).Error; err != nil {
		if isMissingTableError(err) {
			return []MigrationLog{}, nil
		}
		return nil, fmt.Errorf("read migration ledger: %w", err)
	}
	return logs, nil
}

func isMissingTableError(err error) bool {
	msg := err.Error()
	return (strings.Contains(msg, "relation") && strings.Contains(msg, "does not exist")) ||
		strings.Contains(msg, "no such table")
}

// Apply runs the up script and records it in one transaction.
func (s *gormMigrationStore) Apply(ctx context.Context, m Migration) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(m.UpScript).Error; err != nil {
			return fmt.Errorf("apply %s: %w", m.String(), err)
		}
		if err := tx.Create(&MigrationLog{Version: m.Version, Name: m.Name, Checksum: m.Checksum}).Error; err != nil {
			return fmt.Errorf("record %s: %w", m.String(), err)
		}
		return nil
	})
}

// Revert runs the down script and drops the ledger row in one transaction.
func (s *gormMigrationStore) Revert(ctx context.Context, m Migration) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(m.DownScript).Error; err != nil {
			return fmt.Errorf("revert %s: %w", m.String(), err)
		}
		if err := tx.Where("version = ?", m.Version).Delete(&MigrationLog{}).Error; err != nil {
			return fmt.Errorf("unrecord %s: %w", m.String(), err)
		}
		return nil
	})
}

// MigrationPlan compares the ledger with the embedded migrations.
type MigrationPlan struct {
	Applied []MigrationLog
	Pending []Migration
	// Drifted lists applied migrations whose embedded script no longer
	// matches the recorded checksum.
	Drifted []Migration
}

// ErrMigrationDrift is returned by Up when an applied script was edited.
var ErrMigrationDrift = errors.New("applied migration changed since it ran")

// Migrator applies registered migrations through a MigrationStore.
type Migrator struct {
	store      MigrationStore
	registered []Migration
}

func NewMigrator(store MigrationStore, registered []Migration) *Migrator {
	return &Migrator{store: store, registered: registered}
}

// Plan reads the ledger and classifies every registered migration. A ledger
// row for a version the binary does not know is an error: the database is
// ahead of this build.
func (m *Migrator) Plan(ctx context.Context) (*MigrationPlan, error) {
	applied, err := m.store.Applied(ctx)
	if err != nil {
		return nil, err
	}

	byVersion := make(map[int]MigrationLog, len(applied))
	for _, row := range applied {
		byVersion[row.Version] = row
	}

	known := make(map[int]struct{}, len(m.registered))
	plan := &MigrationPlan{Applied: applied}
	for _, mig := range m.registered {
		known[mig.Version] = struct{}{}
		row, ok := byVersion[mig.Version]
		switch {
		case !ok:
			plan.Pending = append(plan.Pending, mig)
		case row.Checksum != "" && row.Checksum != mig.Checksum:
			plan.Drifted = append(plan.Drifted, mig)
		}
	}

	var unknown []string
	for _, row := range applied {
		if _, ok := known[row.Version]; !ok {
			unknown = append(unknown, fmt.Sprintf("%06d", row.Version))
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("migration_logs contains versions unknown to this build: %s", strings.Join(unknown, ", "))
	}

	return plan, nil
}

// Up applies pending migrations in version order. It refuses to run while
// any applied script has drifted.
func (m *Migrator) Up(ctx context.Context) error {
	plan, err := m.Plan(ctx)
	if err != nil {
		return err
	}
	if len(plan.Drifted) > 0 {
		names := make([]string, 0, len(plan.Drifted))
		for _, d := range plan.Drifted {
			names = append(names, d.String())
		}
		return fmt.Errorf("%w: %s", ErrMigrationDrift, strings.Join(names, ", "))
	}

	for _, mig := range plan.Pending {
		middleware.Logger.InfoContext(ctx, "applying migration",
			slog.Int("version", mig.Version),
			slog.String("name", mig.Name),
			slog.String("checksum", mig.shortChecksum()),
		)
		if err := m.store.Apply(ctx, mig); err != nil {
			return err
		}
	}
	return nil
}

// Down reverts one applied migration.
func (m *Migrator) Down(ctx context.Context, version int) error {
	var target *Migration
	for i := range m.registered {
		if m.registered[i].Version == version {
			target = &m.registered[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("migration version %d not found", version)
	}

	applied, err := m.store.Applied(ctx)
	if err != nil {
		return err
	}
	found := false
	for _, row := range applied {
		if row.Version == version {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("migration %d has not been applied", version)
	}

	middleware.Logger.InfoContext(ctx, "reverting migration", slog.Int("version", version), slog.String("name", target.Name))
	return m.store.Revert(ctx, *target)
}

const ensureMigrationLogTableSQL = `
CREATE TABLE IF NOT EXISTS migration_logs (
	version BIGINT PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	checksum VARCHAR(64) NOT NULL DEFAULT '',
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

// RunMigrations ensures the ledger table exists and applies the embedded migrations.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).Exec(ensureMigrationLogTableSQL).Error; err != nil {
		return fmt.Errorf("ensure migration_logs: %w", err)
	}
	return NewMigrator(NewMigrationStore(db), migrations).Up(ctx)
}

// RollbackMigration reverts one embedded migration by version.
func RollbackMigration(ctx context.Context, db *gorm.DB, version int) error {
	return NewMigrator(NewMigrationStore(db), migrations).Down(ctx, version)
}
