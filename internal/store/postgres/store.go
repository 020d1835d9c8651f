package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/DoyleJ11/inhouse-queue/internal/ledger"
)

// PlayerRecord is the row shape of the player_records table.
type PlayerRecord struct {
	Scope       string `gorm:"primaryKey;size:64"`
	PlayerID    string `gorm:"primaryKey;size:64"`
	Points      int    `gorm:"not null"`
	Wins        int    `gorm:"not null;default:0"`
	Losses      int    `gorm:"not null;default:0"`
	Draws       int    `gorm:"not null;default:0"`
	DisplayName string `gorm:"size:255;not null;default:''"`
}

// Store is a ledger.Store over Postgres.
type Store struct {
	db *gorm.DB
}

// Open connects to dsn and migrates the player_records table.
func Open(dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("database url is required")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", describe(err))
	}
	if err := db.AutoMigrate(&PlayerRecord{}); err != nil {
		return nil, fmt.Errorf("migrate player_records: %w", describe(err))
	}
	return &Store{db: db}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Load(ctx context.Context, scope string) (ledger.Records, error) {
	var rows []PlayerRecord
	if err := s.db.WithContext(ctx).Where("scope = ?", scope).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load scope %s: %w", scope, describe(err))
	}
	return fromRows(rows), nil
}

// Save upserts every record in one transaction. Records are never deleted.
func (s *Store) Save(ctx context.Context, scope string, records ledger.Records) error {
	rows := toRows(scope, records)
	if len(rows) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "scope"}, {Name: "player_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"points", "wins", "losses", "draws", "display_name"}),
		}).CreateInBatches(rows, 200).Error
	})
	if err != nil {
		return fmt.Errorf("save scope %s: %w", scope, describe(err))
	}
	return nil
}

func toRows(scope string, records ledger.Records) []PlayerRecord {
	rows := make([]PlayerRecord, 0, len(records))
	for id, r := range records {
		rows = append(rows, PlayerRecord{
			Scope:       scope,
			PlayerID:    id,
			Points:      r.Points,
			Wins:        r.Wins,
			Losses:      r.Losses,
			Draws:       r.Draws,
			DisplayName: r.DisplayName,
		})
	}
	return rows
}

func fromRows(rows []PlayerRecord) ledger.Records {
	out := make(ledger.Records, len(rows))
	for _, row := range rows {
		out[row.PlayerID] = ledger.PlayerRecord{
			Points:      row.Points,
			Wins:        row.Wins,
			Losses:      row.Losses,
			Draws:       row.Draws,
			DisplayName: row.DisplayName,
		}.Normalize()
	}
	return out
}

// describe folds the SQLSTATE of a server error into the message.
func describe(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("postgres %s (%s): %w", pgErr.Code, pgErr.Message, err)
	}
	return err
}
