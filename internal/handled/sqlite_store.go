package handled

import (
	"context"
	"fmt"
	"time"

	"github.com/quailyquaily/greg/db"
	"github.com/quailyquaily/greg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQLiteStore keeps one row per handled id. Inserts are insert-if-absent, so
// several relays can share the database.
type SQLiteStore struct {
	db  *gorm.DB
	now func() time.Time
}

func OpenSQLiteStore(cfg db.Config) (*SQLiteStore, error) {
	gdb, err := db.Open(cfg)
	if err != nil {
		return nil, err
	}
	return NewSQLiteStore(gdb), nil
}

func NewSQLiteStore(gdb *gorm.DB) *SQLiteStore {
	return &SQLiteStore{db: gdb, now: time.Now}
}

func (s *SQLiteStore) Load(ctx context.Context) (Set, error) {
	var ids []string
	if err := s.db.WithContext(ctx).Model(&models.HandledMessage{}).Pluck("id", &ids).Error; err != nil {
		return NewSet(), fmt.Errorf("load handled ids: %w", err)
	}
	return NewSet(ids...), nil
}

func (s *SQLiteStore) Save(ctx context.Context, set Set) error {
	if set.Len() == 0 {
		return nil
	}
	now := s.now().UTC().Unix()
	rows := make([]models.HandledMessage, 0, set.Len())
	for _, id := range set.Sorted() {
		rows = append(rows, models.HandledMessage{ID: id, HandledAt: now})
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(rows, 200).Error
	if err != nil {
		return fmt.Errorf("save handled ids: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Insert(ctx context.Context, id string) error {
	row := models.HandledMessage{ID: id, HandledAt: s.now().UTC().Unix()}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("insert handled id %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) Has(ctx context.Context, id string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.HandledMessage{}).Where("id = ?", id).Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("check handled id %s: %w", id, err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) Reset(ctx context.Context) error {
	return s.db.WithContext(ctx).Where("1 = 1").Delete(&models.HandledMessage{}).Error
}

func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
