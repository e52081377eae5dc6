package journal

import (
	"time"

	"github.com/pkg/errors"
)

const defaultQueryLimit = 50

// Repository handles journal reads and writes.
type Repository struct {
	db *DB
}

func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// Create inserts entry.
func (r *Repository) Create(entry *Entry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if result := r.db.Create(entry); result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert journal entry")
	}
	return nil
}

// Recent returns matching entries, newest first.
func (r *Repository) Recent(q Query) ([]Entry, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}

	tx := r.db.Model(&Entry{})
	if q.Event != "" {
		tx = tx.Where("event = ?", q.Event)
	}
	if !q.Since.IsZero() {
		tx = tx.Where("timestamp >= ?", q.Since)
	}

	var entries []Entry
	if result := tx.Order("timestamp DESC, id DESC").Limit(limit).Find(&entries); result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query journal")
	}
	return entries, nil
}

// CountByEvent returns how many entries exist per event name.
func (r *Repository) CountByEvent() (map[string]int64, error) {
	var rows []struct {
		Event string
		Count int64
	}
	result := r.db.Model(&Entry{}).
		Select("event, COUNT(*) as count").
		Group("event").
		Scan(&rows)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to count journal entries")
	}

	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Event] = row.Count
	}
	return out, nil
}

// DeleteBefore removes entries older than before.
func (r *Repository) DeleteBefore(before time.Time) (int64, error) {
	result := r.db.Where("timestamp < ?", before).Delete(&Entry{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to delete old journal entries")
	}
	return result.RowsAffected, nil
}
