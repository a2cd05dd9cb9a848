package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"photocurator/internal/model"
	"photocurator/internal/repository"
)

// imageExtensions lists the candidate file extensions, compared lowercased.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// legacyTimeLayouts match isoformat() output written without a zone.
var legacyTimeLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// decision columns; never built from user input
const (
	columnApproved = "approved"
	columnSkipped  = "skipped"
)

// LedgerRepository implements repository.LedgerRepository for SQLite.
type LedgerRepository struct {
	db  *DB
	now func() time.Time
}

// NewLedgerRepository creates a new SQLite ledger repository.
func NewLedgerRepository(db *DB) *LedgerRepository {
	return &LedgerRepository{db: db, now: time.Now}
}

// IsImageFile reports whether name carries a recognized candidate extension.
func IsImageFile(name string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(name))]
}

// UpsertSuggested records filename as suggested. A decided row is left
// untouched and reported as ErrAlreadyDecided.
func (r *LedgerRepository) UpsertSuggested(filename string, score float64, caption string) error {
	r.db.Lock()
	defer r.db.Unlock()

	suggestedAt := r.now().UTC().Format(time.RFC3339Nano)

	result, err := r.db.Conn().Exec(`
		INSERT INTO photos (filename, suggested_at, approved, skipped, caption, score)
		VALUES (?, ?, 0, 0, ?, ?)
		ON CONFLICT(filename) DO UPDATE SET
			suggested_at = excluded.suggested_at,
			caption = excluded.caption,
			score = excluded.score
		WHERE photos.approved = 0 AND photos.skipped = 0
	`, filename, suggestedAt, caption, score)
	if err != nil {
		return &repository.StorageError{Op: "upsert suggested " + filename, Err: err}
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return &repository.StorageError{Op: "upsert suggested " + filename, Err: err}
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", filename, repository.ErrAlreadyDecided)
	}
	return nil
}

// SetApproved marks filename as approved. Repeating the call is a no-op.
func (r *LedgerRepository) SetApproved(filename string) error {
	return r.setDecision(filename, columnApproved, columnSkipped)
}

// SetSkipped marks filename as skipped. Repeating the call is a no-op.
func (r *LedgerRepository) SetSkipped(filename string) error {
	return r.setDecision(filename, columnSkipped, columnApproved)
}

// setDecision flips column to 1 unless the opposite flag is already set.
func (r *LedgerRepository) setDecision(filename, column, opposite string) error {
	r.db.Lock()
	defer r.db.Unlock()

	op := "set " + column + " " + filename

	result, err := r.db.Conn().Exec(
		"UPDATE photos SET "+column+" = 1 WHERE filename = ? AND approved = 0 AND skipped = 0",
		filename,
	)
	if err != nil {
		return &repository.StorageError{Op: op, Err: err}
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return &repository.StorageError{Op: op, Err: err}
	}
	if affected == 1 {
		return nil
	}

	// Nothing changed: find out why while still holding the lock
	photo, err := r.get(filename)
	if err != nil {
		return &repository.StorageError{Op: op, Err: err}
	}
	if photo == nil {
		return fmt.Errorf("%s: %w", filename, repository.ErrNotSuggested)
	}

	alreadySet := photo.Approved
	if column == columnSkipped {
		alreadySet = photo.Skipped
	}
	if alreadySet {
		return nil
	}
	return fmt.Errorf("%s is %s: %w", filename, opposite, repository.ErrAlreadyDecided)
}

// MarkApprovedBatch marks every filename as approved in one transaction,
// inserting rows that don't exist yet. Skipped rows stay skipped.
// Returns the number of rows that changed.
func (r *LedgerRepository) MarkApprovedBatch(filenames []string) (int, error) {
	changed := 0

	err := r.db.WithTx(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO photos (filename, approved, skipped, caption, score)
			VALUES (?, 1, 0, '', 0)
			ON CONFLICT(filename) DO UPDATE SET approved = 1
			WHERE photos.approved = 0 AND photos.skipped = 0
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, name := range filenames {
			result, err := stmt.Exec(name)
			if err != nil {
				return fmt.Errorf("approve %s: %w", name, err)
			}
			if n, err := result.RowsAffected(); err == nil {
				changed += int(n)
			}
		}
		return nil
	})
	if err != nil {
		return 0, &repository.StorageError{Op: "approve batch", Err: err}
	}

	return changed, nil
}

// Get retrieves a ledger row by filename. Returns nil when absent.
func (r *LedgerRepository) Get(filename string) (*model.Photo, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	photo, err := r.get(filename)
	if err != nil {
		return nil, &repository.StorageError{Op: "get " + filename, Err: err}
	}
	return photo, nil
}

// get reads one row; the caller holds a lock.
func (r *LedgerRepository) get(filename string) (*model.Photo, error) {
	var (
		photo       model.Photo
		suggestedAt sql.NullString
		caption     sql.NullString
		score       sql.NullFloat64
	)

	err := r.db.Conn().QueryRow(`
		SELECT filename, suggested_at, approved, skipped, caption, score
		FROM photos WHERE filename = ?
	`, filename).Scan(&photo.Filename, &suggestedAt, &photo.Approved, &photo.Skipped, &caption, &score)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if suggestedAt.Valid {
		photo.SuggestedAt = parseSuggestedAt(suggestedAt.String)
	}
	photo.Caption = caption.String
	photo.Score = score.Float64

	return &photo, nil
}

// parseSuggestedAt accepts RFC3339 and the zoneless ISO timestamps (UTC)
// found in older ledgers. Unparseable values yield nil.
func parseSuggestedAt(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return &ts
	}
	for _, layout := range legacyTimeLayouts {
		if ts, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return &ts
		}
	}
	return nil
}

// QueryUnprocessed lists image files in directory that are neither approved
// nor skipped, in lexicographic order, truncated to limit (limit <= 0 keeps all).
func (r *LedgerRepository) QueryUnprocessed(directory string, limit int) ([]string, error) {
	decided, err := r.decidedFilenames()
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(directory)
	if err != nil {
		return nil, fmt.Errorf("failed to read candidate directory %s: %w", directory, err)
	}

	seen := make(map[string]bool)
	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !IsImageFile(name) {
			continue
		}
		if decided[name] || seen[name] {
			continue
		}
		seen[name] = true
		files = append(files, name)
		if limit > 0 && len(files) >= limit {
			break
		}
	}

	return files, nil
}

// decidedFilenames returns the set of filenames in a terminal state.
func (r *LedgerRepository) decidedFilenames() (map[string]bool, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`SELECT filename FROM photos WHERE approved = 1 OR skipped = 1`)
	if err != nil {
		return nil, &repository.StorageError{Op: "query decided", Err: err}
	}
	defer rows.Close()

	decided := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, &repository.StorageError{Op: "scan decided", Err: err}
		}
		decided[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, &repository.StorageError{Op: "query decided", Err: err}
	}

	return decided, nil
}

// Stats returns counters over the whole ledger.
func (r *LedgerRepository) Stats() (*model.LedgerStats, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	stats := &model.LedgerStats{}
	err := r.db.Conn().QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN approved = 0 AND skipped = 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN approved = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN skipped = 1 THEN 1 ELSE 0 END), 0)
		FROM photos
	`).Scan(&stats.Total, &stats.Pending, &stats.Approved, &stats.Skipped)
	if err != nil {
		return nil, &repository.StorageError{Op: "stats", Err: err}
	}

	return stats, nil
}
