package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"photocurator/internal/repository"
	"photocurator/internal/repository/sqlite"
)

type ledger struct {
	repo repository.LedgerRepository
}

func withLedger(dbPath string, fn func(l *ledger) error) error {
	db, err := sqlite.New(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	return fn(&ledger{repo: sqlite.NewLedgerRepository(db)})
}

func (l *ledger) stats(w io.Writer) error {
	stats, err := l.repo.Stats()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "total:    %d\n", stats.Total)
	fmt.Fprintf(w, "pending:  %d\n", stats.Pending)
	fmt.Fprintf(w, "approved: %d\n", stats.Approved)
	fmt.Fprintf(w, "skipped:  %d\n", stats.Skipped)
	return nil
}

// decide applies the decision to every filename. Rejected filenames are
// reported and the rest still processed; a storage failure stops the run.
func (l *ledger) decide(w io.Writer, filenames []string, approve bool) error {
	set, verb := l.repo.SetSkipped, "skipped"
	if approve {
		set, verb = l.repo.SetApproved, "approved"
	}

	rejected := 0
	for _, name := range filenames {
		err := set(name)
		switch {
		case err == nil:
			fmt.Fprintf(w, "%s %s\n", verb, name)
		case errors.Is(err, repository.ErrNotSuggested), errors.Is(err, repository.ErrAlreadyDecided):
			fmt.Fprintf(w, "WARNING: %v\n", err)
			rejected++
		default:
			return err
		}
	}

	if rejected > 0 {
		return fmt.Errorf("%d of %d photos rejected", rejected, len(filenames))
	}
	return nil
}

func (l *ledger) backfill(w io.Writer, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && sqlite.IsImageFile(entry.Name()) {
			names = append(names, entry.Name())
		}
	}

	if len(names) == 0 {
		fmt.Fprintf(w, "no photos found in %s\n", dir)
		return nil
	}

	changed, err := l.repo.MarkApprovedBatch(names)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "✅ marked %d of %d photos in %s as approved\n", changed, len(names), dir)
	return nil
}

func (l *ledger) unprocessed(w io.Writer, dir string, limit int) error {
	names, err := l.repo.QueryUnprocessed(dir, limit)
	if err != nil {
		return err
	}

	for _, name := range names {
		fmt.Fprintln(w, name)
	}
	return nil
}
