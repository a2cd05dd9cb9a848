package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"photocurator/internal/config"
	"photocurator/internal/logger"
	"photocurator/internal/repository"
	"photocurator/internal/repository/sqlite"
	"photocurator/internal/service/analyzer"
	"photocurator/internal/service/archive"
	"photocurator/internal/service/selection"
	"photocurator/internal/service/websocket"
)

// ========================================
// Test Setup Helpers
// ========================================

type fakeProducer struct {
	winner *selection.Winner
	err    error
}

func (f *fakeProducer) Produce(ctx context.Context) (*selection.Winner, error) {
	return f.winner, f.err
}

type testEnv struct {
	manager  *Manager
	repo     *sqlite.LedgerRepository
	photos   string
	archived string
}

func setupManager(t *testing.T, producer Producer) *testEnv {
	t.Helper()

	db, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	log := logger.NewDiscard()
	hub := websocket.NewHubService(log)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	photos, archived := t.TempDir(), t.TempDir()
	repo := sqlite.NewLedgerRepository(db)

	return &testEnv{
		manager:  NewManager(producer, repo, archive.New(photos, archived), hub, log),
		repo:     repo,
		photos:   photos,
		archived: archived,
	}
}

func (e *testEnv) suggest(t *testing.T, filename string, withFile bool) {
	t.Helper()

	if withFile {
		if err := os.WriteFile(filepath.Join(e.photos, filename), []byte("image"), 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}
	}
	if err := e.repo.UpsertSuggested(filename, 0.5, "caption"); err != nil {
		t.Fatalf("UpsertSuggested failed: %v", err)
	}
}

func testWinner() *selection.Winner {
	return &selection.Winner{
		Filename: "a.jpg",
		Data:     []byte("not really a jpeg"),
		Report:   &analyzer.ScoreReport{Composite: 0.8124},
		Caption:  "a.jpg | shot\n\n#photooftheday #2025",
	}
}

// ========================================
// Suggestions
// ========================================

func TestProduceSuggestion(t *testing.T) {
	env := setupManager(t, &fakeProducer{winner: testWinner()})

	s, err := env.manager.ProduceSuggestion(context.Background())
	if err != nil {
		t.Fatalf("ProduceSuggestion failed: %v", err)
	}

	if s.Filename != "a.jpg" || s.Score != 0.8124 {
		t.Errorf("Unexpected suggestion: %+v", s)
	}
	if string(s.Image) != "not really a jpeg" {
		t.Errorf("Expected original bytes when thumbnailing fails, got %q", s.Image)
	}

	expected := "Suggested: a.jpg\nScore: 0.812\n\na.jpg | shot\n\n#photooftheday #2025"
	if s.Message != expected {
		t.Errorf("Expected message %q, got %q", expected, s.Message)
	}
}

func TestProduceSuggestion_None(t *testing.T) {
	env := setupManager(t, &fakeProducer{})

	s, err := env.manager.ProduceSuggestion(context.Background())
	if err != nil || s != nil {
		t.Errorf("Expected nil, nil; got %+v, %v", s, err)
	}
	if err := env.manager.RunPass(context.Background()); err != nil {
		t.Errorf("RunPass with no candidates should not fail: %v", err)
	}
}

func TestRunPass_ReturnsErrorWithoutLogging(t *testing.T) {
	storageErr := &repository.StorageError{Op: "upsert", Err: errors.New("locked")}
	env := setupManager(t, &fakeProducer{err: storageErr})

	logDir := t.TempDir()
	fileLog := logger.NewLogger(&config.Config{LogDirectory: logDir})
	t.Cleanup(func() { fileLog.Close() })
	env.manager.logger = fileLog

	err := env.manager.RunPass(context.Background())
	if !errors.As(err, new(*repository.StorageError)) {
		t.Fatalf("Expected StorageError, got %v", err)
	}

	data, _ := os.ReadFile(filepath.Join(logDir, "error.log"))
	if strings.Contains(string(data), "locked") {
		t.Errorf("RunPass should leave logging to its caller, error.log has %q", data)
	}
}

func TestSuggestNow(t *testing.T) {
	tests := []struct {
		name     string
		producer *fakeProducer
		wantNil  bool
		wantErr  bool
	}{
		{"winner", &fakeProducer{winner: testWinner()}, false, false},
		{"none", &fakeProducer{}, true, false},
		{"storage error", &fakeProducer{err: &repository.StorageError{Op: "upsert", Err: errors.New("locked")}}, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupManager(t, tt.producer)

			ch := env.manager.SuggestNow(context.Background())

			select {
			case r, ok := <-ch:
				if !ok {
					t.Fatal("Channel closed without a result")
				}
				if (r.Suggestion == nil) != tt.wantNil {
					t.Errorf("Expected nil suggestion=%v, got %+v", tt.wantNil, r.Suggestion)
				}
				if (r.Err != nil) != tt.wantErr {
					t.Errorf("Expected error=%v, got %v", tt.wantErr, r.Err)
				}
			case <-time.After(2 * time.Second):
				t.Fatal("SuggestNow did not deliver a result")
			}

			if _, ok := <-ch; ok {
				t.Error("Expected the channel to be closed after one result")
			}
			env.manager.Wait()
		})
	}
}

// ========================================
// Decisions
// ========================================

func TestApprove_MovesFile(t *testing.T) {
	env := setupManager(t, &fakeProducer{})
	env.suggest(t, "a.jpg", true)

	result, err := env.manager.Approve("a.jpg")
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if result.ArchivedAs != "a.jpg" {
		t.Errorf("Expected archived name a.jpg, got %q", result.ArchivedAs)
	}
	if _, err := os.Stat(filepath.Join(env.archived, "a.jpg")); err != nil {
		t.Errorf("Expected file in archive: %v", err)
	}

	photo, _ := env.repo.Get("a.jpg")
	if !photo.Approved {
		t.Error("Expected photo to be approved")
	}

	// repeated approval is a no-op on the ledger; the file is already gone
	_, err = env.manager.Approve("a.jpg")
	if !errors.Is(err, archive.ErrSourceMissing) {
		t.Errorf("Expected ErrSourceMissing on repeat, got %v", err)
	}
}

func TestApprove_MissingFileStillApproved(t *testing.T) {
	env := setupManager(t, &fakeProducer{})
	env.suggest(t, "gone.jpg", false)

	result, err := env.manager.Approve("gone.jpg")

	var fsErr *archive.FileSystemError
	if !errors.As(err, &fsErr) || !errors.Is(err, archive.ErrSourceMissing) {
		t.Fatalf("Expected FileSystemError wrapping ErrSourceMissing, got %v", err)
	}
	if result == nil || result.ArchivedAs != "" {
		t.Errorf("Expected result without archive name, got %+v", result)
	}

	photo, _ := env.repo.Get("gone.jpg")
	if !photo.Approved {
		t.Error("Approval must stay committed when the file is missing")
	}
}

func TestDecision_Rejections(t *testing.T) {
	env := setupManager(t, &fakeProducer{})
	env.suggest(t, "s.jpg", true)

	if _, err := env.manager.Approve("never.jpg"); !errors.Is(err, repository.ErrNotSuggested) {
		t.Errorf("Expected ErrNotSuggested, got %v", err)
	}

	if _, err := env.manager.Skip("s.jpg"); err != nil {
		t.Fatalf("Skip failed: %v", err)
	}
	if _, err := env.manager.Approve("s.jpg"); !errors.Is(err, repository.ErrAlreadyDecided) {
		t.Errorf("Expected ErrAlreadyDecided, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(env.photos, "s.jpg")); err != nil {
		t.Errorf("Skipped file must stay in place: %v", err)
	}

	stats, err := env.manager.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Skipped != 1 || stats.Approved != 0 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}
