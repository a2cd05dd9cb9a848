package selection

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"photocurator/internal/logger"
	"photocurator/internal/repository"
	"photocurator/internal/repository/sqlite"
	"photocurator/internal/service/analyzer"
	"photocurator/internal/service/caption"
)

// ========================================
// Test Setup Helpers
// ========================================

// fakeScorer scores by file content; unknown content is undecodable.
type fakeScorer struct {
	scores map[string]float64
	calls  int
}

func (f *fakeScorer) ComputeScore(data []byte, captured time.Time) (*analyzer.ScoreReport, error) {
	f.calls++
	score, ok := f.scores[string(data)]
	if !ok {
		return nil, &analyzer.DecodeError{Reason: "not an image"}
	}
	return &analyzer.ScoreReport{Composite: score, SeasonScore: 0.5}, nil
}

// failingRepo wraps a real repository and fails every upsert.
type failingRepo struct {
	repository.LedgerRepository
}

func (f *failingRepo) UpsertSuggested(filename string, score float64, caption string) error {
	return &repository.StorageError{Op: "upsert suggested " + filename, Err: errors.New("disk full")}
}

// racingRepo approves the listed files right after the unprocessed query,
// as if a decision landed while the pass was scoring.
type racingRepo struct {
	repository.LedgerRepository
	decide []string
}

func (r *racingRepo) QueryUnprocessed(directory string, limit int) ([]string, error) {
	names, err := r.LedgerRepository.QueryUnprocessed(directory, limit)
	if err != nil {
		return nil, err
	}
	if _, err := r.LedgerRepository.MarkApprovedBatch(r.decide); err != nil {
		return nil, err
	}
	return names, nil
}

func setupRepo(t *testing.T) *sqlite.LedgerRepository {
	t.Helper()

	db, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return sqlite.NewLedgerRepository(db)
}

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()

	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}
	}
}

func newPipeline(scorer Scorer, repo repository.LedgerRepository, opts Options) *Pipeline {
	p := NewPipeline(scorer, caption.New(caption.DefaultThresholds()), repo, logger.NewDiscard(), opts)
	p.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	return p
}

// ========================================
// Produce / ChooseBest
// ========================================

func TestProduce_PicksHighestAndPersists(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.jpg": "A", "b.jpg": "B", "c.png": "C"})

	repo := setupRepo(t)
	scorer := &fakeScorer{scores: map[string]float64{"A": 0.4, "B": 0.9, "C": 0.6}}
	p := newPipeline(scorer, repo, Options{Directory: dir})

	winner, err := p.Produce(context.Background())
	if err != nil {
		t.Fatalf("Produce failed: %v", err)
	}
	if winner == nil || winner.Filename != "b.jpg" {
		t.Fatalf("Expected b.jpg to win, got %+v", winner)
	}
	if string(winner.Data) != "B" {
		t.Errorf("Expected winner bytes to be returned, got %q", winner.Data)
	}
	if winner.Score() != 0.9 {
		t.Errorf("Expected score 0.9, got %v", winner.Score())
	}

	expectedCaption := "b.jpg | shot\n\n#photooftheday #2025"
	if winner.Caption != expectedCaption {
		t.Errorf("Expected caption %q, got %q", expectedCaption, winner.Caption)
	}

	photo, err := repo.Get("b.jpg")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if photo == nil || photo.SuggestedAt == nil {
		t.Fatalf("Expected b.jpg to be recorded as suggested, got %+v", photo)
	}
	if photo.Decided() {
		t.Error("Suggested photo should still be pending")
	}
	if photo.Score != 0.9 || photo.Caption != expectedCaption {
		t.Errorf("Unexpected ledger row: %+v", photo)
	}

	stats, _ := repo.Stats()
	if stats.Total != 1 {
		t.Errorf("Expected only the winner in the ledger, got %d rows", stats.Total)
	}
}

func TestChooseBest_TieKeepsFirstSeen(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"x.jpg": "X", "y.jpg": "Y"})

	scorer := &fakeScorer{scores: map[string]float64{"X": 0.5, "Y": 0.5}}
	p := newPipeline(scorer, setupRepo(t), Options{Directory: dir})

	tests := []struct {
		order    []string
		expected string
	}{
		{[]string{"x.jpg", "y.jpg"}, "x.jpg"},
		{[]string{"y.jpg", "x.jpg"}, "y.jpg"},
	}

	for _, tt := range tests {
		winner, err := p.ChooseBest(context.Background(), dir, tt.order)
		if err != nil {
			t.Fatalf("ChooseBest failed: %v", err)
		}
		if winner.Filename != tt.expected {
			t.Errorf("Order %v: expected %s, got %s", tt.order, tt.expected, winner.Filename)
		}
	}
}

func TestChooseBest_SkipsBadCandidates(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"bad.jpg": "corrupt", "good.jpg": "G"})

	scorer := &fakeScorer{scores: map[string]float64{"G": 0.1}}
	p := newPipeline(scorer, setupRepo(t), Options{Directory: dir})

	winner, err := p.ChooseBest(context.Background(), dir, []string{"bad.jpg", "missing.jpg", "good.jpg"})
	if err != nil {
		t.Fatalf("ChooseBest failed: %v", err)
	}
	if winner == nil || winner.Filename != "good.jpg" {
		t.Fatalf("Expected good.jpg, got %+v", winner)
	}
}

func TestChooseBest_NoSurvivors(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"bad.jpg": "corrupt"})

	repo := setupRepo(t)
	p := newPipeline(&fakeScorer{}, repo, Options{Directory: dir})

	winner, err := p.ChooseBest(context.Background(), dir, []string{"bad.jpg"})
	if err != nil {
		t.Fatalf("ChooseBest failed: %v", err)
	}
	if winner != nil {
		t.Errorf("Expected no suggestion, got %+v", winner)
	}

	stats, _ := repo.Stats()
	if stats.Total != 0 {
		t.Errorf("Expected empty ledger, got %d rows", stats.Total)
	}
}

func TestProduce_EmptyDirectory(t *testing.T) {
	scorer := &fakeScorer{}
	p := newPipeline(scorer, setupRepo(t), Options{Directory: t.TempDir()})

	winner, err := p.Produce(context.Background())
	if err != nil {
		t.Fatalf("Produce failed: %v", err)
	}
	if winner != nil {
		t.Errorf("Expected no suggestion, got %+v", winner)
	}
	if scorer.calls != 0 {
		t.Errorf("Expected no scoring calls, got %d", scorer.calls)
	}
}

func TestProduce_RespectsLimit(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.jpg": "A", "b.jpg": "B", "c.jpg": "C"})

	scorer := &fakeScorer{scores: map[string]float64{"A": 0.1, "B": 0.2, "C": 0.9}}
	p := newPipeline(scorer, setupRepo(t), Options{Directory: dir, Limit: 2})

	winner, err := p.Produce(context.Background())
	if err != nil {
		t.Fatalf("Produce failed: %v", err)
	}
	if winner.Filename != "b.jpg" {
		t.Errorf("Expected b.jpg from the first two candidates, got %s", winner.Filename)
	}
	if scorer.calls != 2 {
		t.Errorf("Expected 2 scoring calls, got %d", scorer.calls)
	}
}

func TestProduce_RepeatedPassesWithoutDecision(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.jpg": "A", "b.jpg": "B"})

	repo := setupRepo(t)
	scorer := &fakeScorer{scores: map[string]float64{"A": 0.8, "B": 0.3}}
	p := newPipeline(scorer, repo, Options{Directory: dir})

	for i := 0; i < 3; i++ {
		winner, err := p.Produce(context.Background())
		if err != nil {
			t.Fatalf("Pass %d failed: %v", i, err)
		}
		if winner.Filename != "a.jpg" {
			t.Fatalf("Pass %d: expected a.jpg, got %s", i, winner.Filename)
		}
	}

	stats, _ := repo.Stats()
	if stats.Total != 1 || stats.Pending != 1 {
		t.Errorf("Expected a single pending row, got %+v", stats)
	}

	if err := repo.SetApproved("a.jpg"); err != nil {
		t.Fatalf("SetApproved failed: %v", err)
	}

	winner, err := p.Produce(context.Background())
	if err != nil {
		t.Fatalf("Produce after approval failed: %v", err)
	}
	if winner.Filename != "b.jpg" {
		t.Errorf("Expected b.jpg after a.jpg was approved, got %s", winner.Filename)
	}

	approved, _ := repo.Get("a.jpg")
	if !approved.Approved || approved.Score != 0.8 {
		t.Errorf("Approved row should be unchanged, got %+v", approved)
	}
}

func TestChooseBest_StorageErrorAborts(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.jpg": "A"})

	repo := &failingRepo{LedgerRepository: setupRepo(t)}
	p := newPipeline(&fakeScorer{scores: map[string]float64{"A": 0.5}}, repo, Options{Directory: dir})

	winner, err := p.Produce(context.Background())
	if winner != nil {
		t.Errorf("Expected no winner on storage failure, got %+v", winner)
	}

	var storageErr *repository.StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("Expected StorageError, got %v", err)
	}
}

func TestChooseBest_DecidedDuringPass(t *testing.T) {
	tests := []struct {
		name     string
		decide   []string
		expected string
	}{
		{"winner decided falls back to runner-up", []string{"b.jpg"}, "c.png"},
		{"top two decided", []string{"b.jpg", "c.png"}, "a.jpg"},
		{"all decided", []string{"a.jpg", "b.jpg", "c.png"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFiles(t, dir, map[string]string{"a.jpg": "A", "b.jpg": "B", "c.png": "C"})

			base := setupRepo(t)
			repo := &racingRepo{LedgerRepository: base, decide: tt.decide}
			scorer := &fakeScorer{scores: map[string]float64{"A": 0.4, "B": 0.9, "C": 0.6}}
			p := newPipeline(scorer, repo, Options{Directory: dir})

			winner, err := p.Produce(context.Background())
			if err != nil {
				t.Fatalf("Produce failed: %v", err)
			}

			if tt.expected == "" {
				if winner != nil {
					t.Fatalf("Expected no winner, got %+v", winner)
				}
			} else if winner == nil || winner.Filename != tt.expected {
				t.Fatalf("Expected %s to win, got %+v", tt.expected, winner)
			}

			for _, name := range tt.decide {
				photo, _ := base.Get(name)
				if photo == nil || !photo.Approved || photo.SuggestedAt != nil {
					t.Errorf("Expected %s to stay approved and unsuggested, got %+v", name, photo)
				}
			}
		})
	}
}

func TestChooseBest_ContextCanceled(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.jpg": "A"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	scorer := &fakeScorer{scores: map[string]float64{"A": 0.5}}
	p := newPipeline(scorer, setupRepo(t), Options{Directory: dir})

	if _, err := p.ChooseBest(ctx, dir, []string{"a.jpg"}); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if scorer.calls != 0 {
		t.Errorf("Expected no scoring after cancel, got %d calls", scorer.calls)
	}
}

// ========================================
// Dedup
// ========================================

func gradientPNG(t *testing.T, tweak bool) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			v := uint8(x * 4)
			img.Set(x, y, color.RGBA{v, v, v, 255})
		}
	}
	if tweak {
		img.Set(0, 0, color.RGBA{1, 2, 3, 255})
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestChooseBest_Dedup(t *testing.T) {
	first, second := gradientPNG(t, false), gradientPNG(t, true)

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"1.png": string(first), "2.png": string(second)})

	scores := map[string]float64{string(first): 0.4, string(second): 0.7}

	tests := []struct {
		dedup    bool
		expected string
	}{
		{false, "2.png"},
		{true, "1.png"},
	}

	for _, tt := range tests {
		p := newPipeline(&fakeScorer{scores: scores}, setupRepo(t), Options{Directory: dir, Dedup: tt.dedup})

		winner, err := p.ChooseBest(context.Background(), dir, []string{"1.png", "2.png"})
		if err != nil {
			t.Fatalf("ChooseBest failed: %v", err)
		}
		if winner.Filename != tt.expected {
			t.Errorf("Dedup=%v: expected %s, got %s", tt.dedup, tt.expected, winner.Filename)
		}
	}
}

// ========================================
// EXIF
// ========================================

func TestParseEXIFDate(t *testing.T) {
	ts := time.Date(2021, 7, 4, 10, 30, 0, 0, time.Local)

	tests := []struct {
		name  string
		value any
		ok    bool
	}{
		{"string", "2021:07:04 10:30:00", true},
		{"padded string", " 2021:07:04 10:30:00 ", true},
		{"time", ts, true},
		{"zero time", time.Time{}, false},
		{"garbage", "yesterday", false},
		{"wrong type", 42, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseEXIFDate(tt.value)
			if ok != tt.ok {
				t.Fatalf("Expected ok=%v, got %v", tt.ok, ok)
			}
			if ok && !got.Equal(ts) {
				t.Errorf("Expected %v, got %v", ts, got)
			}
		})
	}
}

func TestCaptureTime_NoMetadata(t *testing.T) {
	if _, ok := captureTime(gradientPNG(t, false), "plain.png"); ok {
		t.Error("Expected no capture time for an image without EXIF")
	}
	if _, ok := captureTime([]byte("data"), "notes.txt"); ok {
		t.Error("Expected unsupported extension to report no capture time")
	}
}
