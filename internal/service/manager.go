package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"photocurator/internal/dto"
	"photocurator/internal/logger"
	"photocurator/internal/model"
	"photocurator/internal/repository"
	"photocurator/internal/service/archive"
	"photocurator/internal/service/caption"
	"photocurator/internal/service/selection"
	"photocurator/internal/service/thumbnail"
	"photocurator/internal/service/websocket"
)

// Producer runs one selection pass.
type Producer interface {
	Produce(ctx context.Context) (*selection.Winner, error)
}

// Manager connects selection, delivery to curator viewers and decisions.
type Manager struct {
	producer         Producer
	ledger           repository.LedgerRepository
	archiver         *archive.Archiver
	websocketService *websocket.HubService
	logger           *logger.Logger

	wg sync.WaitGroup
}

func NewManager(producer Producer, ledger repository.LedgerRepository, archiver *archive.Archiver, websocketService *websocket.HubService, logger *logger.Logger) *Manager {
	return &Manager{
		producer:         producer,
		ledger:           ledger,
		archiver:         archiver,
		websocketService: websocketService,
		logger:           logger,
	}
}

// ProduceSuggestion runs a pass and returns the suggestion, or nil when
// there is nothing to suggest. The winner is already recorded in the ledger.
func (m *Manager) ProduceSuggestion(ctx context.Context) (*dto.Suggestion, error) {
	winner, err := m.producer.Produce(ctx)
	if err != nil {
		return nil, err
	}
	if winner == nil {
		return nil, nil
	}

	return &dto.Suggestion{
		Filename: winner.Filename,
		Image:    thumbnail.OrOriginal(winner.Data),
		Caption:  winner.Caption,
		Score:    winner.Score(),
		Message:  caption.Message(winner.Filename, winner.Score(), winner.Caption),
	}, nil
}

// RunPass produces a suggestion and pushes it to viewers. Used by the scheduler,
// which logs the returned error.
func (m *Manager) RunPass(ctx context.Context) error {
	suggestion, err := m.ProduceSuggestion(ctx)
	if err != nil {
		return err
	}

	if suggestion == nil {
		m.logger.Warning("No candidate to send at this time.")
		return nil
	}

	m.SendToViewers(suggestion)
	m.logger.Info("📸 Suggestion sent: %s", suggestion.Filename)
	return nil
}

// SuggestNow runs a pass in its own goroutine. The returned channel receives
// exactly one result and is then closed.
func (m *Manager) SuggestNow(ctx context.Context) <-chan dto.SuggestResult {
	result := make(chan dto.SuggestResult, 1)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer close(result)

		suggestion, err := m.ProduceSuggestion(ctx)
		if err != nil {
			m.logger.Error("Error in on-demand suggestion: %v", err)
		} else if suggestion != nil {
			m.SendToViewers(suggestion)
		}
		result <- dto.SuggestResult{Suggestion: suggestion, Err: err}
	}()

	return result
}

// SendToViewers broadcasts suggestion JSON to every connected viewer.
func (m *Manager) SendToViewers(suggestion *dto.Suggestion) {
	msg, err := json.Marshal(suggestion)
	if err != nil {
		m.logger.Error("Failed to encode suggestion %s: %v", suggestion.Filename, err)
		return
	}

	if !m.websocketService.Broadcast(msg) {
		m.logger.Warning("Hub stopped, suggestion %s not delivered", suggestion.Filename)
	}
}

// Approve marks filename approved and moves it to the archive folder.
// A move failure is returned as *archive.FileSystemError together with the
// result; the approval stays committed.
func (m *Manager) Approve(filename string) (*dto.DecisionResult, error) {
	if err := m.ledger.SetApproved(filename); err != nil {
		return nil, err
	}

	result := &dto.DecisionResult{Filename: filename, Action: dto.ActionApprove}

	name, err := m.archiver.Move(filename)
	switch {
	case err == nil:
		result.ArchivedAs = name
		result.Message = "✅ Approved & moved to posted: " + name
	case errors.Is(err, archive.ErrSourceMissing):
		result.Message = "✅ Approved (file not found locally). Marked as posted."
	default:
		result.ArchivedAs = name
		result.Message = fmt.Sprintf("✅ Approved, but failed to move file: %v", err)
	}

	if err != nil {
		m.logger.Warning("Approved %s but archiving failed: %v", filename, err)
		return result, err
	}

	m.logger.Info("Approved %s, archived as %s", filename, name)
	return result, nil
}

// Skip marks filename skipped. The file stays where it is.
func (m *Manager) Skip(filename string) (*dto.DecisionResult, error) {
	if err := m.ledger.SetSkipped(filename); err != nil {
		return nil, err
	}

	m.logger.Info("Skipped %s", filename)
	return &dto.DecisionResult{
		Filename: filename,
		Action:   dto.ActionSkip,
		Message:  "⏭ Skipped: " + filename,
	}, nil
}

// Stats returns ledger counters.
func (m *Manager) Stats() (*model.LedgerStats, error) {
	return m.ledger.Stats()
}

func (m *Manager) GetWebsocketService() *websocket.HubService {
	return m.websocketService
}

// Wait blocks until every on-demand pass has finished.
func (m *Manager) Wait() {
	m.wg.Wait()
	m.logger.Info("🛑 All on-demand passes finished")
}
