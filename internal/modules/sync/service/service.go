// Package service implements two-direction message synchronization.
// Forward passes always start at offset zero so new messages are never
// missed; backward passes walk into history from a persisted cursor and
// survive interruption.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"

	ingestdomain "github.com/reshetovitsme/telegram-pulse/internal/modules/ingestion/domain"
	"github.com/reshetovitsme/telegram-pulse/internal/modules/sync/domain"
	"github.com/reshetovitsme/telegram-pulse/internal/modules/sync/repository"
)

// Ingestor runs one ingestion batch.
type Ingestor interface {
	IngestBatch(ctx context.Context, limit, offset int, useCache, updateExisting bool) (*ingestdomain.BatchStats, error)
}

// Service drives forward and backward sync passes over the ingestor.
type Service struct {
	states     repository.Repository
	ingestor   Ingestor
	batchSize  int
	maxBatches int
	logger     *slog.Logger
}

// New creates the sync service. batchSize and maxBatches are the defaults
// applied when a run does not specify its own; maxBatches zero means
// unlimited.
func New(states repository.Repository, ingestor Ingestor, batchSize, maxBatches int, logger *slog.Logger) *Service {
	return &Service{
		states:     states,
		ingestor:   ingestor,
		batchSize:  batchSize,
		maxBatches: maxBatches,
		logger:     logger,
	}
}

// resolve applies the configured defaults to per-run overrides. Zero or
// negative values mean "use the default".
func (s *Service) resolve(batchSize, maxBatches int) (int, int) {
	if batchSize <= 0 {
		batchSize = s.batchSize
	}
	if maxBatches <= 0 {
		maxBatches = s.maxBatches
	}
	return batchSize, maxBatches
}

// SyncNew pulls new messages, always starting from offset zero and paging
// forward while whole pages keep yielding inserts. The forward cursor ends
// up at the depth reached, which later seeds the first backward pass.
// batchSize and maxBatches override the configured defaults when positive.
func (s *Service) SyncNew(ctx context.Context, batchSize, maxBatches int) (*domain.Result, error) {
	batchSize, maxBatches = s.resolve(batchSize, maxBatches)
	state, err := s.states.GetOrCreate(ctx, domain.DirectionForward)
	if err != nil {
		return nil, oops.Wrap(err)
	}
	if state.IsRunning {
		return &domain.Result{Status: domain.StatusAlreadyRunning, Direction: domain.DirectionForward}, nil
	}
	if err := s.markRunning(ctx, state); err != nil {
		return nil, err
	}

	result := &domain.Result{Status: domain.StatusSuccess, Direction: domain.DirectionForward}
	offset := 0

	for {
		if maxBatches > 0 && result.BatchesProcessed >= maxBatches {
			s.logger.Info("forward sync reached batch limit", slog.Int("max_batches", maxBatches))
			break
		}

		batch, err := s.ingestor.IngestBatch(ctx, batchSize, offset, true, true)
		if err != nil {
			s.fail(ctx, state, err)
			return nil, oops.With("direction", "forward", "offset", offset).Wrap(err)
		}
		result.NewMessages += int64(batch.MessagesInserted)
		result.UpdatedMessages += int64(batch.MessagesUpdated)
		result.BatchesProcessed++

		if batch.MessagesInserted == 0 {
			s.logger.Info("no new messages")
			break
		}
		if batch.MessagesProcessed < batchSize {
			s.logger.Info("reached end of new messages")
			break
		}
		offset += batchSize
	}

	state.MessagesSynced += result.NewMessages
	state.CurrentOffset = offset
	state.IsRunning = false
	state.IsCompleted = result.NewMessages == 0
	state.LastError = nil
	if err := s.states.Update(ctx, state); err != nil {
		return nil, oops.Wrap(err)
	}

	result.CurrentOffset = offset
	result.TotalSynced = state.MessagesSynced
	result.IsCompleted = state.IsCompleted
	s.logger.Info("forward sync complete",
		slog.Int64("new_messages", result.NewMessages),
		slog.Int64("updated_messages", result.UpdatedMessages),
		slog.Int("batches", result.BatchesProcessed),
	)
	return result, nil
}

// SyncHistorical walks backward into history. It waits while a forward pass
// is running, resumes from its own persisted cursor, and is seeded from the
// forward cursor on its very first pass after forward completion. The
// cursor is persisted after every full page so an interrupted pass resumes
// where it stopped. A short page marks history complete. batchSize and
// maxBatches override the configured defaults when positive.
func (s *Service) SyncHistorical(ctx context.Context, batchSize, maxBatches int) (*domain.Result, error) {
	batchSize, maxBatches = s.resolve(batchSize, maxBatches)
	state, err := s.states.GetOrCreate(ctx, domain.DirectionBackward)
	if err != nil {
		return nil, oops.Wrap(err)
	}
	if state.IsRunning {
		return &domain.Result{Status: domain.StatusAlreadyRunning, Direction: domain.DirectionBackward}, nil
	}

	forward, err := s.states.GetOrCreate(ctx, domain.DirectionForward)
	if err != nil {
		return nil, oops.Wrap(err)
	}
	if forward.IsRunning {
		return &domain.Result{Status: domain.StatusWaiting, Direction: domain.DirectionBackward}, nil
	}

	if err := s.markRunning(ctx, state); err != nil {
		return nil, err
	}

	offset := state.CurrentOffset
	if forward.IsCompleted && state.CurrentOffset == 0 {
		offset = forward.CurrentOffset
	}

	result := &domain.Result{Status: domain.StatusSuccess, Direction: domain.DirectionBackward}

	for {
		if maxBatches > 0 && result.BatchesProcessed >= maxBatches {
			s.logger.Info("backward sync reached batch limit", slog.Int("max_batches", maxBatches))
			break
		}

		batch, err := s.ingestor.IngestBatch(ctx, batchSize, offset, true, true)
		if err != nil {
			s.fail(ctx, state, err)
			return nil, oops.With("direction", "backward", "offset", offset).Wrap(err)
		}
		result.NewMessages += int64(batch.MessagesInserted)
		result.UpdatedMessages += int64(batch.MessagesUpdated)
		result.BatchesProcessed++

		if batch.MessagesProcessed < batchSize {
			s.logger.Info("reached end of history")
			state.IsCompleted = true
			break
		}

		offset += batchSize
		state.CurrentOffset = offset
		if err := s.states.Update(ctx, state); err != nil {
			return nil, oops.Wrap(err)
		}
	}

	state.MessagesSynced += result.NewMessages
	state.CurrentOffset = offset
	state.IsRunning = false
	state.LastError = nil
	if err := s.states.Update(ctx, state); err != nil {
		return nil, oops.Wrap(err)
	}

	result.CurrentOffset = offset
	result.TotalSynced = state.MessagesSynced
	result.IsCompleted = state.IsCompleted
	s.logger.Info("backward sync complete",
		slog.Int64("new_messages", result.NewMessages),
		slog.Int("batches", result.BatchesProcessed),
		slog.Int("offset", offset),
		slog.Bool("completed", state.IsCompleted),
	)
	return result, nil
}

// AutoSync runs a forward pass followed by a backward pass. maxBatches caps
// each direction independently.
func (s *Service) AutoSync(ctx context.Context, batchSize, maxBatches int) (*domain.AutoResult, error) {
	forward, err := s.SyncNew(ctx, batchSize, maxBatches)
	if err != nil {
		return nil, err
	}
	backward, err := s.SyncHistorical(ctx, batchSize, maxBatches)
	if err != nil {
		return nil, err
	}
	return &domain.AutoResult{
		Status:           domain.StatusSuccess,
		Forward:          forward,
		Backward:         backward,
		TotalNewMessages: forward.NewMessages + backward.NewMessages,
	}, nil
}

// Status reports both direction cursors.
func (s *Service) Status(ctx context.Context) (*domain.StatusReport, error) {
	forward, err := s.states.GetOrCreate(ctx, domain.DirectionForward)
	if err != nil {
		return nil, oops.Wrap(err)
	}
	backward, err := s.states.GetOrCreate(ctx, domain.DirectionBackward)
	if err != nil {
		return nil, oops.Wrap(err)
	}
	return &domain.StatusReport{
		Forward:  directionState(forward),
		Backward: directionState(backward),
	}, nil
}

// Reset zeroes one direction's cursor, or both when direction is empty.
func (s *Service) Reset(ctx context.Context, direction domain.Direction) error {
	if direction != "" && !direction.IsValid() {
		return oops.With("direction", direction).Errorf("unknown sync direction")
	}
	return s.states.Reset(ctx, direction)
}

func (s *Service) markRunning(ctx context.Context, state *domain.State) error {
	now := time.Now().UTC()
	state.IsRunning = true
	state.LastSyncAt = &now
	return oops.Wrap(s.states.Update(ctx, state))
}

// fail releases the running flag and records the error. The update itself
// failing is only logged; the original error is what the caller gets.
func (s *Service) fail(ctx context.Context, state *domain.State, cause error) {
	msg := cause.Error()
	state.IsRunning = false
	state.LastError = &msg
	if err := s.states.Update(ctx, state); err != nil {
		s.logger.Error("failed to record sync error",
			slog.String("direction", state.Direction.String()),
			slog.Any("error", err),
		)
	}
}

func directionState(state *domain.State) domain.DirectionState {
	return domain.DirectionState{
		IsRunning:      state.IsRunning,
		IsCompleted:    state.IsCompleted,
		MessagesSynced: state.MessagesSynced,
		CurrentOffset:  state.CurrentOffset,
		LastSyncAt:     state.LastSyncAt,
		LastError:      state.LastError,
	}
}
