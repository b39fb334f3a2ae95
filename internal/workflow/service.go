package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fieldtrack/fieldtrack/internal/history"
	"github.com/fieldtrack/fieldtrack/internal/observability"
	"github.com/fieldtrack/fieldtrack/internal/rbac"
	"github.com/fieldtrack/fieldtrack/internal/shared"
)

// RoleSource resolves the roles an actor currently holds.
type RoleSource interface {
	RolesForUser(ctx context.Context, userID int64) ([]rbac.Role, error)
}

// HistoryReader is the ledger's read surface.
type HistoryReader interface {
	ListForSession(ctx context.Context, sessionID string) ([]history.TransitionEvent, error)
}

// Event describes an applied transition for downstream fan-out.
type Event struct {
	SessionID      string `json:"session_id"`
	From           Status `json:"from"`
	To             Status `json:"to"`
	ActingUserID   int64  `json:"acting_user_id"`
	ActingUsername string `json:"acting_username"`
}

// Dispatcher fans an applied transition out to interested recipients.
// Dispatch failures never roll back the transition.
type Dispatcher interface {
	Dispatch(ctx context.Context, event Event) error
}

// TransitionRequest carries one transition attempt.
type TransitionRequest struct {
	SessionID      string
	ActorID        int64
	ActorUsername  string
	To             Status
	Note           string
}

// Service orchestrates a transition request: role resolution, validation
// against the locked status, the status write plus ledger append in one
// transaction, then best-effort notification.
type Service struct {
	repo       Repository
	roles      RoleSource
	ledger     HistoryReader
	dispatcher Dispatcher
	engine     Engine
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewService creates a new service.
func NewService(repo Repository, roles RoleSource, ledger HistoryReader, logger *slog.Logger) *Service {
	return &Service{repo: repo, roles: roles, ledger: ledger, logger: logger}
}

// SetDispatcher wires the notification dispatcher.
func (s *Service) SetDispatcher(d Dispatcher) {
	s.dispatcher = d
}

// SetMetrics wires the transition counters.
func (s *Service) SetMetrics(m *observability.Metrics) {
	s.metrics = m
}

// RequestTransition applies one status transition. Validation happens
// against the row-locked status, so two actors racing from the same
// observed status serialise: the loser revalidates against the new value
// and fails with ErrInvalidEdge or ErrTransitionDenied.
func (s *Service) RequestTransition(ctx context.Context, req TransitionRequest) (history.TransitionEvent, error) {
	if !req.To.IsValid() {
		s.observe("invalid_edge")
		return history.TransitionEvent{}, fmt.Errorf("%w: unknown status %q", ErrInvalidEdge, string(req.To))
	}

	roles, err := s.roles.RolesForUser(ctx, req.ActorID)
	if err != nil {
		s.observe("error")
		return history.TransitionEvent{}, fmt.Errorf("resolve actor roles: %w", err)
	}

	var (
		event   history.TransitionEvent
		from    Status
		applied bool
	)
	txErr := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		from, err = tx.GetStatusForUpdate(ctx, req.SessionID)
		if err != nil {
			return err
		}
		if err := s.engine.Validate(roles, from, req.To); err != nil {
			return err
		}
		if err := tx.SetStatus(ctx, req.SessionID, req.To); err != nil {
			return fmt.Errorf("set status: %w", err)
		}
		event, err = tx.AppendEvent(ctx, history.TransitionEvent{
			SessionID:     req.SessionID,
			Username:      req.ActorUsername,
			CurrentStatus: string(from),
			NewStatus:     string(req.To),
			Note:          req.Note,
		})
		if err != nil {
			return fmt.Errorf("append ledger entry: %w", err)
		}
		applied = true
		return nil
	})
	if txErr != nil {
		switch {
		case errors.Is(txErr, shared.ErrRecordNotFound):
			s.observe("not_found")
			return history.TransitionEvent{}, txErr
		case errors.Is(txErr, ErrInvalidEdge):
			s.observe("invalid_edge")
			return history.TransitionEvent{}, txErr
		case errors.Is(txErr, ErrTransitionDenied):
			s.observe("denied")
			return history.TransitionEvent{}, txErr
		}
		s.observe("error")
		if applied {
			// Both writes went through but the commit outcome is unknown.
			// Do not retry automatically; an operator must read current
			// status before anything else touches this session.
			return history.TransitionEvent{}, fmt.Errorf("%w: session %s: %v", ErrConsistency, req.SessionID, txErr)
		}
		return history.TransitionEvent{}, txErr
	}

	s.observe("applied")
	s.dispatch(ctx, Event{
		SessionID:      req.SessionID,
		From:           from,
		To:             req.To,
		ActingUserID:   req.ActorID,
		ActingUsername: req.ActorUsername,
	})
	return event, nil
}

// History returns the session's ledger entries oldest first.
func (s *Service) History(ctx context.Context, sessionID string) ([]history.TransitionEvent, error) {
	if _, err := s.repo.GetStatus(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.ledger.ListForSession(ctx, sessionID)
}

// Allowed lists the target statuses the actor may move the session to
// from its current status.
func (s *Service) Allowed(ctx context.Context, sessionID string, actorID int64) (Status, []Status, error) {
	current, err := s.repo.GetStatus(ctx, sessionID)
	if err != nil {
		return "", nil, err
	}
	roles, err := s.roles.RolesForUser(ctx, actorID)
	if err != nil {
		return "", nil, fmt.Errorf("resolve actor roles: %w", err)
	}
	return current, AllowedFrom(roles, current), nil
}

// CurrentStatus exposes the record store read used by access-level guards.
func (s *Service) CurrentStatus(ctx context.Context, sessionID string) (Status, error) {
	return s.repo.GetStatus(ctx, sessionID)
}

func (s *Service) dispatch(ctx context.Context, event Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Dispatch(ctx, event); err != nil {
		// Best effort: the transition stands whatever happens here.
		if s.logger != nil {
			s.logger.Error("dispatch status notification",
				slog.String("session_id", event.SessionID),
				slog.Any("error", err))
		}
		if s.metrics != nil {
			s.metrics.ObserveNotification("failed")
		}
		return
	}
	if s.metrics != nil {
		s.metrics.ObserveNotification("enqueued")
	}
}

func (s *Service) observe(result string) {
	if s.metrics != nil {
		s.metrics.ObserveTransition(result)
	}
}
