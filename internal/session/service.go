package session

import (
	"context"
	"log/slog"

	errors "github.com/frahmantamala/tutoring-platform/internal"
	"github.com/frahmantamala/tutoring-platform/internal/core/datamodel/session"
	"github.com/frahmantamala/tutoring-platform/internal/core/datamodel/user"
	"github.com/google/uuid"
)

type RepositoryAPI interface {
	Create(ctx context.Context, s *session.Session) error
	GetByID(ctx context.Context, id string) (*session.Session, error)
	ListByUser(ctx context.Context, userID string) ([]*session.Session, error)
	UpdateStatus(ctx context.Context, id string, status session.Status) error
}

type UserAPI interface {
	GetByID(ctx context.Context, id string) (*user.User, error)
}

type Service struct {
	repo   RepositoryAPI
	users  UserAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, users UserAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		users:  users,
		logger: logger,
	}
}

// GetByID loads a session without ownership checks, for internal callers.
func (s *Service) GetByID(ctx context.Context, id string) (*session.Session, error) {
	return s.repo.GetByID(ctx, id)
}

// CreateSession schedules a session between a tutor and a student. Both
// parties must exist; the tutor must actually be a tutor.
func (s *Service) CreateSession(ctx context.Context, tutorID string, req *CreateSessionRequest) (*SessionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	tutor, err := s.users.GetByID(ctx, tutorID)
	if err != nil {
		return nil, errors.NewInternalError("failed to load tutor", err)
	}
	if tutor == nil || tutor.Role != user.RoleTutor {
		return nil, errors.NewNotFoundError("Tutor or student not found", errors.ErrCodeUserNotFound)
	}

	student, err := s.users.GetByID(ctx, req.StudentID)
	if err != nil {
		return nil, errors.NewInternalError("failed to load student", err)
	}
	if student == nil {
		return nil, errors.NewNotFoundError("Tutor or student not found", errors.ErrCodeUserNotFound)
	}

	sess := &session.Session{
		ID:        uuid.New().String(),
		TutorID:   tutorID,
		StudentID: req.StudentID,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Price:     req.Price,
		Status:    session.StatusPlanned,
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		s.logger.Error("failed to create session", "error", err, "tutor_id", tutorID)
		return nil, errors.NewInternalError("failed to create session", err)
	}

	s.logger.Info("session created",
		"session_id", sess.ID,
		"tutor_id", tutorID,
		"student_id", req.StudentID,
		"price", sess.Price.StringFixed(2))

	return toSessionResponse(sess), nil
}

// GetSession returns a session to one of its participants.
func (s *Service) GetSession(ctx context.Context, userID, sessionID string) (*SessionResponse, error) {
	sess, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, errors.NewInternalError("failed to load session", err)
	}
	if sess == nil {
		return nil, errors.ErrSessionNotFound
	}
	if sess.StudentID != userID && sess.TutorID != userID {
		return nil, errors.ErrUnauthorizedAccess
	}
	return toSessionResponse(sess), nil
}

// ListSessions returns all sessions the user participates in.
func (s *Service) ListSessions(ctx context.Context, userID string) ([]*SessionResponse, error) {
	sessions, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, errors.NewInternalError("failed to list sessions", err)
	}

	responses := make([]*SessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		responses = append(responses, toSessionResponse(sess))
	}
	return responses, nil
}

// CancelSession cancels a planned or confirmed session. Either participant
// may cancel; paid sessions keep their payment record untouched here.
func (s *Service) CancelSession(ctx context.Context, userID, sessionID string) error {
	sess, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return errors.NewInternalError("failed to load session", err)
	}
	if sess == nil {
		return errors.ErrSessionNotFound
	}
	if sess.StudentID != userID && sess.TutorID != userID {
		return errors.ErrUnauthorizedAccess
	}
	if sess.Status == session.StatusCompleted || sess.Status == session.StatusCancelled {
		return errors.NewValidationError("session cannot be cancelled", errors.ErrCodeInvalidSessionState)
	}

	if err := s.repo.UpdateStatus(ctx, sessionID, session.StatusCancelled); err != nil {
		return errors.NewInternalError("failed to cancel session", err)
	}

	s.logger.Info("session cancelled", "session_id", sessionID, "by_user", userID)
	return nil
}

// CompleteSession marks a confirmed session as held. Only the tutor may do
// this.
func (s *Service) CompleteSession(ctx context.Context, userID, sessionID string) error {
	sess, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return errors.NewInternalError("failed to load session", err)
	}
	if sess == nil {
		return errors.ErrSessionNotFound
	}
	if sess.TutorID != userID {
		return errors.ErrUnauthorizedAccess
	}
	if sess.Status != session.StatusConfirmed {
		return errors.NewValidationError("only confirmed sessions can be completed", errors.ErrCodeInvalidSessionState)
	}

	if err := s.repo.UpdateStatus(ctx, sessionID, session.StatusCompleted); err != nil {
		return errors.NewInternalError("failed to complete session", err)
	}

	s.logger.Info("session completed", "session_id", sessionID)
	return nil
}
