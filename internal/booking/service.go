package booking

import (
	"context"
	"log/slog"
	"time"

	errors "github.com/frahmantamala/tutoring-platform/internal"
	"github.com/frahmantamala/tutoring-platform/internal/core/datamodel/booking"
	"github.com/frahmantamala/tutoring-platform/internal/core/datamodel/slot"
	"github.com/frahmantamala/tutoring-platform/internal/core/datamodel/user"
	"github.com/frahmantamala/tutoring-platform/internal/core/events"
	"github.com/google/uuid"
)

type RepositoryAPI interface {
	CreateSlot(ctx context.Context, s *slot.Slot) error
	GetSlotByID(ctx context.Context, id string) (*slot.Slot, error)
	ListFreeSlotsByTutor(ctx context.Context, tutorID string) ([]*slot.Slot, error)
	GetBookingByID(ctx context.Context, id string) (*booking.Booking, error)
	GetBookingBySlotID(ctx context.Context, slotID string) (*booking.Booking, error)
	ListBookingsByStudent(ctx context.Context, studentID string) ([]*booking.Booking, error)
	Book(ctx context.Context, b *booking.Booking) error
	Cancel(ctx context.Context, bookingID, slotID string) error
}

type UserAPI interface {
	GetByID(ctx context.Context, id string) (*user.User, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type Service struct {
	repo     RepositoryAPI
	users    UserAPI
	eventBus EventPublisher
	logger   *slog.Logger
}

func NewService(repo RepositoryAPI, users UserAPI, eventBus EventPublisher, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		users:    users,
		eventBus: eventBus,
		logger:   logger,
	}
}

// CreateSlot publishes a free time slot for a tutor.
func (s *Service) CreateSlot(ctx context.Context, tutorID string, req *CreateSlotRequest) (*SlotResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	sl := &slot.Slot{
		ID:      uuid.New().String(),
		TutorID: tutorID,
		Date:    req.Date,
		Time:    req.Time,
		Status:  slot.StatusFree,
	}

	if startsAt, err := sl.StartsAt(); err != nil {
		return nil, errors.NewValidationError("invalid slot date or time", errors.ErrCodeInvalidDate)
	} else if startsAt.Before(time.Now()) {
		return nil, errors.NewValidationError("slot cannot be in the past", errors.ErrCodeInvalidDate)
	}

	if err := s.repo.CreateSlot(ctx, sl); err != nil {
		s.logger.Error("failed to create slot", "error", err, "tutor_id", tutorID)
		return nil, errors.NewInternalError("failed to create slot", err)
	}

	return toSlotResponse(sl), nil
}

// ListFreeSlots returns a tutor's open slots.
func (s *Service) ListFreeSlots(ctx context.Context, tutorID string) ([]*SlotResponse, error) {
	slots, err := s.repo.ListFreeSlotsByTutor(ctx, tutorID)
	if err != nil {
		return nil, errors.NewInternalError("failed to list slots", err)
	}

	responses := make([]*SlotResponse, 0, len(slots))
	for _, sl := range slots {
		responses = append(responses, toSlotResponse(sl))
	}
	return responses, nil
}

// BookSlot reserves a free slot for a student. The slot flip and the booking
// insert happen in one database transaction; a lost race surfaces as a
// conflict, never a double booking.
func (s *Service) BookSlot(ctx context.Context, studentID, slotID string) (*BookingResponse, error) {
	sl, err := s.repo.GetSlotByID(ctx, slotID)
	if err != nil {
		return nil, errors.NewInternalError("failed to load slot", err)
	}
	if sl == nil {
		return nil, errors.ErrSlotNotFound
	}

	if sl.Status != slot.StatusFree {
		return nil, errors.NewConflictError("The slot is already taken", errors.ErrCodeSlotTaken)
	}
	if sl.TutorID == studentID {
		return nil, errors.NewValidationError("You cannot book your own slot", errors.ErrCodeValidationFailed)
	}

	startsAt, err := sl.StartsAt()
	if err != nil {
		return nil, errors.NewInternalError("slot has invalid schedule", err)
	}
	if startsAt.Before(time.Now()) {
		return nil, errors.NewValidationError("You cannot reserve a past slot", errors.ErrCodeInvalidDate)
	}

	student, err := s.users.GetByID(ctx, studentID)
	if err != nil {
		return nil, errors.NewInternalError("failed to load student", err)
	}
	if student == nil || student.Role != user.RoleStudent {
		return nil, errors.NewNotFoundError("Student not found or user has invalid role", errors.ErrCodeUserNotFound)
	}

	existing, err := s.repo.GetBookingBySlotID(ctx, slotID)
	if err != nil {
		return nil, errors.NewInternalError("failed to check existing bookings", err)
	}
	if existing != nil {
		return nil, errors.NewConflictError("This slot is already booked", errors.ErrCodeSlotTaken)
	}

	b := &booking.Booking{
		ID:        uuid.New().String(),
		SlotID:    sl.ID,
		TutorID:   sl.TutorID,
		StudentID: studentID,
		Status:    booking.StatusConfirmed,
	}
	if err := s.repo.Book(ctx, b); err != nil {
		if appErr, ok := errors.IsAppError(err); ok {
			return nil, appErr
		}
		s.logger.Error("failed to book slot", "error", err, "slot_id", slotID, "student_id", studentID)
		return nil, errors.NewInternalError("failed to book slot", err)
	}

	s.logger.Info("slot booked",
		"booking_id", b.ID,
		"slot_id", sl.ID,
		"student_id", studentID,
		"tutor_id", sl.TutorID)

	if s.eventBus != nil {
		event := events.NewBookingCreatedEvent(b.ID, sl.ID, sl.TutorID, studentID)
		if err := s.eventBus.Publish(ctx, event); err != nil {
			s.logger.Error("failed to publish booking event", "error", err)
		}
	}

	return toBookingResponse(b, sl), nil
}

// ListBookings returns a student's bookings, newest first.
func (s *Service) ListBookings(ctx context.Context, studentID string) ([]*BookingResponse, error) {
	bookings, err := s.repo.ListBookingsByStudent(ctx, studentID)
	if err != nil {
		return nil, errors.NewInternalError("failed to list bookings", err)
	}

	responses := make([]*BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		sl, err := s.repo.GetSlotByID(ctx, b.SlotID)
		if err != nil {
			return nil, errors.NewInternalError("failed to load slot", err)
		}
		responses = append(responses, toBookingResponse(b, sl))
	}
	return responses, nil
}

// CancelBooking cancels a student's own future booking and frees the slot.
func (s *Service) CancelBooking(ctx context.Context, studentID, bookingID string) error {
	b, err := s.repo.GetBookingByID(ctx, bookingID)
	if err != nil {
		return errors.NewInternalError("failed to load booking", err)
	}
	if b == nil {
		return errors.ErrBookingNotFound
	}
	if b.StudentID != studentID {
		return errors.NewForbiddenError("You can not cancel someone else's booking", errors.ErrCodeUnauthorizedAccess)
	}
	if b.Status == booking.StatusCancelled {
		return errors.NewValidationError("Booking has already been cancelled", errors.ErrCodeValidationFailed)
	}

	sl, err := s.repo.GetSlotByID(ctx, b.SlotID)
	if err != nil {
		return errors.NewInternalError("failed to load slot", err)
	}
	if sl == nil {
		return errors.ErrSlotNotFound
	}

	startsAt, err := sl.StartsAt()
	if err == nil && startsAt.Before(time.Now()) {
		return errors.NewValidationError("It is not possible to cancel a past session", errors.ErrCodeInvalidDate)
	}

	if err := s.repo.Cancel(ctx, b.ID, sl.ID); err != nil {
		s.logger.Error("failed to cancel booking", "error", err, "booking_id", bookingID)
		return errors.NewInternalError("failed to cancel booking", err)
	}

	s.logger.Info("booking cancelled", "booking_id", bookingID, "slot_id", sl.ID)
	return nil
}
