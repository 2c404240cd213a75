package postgres

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/frahmantamala/tutoring-platform/internal"
	bookingpkg "github.com/frahmantamala/tutoring-platform/internal/booking"
	"github.com/frahmantamala/tutoring-platform/internal/core/datamodel/booking"
	"github.com/frahmantamala/tutoring-platform/internal/core/datamodel/slot"
	"gorm.io/gorm"
)

type BookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) bookingpkg.RepositoryAPI {
	return &BookingRepository{
		db: db,
	}
}

func (r *BookingRepository) CreateSlot(ctx context.Context, s *slot.Slot) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *BookingRepository) GetSlotByID(ctx context.Context, id string) (*slot.Slot, error) {
	var s slot.Slot
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *BookingRepository) ListFreeSlotsByTutor(ctx context.Context, tutorID string) ([]*slot.Slot, error) {
	var slots []*slot.Slot
	err := r.db.WithContext(ctx).
		Where("tutor_id = ? AND status = ?", tutorID, slot.StatusFree).
		Order("date ASC, time ASC").
		Find(&slots).Error
	return slots, err
}

func (r *BookingRepository) GetBookingByID(ctx context.Context, id string) (*booking.Booking, error) {
	var b booking.Booking
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&b).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

func (r *BookingRepository) GetBookingBySlotID(ctx context.Context, slotID string) (*booking.Booking, error) {
	var b booking.Booking
	err := r.db.WithContext(ctx).
		Where("slot_id = ? AND status = ?", slotID, booking.StatusConfirmed).
		First(&b).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

func (r *BookingRepository) ListBookingsByStudent(ctx context.Context, studentID string) ([]*booking.Booking, error) {
	var bookings []*booking.Booking
	err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("created_at DESC").
		Find(&bookings).Error
	return bookings, err
}

// Book flips the slot to booked and inserts the booking in one database
// transaction. The conditional update on the slot status is the race guard:
// when two students hit the same slot, the second update matches zero rows
// and the whole transaction rolls back with a conflict.
func (r *BookingRepository) Book(ctx context.Context, b *booking.Booking) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&slot.Slot{}).
			Where("id = ? AND status = ?", b.SlotID, slot.StatusFree).
			Updates(map[string]interface{}{
				"status":     slot.StatusBooked,
				"updated_at": time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperrors.NewConflictError("The slot is already taken", apperrors.ErrCodeSlotTaken)
		}

		return tx.Create(b).Error
	})
}

// Cancel marks the booking cancelled and frees its slot in one database
// transaction.
func (r *BookingRepository) Cancel(ctx context.Context, bookingID, slotID string) error {
	now := time.Now()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&booking.Booking{}).
			Where("id = ?", bookingID).
			Updates(map[string]interface{}{
				"status":     booking.StatusCancelled,
				"updated_at": now,
			}).Error; err != nil {
			return err
		}

		return tx.Model(&slot.Slot{}).
			Where("id = ?", slotID).
			Updates(map[string]interface{}{
				"status":     slot.StatusFree,
				"updated_at": now,
			}).Error
	})
}
