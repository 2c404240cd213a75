package booking_test

import (
	"context"
	"log/slog"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apperrors "github.com/frahmantamala/tutoring-platform/internal"
	bookingPkg "github.com/frahmantamala/tutoring-platform/internal/booking"
	"github.com/frahmantamala/tutoring-platform/internal/core/datamodel/booking"
	"github.com/frahmantamala/tutoring-platform/internal/core/datamodel/slot"
	"github.com/frahmantamala/tutoring-platform/internal/core/datamodel/user"
	"github.com/frahmantamala/tutoring-platform/internal/core/events"
)

type mockBookingRepository struct {
	slots     map[string]*slot.Slot
	bookings  map[string]*booking.Booking
	bySlot    map[string]*booking.Booking
	bookError error
}

func newMockBookingRepository() *mockBookingRepository {
	return &mockBookingRepository{
		slots:    make(map[string]*slot.Slot),
		bookings: make(map[string]*booking.Booking),
		bySlot:   make(map[string]*booking.Booking),
	}
}

func (m *mockBookingRepository) CreateSlot(ctx context.Context, s *slot.Slot) error {
	m.slots[s.ID] = s
	return nil
}

func (m *mockBookingRepository) GetSlotByID(ctx context.Context, id string) (*slot.Slot, error) {
	return m.slots[id], nil
}

func (m *mockBookingRepository) ListFreeSlotsByTutor(ctx context.Context, tutorID string) ([]*slot.Slot, error) {
	var free []*slot.Slot
	for _, s := range m.slots {
		if s.TutorID == tutorID && s.Status == slot.StatusFree {
			free = append(free, s)
		}
	}
	return free, nil
}

func (m *mockBookingRepository) GetBookingByID(ctx context.Context, id string) (*booking.Booking, error) {
	return m.bookings[id], nil
}

func (m *mockBookingRepository) GetBookingBySlotID(ctx context.Context, slotID string) (*booking.Booking, error) {
	b, ok := m.bySlot[slotID]
	if !ok || b.Status == booking.StatusCancelled {
		return nil, nil
	}
	return b, nil
}

func (m *mockBookingRepository) ListBookingsByStudent(ctx context.Context, studentID string) ([]*booking.Booking, error) {
	var list []*booking.Booking
	for _, b := range m.bookings {
		if b.StudentID == studentID {
			list = append(list, b)
		}
	}
	return list, nil
}

func (m *mockBookingRepository) Book(ctx context.Context, b *booking.Booking) error {
	if m.bookError != nil {
		return m.bookError
	}
	s, ok := m.slots[b.SlotID]
	if !ok || s.Status != slot.StatusFree {
		return apperrors.NewConflictError("The slot is already taken", apperrors.ErrCodeSlotTaken)
	}
	s.Status = slot.StatusBooked
	m.bookings[b.ID] = b
	m.bySlot[b.SlotID] = b
	return nil
}

func (m *mockBookingRepository) Cancel(ctx context.Context, bookingID, slotID string) error {
	if b, ok := m.bookings[bookingID]; ok {
		b.Status = booking.StatusCancelled
	}
	if s, ok := m.slots[slotID]; ok {
		s.Status = slot.StatusFree
	}
	return nil
}

type mockBookingUsers struct {
	users map[string]*user.User
}

func (m *mockBookingUsers) GetByID(ctx context.Context, id string) (*user.User, error) {
	return m.users[id], nil
}

type mockBookingPublisher struct {
	events []events.Event
}

func (m *mockBookingPublisher) Publish(ctx context.Context, event events.Event) error {
	m.events = append(m.events, event)
	return nil
}

var _ = Describe("BookingService", func() {
	var (
		service   *bookingPkg.Service
		mockRepo  *mockBookingRepository
		mockUsers *mockBookingUsers
		publisher *mockBookingPublisher
		ctx       context.Context

		futureDate string
		pastDate   string
	)

	addFreeSlot := func(id, tutorID, date, slotTime string) *slot.Slot {
		s := &slot.Slot{
			ID:      id,
			TutorID: tutorID,
			Date:    date,
			Time:    slotTime,
			Status:  slot.StatusFree,
		}
		mockRepo.slots[id] = s
		return s
	}

	BeforeEach(func() {
		mockRepo = newMockBookingRepository()
		mockUsers = &mockBookingUsers{users: make(map[string]*user.User)}
		publisher = &mockBookingPublisher{}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = bookingPkg.NewService(mockRepo, mockUsers, publisher, logger)
		ctx = context.Background()

		futureDate = time.Now().AddDate(0, 0, 2).Format("2006-01-02")
		pastDate = time.Now().AddDate(0, 0, -2).Format("2006-01-02")

		mockUsers.users["student-1"] = &user.User{ID: "student-1", Role: user.RoleStudent}
		mockUsers.users["tutor-1"] = &user.User{ID: "tutor-1", Role: user.RoleTutor}
	})

	Describe("CreateSlot", func() {
		It("creates a free slot in the future", func() {
			resp, err := service.CreateSlot(ctx, "tutor-1", &bookingPkg.CreateSlotRequest{
				Date: futureDate,
				Time: "15:00",
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(resp.Status).To(Equal("free"))
			Expect(mockRepo.slots).To(HaveLen(1))
		})

		It("rejects a slot in the past", func() {
			resp, err := service.CreateSlot(ctx, "tutor-1", &bookingPkg.CreateSlotRequest{
				Date: pastDate,
				Time: "15:00",
			})

			Expect(err).To(HaveOccurred())
			Expect(resp).To(BeNil())
			Expect(mockRepo.slots).To(BeEmpty())
		})
	})

	Describe("BookSlot", func() {
		BeforeEach(func() {
			addFreeSlot("slot-1", "tutor-1", futureDate, "15:00")
		})

		It("books a free slot and publishes an event", func() {
			resp, err := service.BookSlot(ctx, "student-1", "slot-1")

			Expect(err).ToNot(HaveOccurred())
			Expect(resp.Status).To(Equal("confirmed"))
			Expect(mockRepo.slots["slot-1"].Status).To(Equal(slot.StatusBooked))
			Expect(publisher.events).To(HaveLen(1))
		})

		It("rejects a slot that is already booked", func() {
			_, err := service.BookSlot(ctx, "student-1", "slot-1")
			Expect(err).ToNot(HaveOccurred())

			mockUsers.users["student-2"] = &user.User{ID: "student-2", Role: user.RoleStudent}
			resp, err := service.BookSlot(ctx, "student-2", "slot-1")

			Expect(err).To(HaveOccurred())
			Expect(resp).To(BeNil())

			appErr, ok := apperrors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(apperrors.ErrCodeSlotTaken))
		})

		It("rejects booking your own slot", func() {
			resp, err := service.BookSlot(ctx, "tutor-1", "slot-1")

			Expect(err).To(HaveOccurred())
			Expect(resp).To(BeNil())
			Expect(mockRepo.slots["slot-1"].Status).To(Equal(slot.StatusFree))
		})

		It("rejects a slot in the past", func() {
			addFreeSlot("slot-past", "tutor-1", pastDate, "15:00")

			resp, err := service.BookSlot(ctx, "student-1", "slot-past")

			Expect(err).To(HaveOccurred())
			Expect(resp).To(BeNil())
		})

		It("rejects a booker who is not a student", func() {
			mockUsers.users["tutor-2"] = &user.User{ID: "tutor-2", Role: user.RoleTutor}

			resp, err := service.BookSlot(ctx, "tutor-2", "slot-1")

			Expect(err).To(HaveOccurred())
			Expect(resp).To(BeNil())
		})

		It("surfaces a repository conflict from a lost race", func() {
			mockRepo.bookError = apperrors.NewConflictError("The slot is already taken", apperrors.ErrCodeSlotTaken)

			_, err := service.BookSlot(ctx, "student-1", "slot-1")

			appErr, ok := apperrors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(apperrors.ErrCodeSlotTaken))
		})

		It("returns not found for an unknown slot", func() {
			resp, err := service.BookSlot(ctx, "student-1", "slot-ghost")

			Expect(err).To(Equal(apperrors.ErrSlotNotFound))
			Expect(resp).To(BeNil())
		})
	})

	Describe("CancelBooking", func() {
		var bookingID string

		BeforeEach(func() {
			addFreeSlot("slot-1", "tutor-1", futureDate, "15:00")
			resp, err := service.BookSlot(ctx, "student-1", "slot-1")
			Expect(err).ToNot(HaveOccurred())
			bookingID = resp.ID
		})

		It("cancels the booking and frees the slot", func() {
			Expect(service.CancelBooking(ctx, "student-1", bookingID)).To(Succeed())

			Expect(mockRepo.bookings[bookingID].Status).To(Equal(booking.StatusCancelled))
			Expect(mockRepo.slots["slot-1"].Status).To(Equal(slot.StatusFree))
		})

		It("refuses to cancel someone else's booking", func() {
			err := service.CancelBooking(ctx, "student-2", bookingID)
			Expect(err).To(HaveOccurred())
			Expect(mockRepo.bookings[bookingID].Status).To(Equal(booking.StatusConfirmed))
		})

		It("refuses to cancel twice", func() {
			Expect(service.CancelBooking(ctx, "student-1", bookingID)).To(Succeed())

			err := service.CancelBooking(ctx, "student-1", bookingID)
			Expect(err).To(HaveOccurred())
		})

		It("returns not found for an unknown booking", func() {
			err := service.CancelBooking(ctx, "student-1", "ghost")
			Expect(err).To(Equal(apperrors.ErrBookingNotFound))
		})
	})
})
