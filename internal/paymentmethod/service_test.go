package paymentmethod_test

import (
	"context"
	"errors"
	"log/slog"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apperrors "github.com/frahmantamala/tutoring-platform/internal"
	gatewaytypes "github.com/frahmantamala/tutoring-platform/internal/core/datamodel/gateway"
	"github.com/frahmantamala/tutoring-platform/internal/core/datamodel/paymentmethod"
	"github.com/frahmantamala/tutoring-platform/internal/core/datamodel/transaction"
	"github.com/frahmantamala/tutoring-platform/internal/core/datamodel/user"
	"github.com/frahmantamala/tutoring-platform/internal/core/events"
	paymentmethodPkg "github.com/frahmantamala/tutoring-platform/internal/paymentmethod"
)

type mockMethodRepository struct {
	methods     map[string]*paymentmethod.PaymentMethod
	order       []string
	ledger      []*transaction.Transaction
	createError error
	getError    error
	updateError error
	deleteError error
}

func newMockMethodRepository() *mockMethodRepository {
	return &mockMethodRepository{methods: make(map[string]*paymentmethod.PaymentMethod)}
}

func (m *mockMethodRepository) CreateWithTransaction(ctx context.Context, pm *paymentmethod.PaymentMethod, tx *transaction.Transaction) error {
	if m.createError != nil {
		return m.createError
	}
	m.methods[pm.ID] = pm
	m.order = append(m.order, pm.ID)
	m.ledger = append(m.ledger, tx)
	return nil
}

func (m *mockMethodRepository) GetByID(ctx context.Context, id string) (*paymentmethod.PaymentMethod, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	return m.methods[id], nil
}

func (m *mockMethodRepository) GetByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*paymentmethod.PaymentMethod, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	for _, pm := range m.methods {
		if pm.GatewayPaymentID != nil && *pm.GatewayPaymentID == gatewayPaymentID {
			return pm, nil
		}
	}
	return nil, nil
}

func (m *mockMethodRepository) ListActiveByUser(ctx context.Context, userID string) ([]*paymentmethod.PaymentMethod, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	// newest first, like the real repo
	var active []*paymentmethod.PaymentMethod
	for i := len(m.order) - 1; i >= 0; i-- {
		pm := m.methods[m.order[i]]
		if pm.UserID == userID && pm.Status == paymentmethod.StatusActive {
			active = append(active, pm)
		}
	}
	return active, nil
}

func (m *mockMethodRepository) CountActiveByUser(ctx context.Context, userID string) (int64, error) {
	if m.getError != nil {
		return 0, m.getError
	}
	var count int64
	for _, pm := range m.methods {
		if pm.UserID == userID && pm.Status == paymentmethod.StatusActive {
			count++
		}
	}
	return count, nil
}

func (m *mockMethodRepository) Update(ctx context.Context, pm *paymentmethod.PaymentMethod) error {
	if m.updateError != nil {
		return m.updateError
	}
	m.methods[pm.ID] = pm
	return nil
}

func (m *mockMethodRepository) MarkDeleted(ctx context.Context, id string) error {
	if m.deleteError != nil {
		return m.deleteError
	}
	if pm, ok := m.methods[id]; ok {
		pm.Status = paymentmethod.StatusDeleted
	}
	return nil
}

type mockUserService struct {
	users map[string]*user.User
}

func newMockUserService() *mockUserService {
	return &mockUserService{users: make(map[string]*user.User)}
}

func (m *mockUserService) GetByID(ctx context.Context, id string) (*user.User, error) {
	return m.users[id], nil
}

func (m *mockUserService) SetDefaultPaymentMethod(ctx context.Context, userID string, paymentMethodID *string) error {
	u, ok := m.users[userID]
	if !ok {
		return errors.New("user not found")
	}
	u.DefaultPaymentMethodID = paymentMethodID
	return nil
}

type mockBindingGateway struct {
	bindingView  *gatewaytypes.PaymentView
	bindingError error
	captureView  *gatewaytypes.PaymentView
	captureError error
	bindingCalls int
	captureCalls int
}

func (m *mockBindingGateway) CreateCardBinding(ctx context.Context, userID string) (*gatewaytypes.PaymentView, error) {
	m.bindingCalls++
	if m.bindingError != nil {
		return nil, m.bindingError
	}
	return m.bindingView, nil
}

func (m *mockBindingGateway) CapturePayment(ctx context.Context, gatewayPaymentID string, amount gatewaytypes.Amount) (*gatewaytypes.PaymentView, error) {
	m.captureCalls++
	if m.captureError != nil {
		return nil, m.captureError
	}
	return m.captureView, nil
}

type mockTransactions struct {
	created       []*transaction.Transaction
	failed        map[string]string
	gatewayIDs    map[string]string
	markFailError error
}

func newMockTransactions() *mockTransactions {
	return &mockTransactions{
		failed:     make(map[string]string),
		gatewayIDs: make(map[string]string),
	}
}

func (m *mockTransactions) NewBindTransaction(userID, paymentMethodID string) *transaction.Transaction {
	tx := &transaction.Transaction{
		ID:              "tx-" + paymentMethodID,
		UserID:          userID,
		PaymentMethodID: &paymentMethodID,
		Type:            transaction.TypeCardBinding,
		Status:          transaction.StatusPending,
	}
	m.created = append(m.created, tx)
	return tx
}

func (m *mockTransactions) SetGatewayPaymentID(ctx context.Context, transactionID, gatewayPaymentID string) error {
	m.gatewayIDs[transactionID] = gatewayPaymentID
	return nil
}

func (m *mockTransactions) MarkFailed(ctx context.Context, transactionID string, reason string) error {
	if m.markFailError != nil {
		return m.markFailError
	}
	m.failed[transactionID] = reason
	return nil
}

type mockPaymentsChecker struct {
	blocked map[string]bool
	err     error
}

func (m *mockPaymentsChecker) HasBlockingPayments(ctx context.Context, paymentMethodID string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	return m.blocked[paymentMethodID], nil
}

type mockPublisher struct {
	events []events.Event
}

func (m *mockPublisher) Publish(ctx context.Context, event events.Event) error {
	m.events = append(m.events, event)
	return nil
}

var _ = Describe("PaymentMethodService", func() {
	var (
		service      *paymentmethodPkg.Service
		mockRepo     *mockMethodRepository
		mockUsers    *mockUserService
		mockGateway  *mockBindingGateway
		mockTxs      *mockTransactions
		mockChecker  *mockPaymentsChecker
		publisher    *mockPublisher
		ctx          context.Context
	)

	addActiveCard := func(userID, id string) *paymentmethod.PaymentMethod {
		gwID := "gw-" + id
		pm := &paymentmethod.PaymentMethod{
			ID:               id,
			UserID:           userID,
			Status:           paymentmethod.StatusActive,
			CardToken:        "token-" + id,
			GatewayPaymentID: &gwID,
		}
		mockRepo.methods[id] = pm
		mockRepo.order = append(mockRepo.order, id)
		return pm
	}

	BeforeEach(func() {
		mockRepo = newMockMethodRepository()
		mockUsers = newMockUserService()
		mockGateway = &mockBindingGateway{}
		mockTxs = newMockTransactions()
		mockChecker = &mockPaymentsChecker{blocked: make(map[string]bool)}
		publisher = &mockPublisher{}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = paymentmethodPkg.NewService(mockRepo, mockUsers, mockGateway, mockTxs, mockChecker, publisher, logger)
		ctx = context.Background()

		mockUsers.users["user-1"] = &user.User{ID: "user-1", Email: "user@mail.com", Role: user.RoleStudent}
	})

	Describe("AttachCard", func() {
		BeforeEach(func() {
			mockGateway.bindingView = &gatewaytypes.PaymentView{
				ID:     "gw-bind-1",
				Status: gatewaytypes.StatusPending,
				Confirmation: &gatewaytypes.Confirmation{
					ConfirmationURL: "https://yookassa.example/confirm/abc",
				},
			}
		})

		It("creates a pending method and returns the confirmation URL", func() {
			resp, err := service.AttachCard(ctx, "user-1")

			Expect(err).ToNot(HaveOccurred())
			Expect(resp.ConfirmationURL).To(Equal("https://yookassa.example/confirm/abc"))
			Expect(resp.Status).To(Equal("pending"))

			stored := mockRepo.methods[resp.PaymentMethodID]
			Expect(stored).ToNot(BeNil())
			Expect(stored.Status).To(Equal(paymentmethod.StatusPending))
			Expect(*stored.GatewayPaymentID).To(Equal("gw-bind-1"))
			Expect(stored.BindTransactionID).ToNot(BeNil())

			Expect(mockTxs.created).To(HaveLen(1))
			Expect(mockTxs.gatewayIDs).To(HaveKeyWithValue(mockTxs.created[0].ID, "gw-bind-1"))
		})

		It("persists the method and its ledger entry in the same write", func() {
			resp, err := service.AttachCard(ctx, "user-1")

			Expect(err).ToNot(HaveOccurred())
			Expect(mockRepo.ledger).To(HaveLen(1))
			Expect(*mockRepo.ledger[0].PaymentMethodID).To(Equal(resp.PaymentMethodID))
		})

		Context("when the combined insert fails", func() {
			It("aborts before calling the gateway", func() {
				mockRepo.createError = errors.New("database error")

				resp, err := service.AttachCard(ctx, "user-1")

				Expect(err).To(HaveOccurred())
				Expect(resp).To(BeNil())
				Expect(mockGateway.bindingCalls).To(BeZero())
				Expect(mockRepo.methods).To(BeEmpty())
			})
		})

		Context("when the user already has 3 active cards", func() {
			It("rejects the attach before calling the gateway", func() {
				addActiveCard("user-1", "pm-1")
				addActiveCard("user-1", "pm-2")
				addActiveCard("user-1", "pm-3")

				resp, err := service.AttachCard(ctx, "user-1")

				Expect(err).To(Equal(apperrors.ErrTooManyCards))
				Expect(resp).To(BeNil())
				Expect(mockGateway.bindingCalls).To(BeZero())
			})
		})

		Context("when the gateway call fails", func() {
			It("fails the transaction and discards the pending method", func() {
				mockGateway.bindingError = errors.New("gateway unreachable")

				resp, err := service.AttachCard(ctx, "user-1")

				Expect(err).To(HaveOccurred())
				Expect(resp).To(BeNil())

				Expect(mockTxs.created).To(HaveLen(1))
				Expect(mockTxs.failed).To(HaveKey(mockTxs.created[0].ID))

				pendingID := *mockTxs.created[0].PaymentMethodID
				Expect(mockRepo.methods[pendingID].Status).To(Equal(paymentmethod.StatusDeleted))
			})
		})

		Context("when the user does not exist", func() {
			It("returns not found", func() {
				resp, err := service.AttachCard(ctx, "ghost")

				Expect(err).To(Equal(apperrors.ErrUserNotFound))
				Expect(resp).To(BeNil())
			})
		})
	})

	Describe("HandleBindingResult", func() {
		var pending *paymentmethod.PaymentMethod

		BeforeEach(func() {
			gwID := "gw-bind-1"
			pending = &paymentmethod.PaymentMethod{
				ID:               "pm-pending",
				UserID:           "user-1",
				Status:           paymentmethod.StatusPending,
				GatewayPaymentID: &gwID,
			}
			mockRepo.methods[pending.ID] = pending
			mockRepo.order = append(mockRepo.order, pending.ID)
		})

		Context("when the binding succeeded", func() {
			successView := func() *gatewaytypes.PaymentView {
				return &gatewaytypes.PaymentView{
					ID:     "gw-bind-1",
					Status: gatewaytypes.StatusSucceeded,
					PaymentMethod: &gatewaytypes.PaymentMethodInfo{
						ID:    "card-token-1",
						Saved: true,
						Card: &gatewaytypes.Card{
							First6:      "555555",
							Last4:       "4444",
							ExpiryMonth: "12",
							ExpiryYear:  "2030",
							CardType:    "MasterCard",
						},
					},
				}
			}

			It("activates the method with the saved token and masked card", func() {
				Expect(service.HandleBindingResult(ctx, successView())).To(Succeed())

				Expect(pending.Status).To(Equal(paymentmethod.StatusActive))
				Expect(pending.CardToken).To(Equal("card-token-1"))
				Expect(pending.CardMasked).To(Equal("555555******4444"))
				Expect(*pending.CardType).To(Equal("MasterCard"))
			})

			It("makes the sole card the default and publishes an activation event", func() {
				Expect(service.HandleBindingResult(ctx, successView())).To(Succeed())

				Expect(mockUsers.users["user-1"].DefaultPaymentMethodID).ToNot(BeNil())
				Expect(*mockUsers.users["user-1"].DefaultPaymentMethodID).To(Equal("pm-pending"))
				Expect(publisher.events).To(HaveLen(1))
			})

			It("does not steal the default when another card already holds it", func() {
				existing := addActiveCard("user-1", "pm-existing")
				mockUsers.users["user-1"].DefaultPaymentMethodID = &existing.ID

				Expect(service.HandleBindingResult(ctx, successView())).To(Succeed())

				Expect(*mockUsers.users["user-1"].DefaultPaymentMethodID).To(Equal("pm-existing"))
			})

			It("is idempotent for replayed notifications", func() {
				Expect(service.HandleBindingResult(ctx, successView())).To(Succeed())
				Expect(service.HandleBindingResult(ctx, successView())).To(Succeed())

				Expect(pending.Status).To(Equal(paymentmethod.StatusActive))
				Expect(publisher.events).To(HaveLen(1))
			})
		})

		Context("when the hold is waiting for capture", func() {
			It("captures the hold and waits for the final notification", func() {
				mockGateway.captureView = &gatewaytypes.PaymentView{ID: "gw-bind-1", Status: gatewaytypes.StatusSucceeded}

				view := &gatewaytypes.PaymentView{
					ID:     "gw-bind-1",
					Status: gatewaytypes.StatusWaitingForCapture,
					Amount: gatewaytypes.Amount{Value: "1.00", Currency: "RUB"},
				}
				Expect(service.HandleBindingResult(ctx, view)).To(Succeed())

				Expect(mockGateway.captureCalls).To(Equal(1))
				Expect(pending.Status).To(Equal(paymentmethod.StatusPending))
			})
		})

		Context("when the binding was canceled", func() {
			It("discards the pending method", func() {
				view := &gatewaytypes.PaymentView{
					ID:     "gw-bind-1",
					Status: gatewaytypes.StatusCanceled,
					CancellationDetails: &gatewaytypes.CancellationDetails{
						Party:  "yoo_money",
						Reason: "3d_secure_failed",
					},
				}
				Expect(service.HandleBindingResult(ctx, view)).To(Succeed())

				Expect(pending.Status).To(Equal(paymentmethod.StatusDeleted))
			})
		})

		Context("when no method matches the gateway payment", func() {
			It("skips without error", func() {
				view := &gatewaytypes.PaymentView{ID: "gw-unknown", Status: gatewaytypes.StatusSucceeded}
				Expect(service.HandleBindingResult(ctx, view)).To(Succeed())
			})
		})
	})

	Describe("DeleteCard", func() {
		It("soft deletes a card that is not the default", func() {
			addActiveCard("user-1", "pm-1")

			resp, err := service.DeleteCard(ctx, "user-1", "pm-1")

			Expect(err).ToNot(HaveOccurred())
			Expect(resp.Deleted).To(BeTrue())
			Expect(resp.DefaultMethodCleared).To(BeFalse())
			Expect(mockRepo.methods["pm-1"].Status).To(Equal(paymentmethod.StatusDeleted))
		})

		Context("when a payment on the card is still in flight", func() {
			It("refuses the deletion", func() {
				addActiveCard("user-1", "pm-1")
				mockChecker.blocked["pm-1"] = true

				resp, err := service.DeleteCard(ctx, "user-1", "pm-1")

				Expect(err).To(Equal(apperrors.ErrCardInUse))
				Expect(resp).To(BeNil())
				Expect(mockRepo.methods["pm-1"].Status).To(Equal(paymentmethod.StatusActive))
			})
		})

		Context("when the deleted card was the default", func() {
			It("clears the default even when other cards remain", func() {
				first := addActiveCard("user-1", "pm-1")
				addActiveCard("user-1", "pm-2")
				mockUsers.users["user-1"].DefaultPaymentMethodID = &first.ID

				resp, err := service.DeleteCard(ctx, "user-1", "pm-1")

				Expect(err).ToNot(HaveOccurred())
				Expect(resp.DefaultMethodCleared).To(BeTrue())
				Expect(mockUsers.users["user-1"].DefaultPaymentMethodID).To(BeNil())
			})

			It("clears the default when no card remains", func() {
				only := addActiveCard("user-1", "pm-1")
				mockUsers.users["user-1"].DefaultPaymentMethodID = &only.ID

				resp, err := service.DeleteCard(ctx, "user-1", "pm-1")

				Expect(err).ToNot(HaveOccurred())
				Expect(resp.DefaultMethodCleared).To(BeTrue())
				Expect(mockUsers.users["user-1"].DefaultPaymentMethodID).To(BeNil())
			})
		})

		Context("when the card belongs to another user", func() {
			It("returns not found", func() {
				addActiveCard("user-2", "pm-other")
				mockUsers.users["user-2"] = &user.User{ID: "user-2"}

				resp, err := service.DeleteCard(ctx, "user-1", "pm-other")

				Expect(err).To(Equal(apperrors.ErrPaymentMethodNotFound))
				Expect(resp).To(BeNil())
			})
		})
	})

	Describe("GetDefaultCard", func() {
		It("returns the default card", func() {
			pm := addActiveCard("user-1", "pm-1")
			pm.CardMasked = "555555******4444"
			mockUsers.users["user-1"].DefaultPaymentMethodID = &pm.ID

			resp, err := service.GetDefaultCard(ctx, "user-1")

			Expect(err).ToNot(HaveOccurred())
			Expect(resp.ID).To(Equal("pm-1"))
			Expect(resp.IsDefault).To(BeTrue())
		})

		Context("when no default is set", func() {
			It("returns no default card", func() {
				_, err := service.GetDefaultCard(ctx, "user-1")
				Expect(err).To(Equal(apperrors.ErrNoDefaultCard))
			})
		})

		Context("when the default points at a deleted card", func() {
			It("clears the stale pointer and returns no default card", func() {
				pm := addActiveCard("user-1", "pm-1")
				mockUsers.users["user-1"].DefaultPaymentMethodID = &pm.ID
				pm.Status = paymentmethod.StatusDeleted

				_, err := service.GetDefaultCard(ctx, "user-1")

				Expect(err).To(Equal(apperrors.ErrNoDefaultCard))
				Expect(mockUsers.users["user-1"].DefaultPaymentMethodID).To(BeNil())
			})
		})
	})

	Describe("SetDefaultCard", func() {
		It("points the default at an active owned card", func() {
			addActiveCard("user-1", "pm-1")

			Expect(service.SetDefaultCard(ctx, "user-1", "pm-1")).To(Succeed())
			Expect(*mockUsers.users["user-1"].DefaultPaymentMethodID).To(Equal("pm-1"))
		})

		It("rejects a pending card", func() {
			gwID := "gw-x"
			mockRepo.methods["pm-x"] = &paymentmethod.PaymentMethod{
				ID: "pm-x", UserID: "user-1", Status: paymentmethod.StatusPending, GatewayPaymentID: &gwID,
			}

			err := service.SetDefaultCard(ctx, "user-1", "pm-x")
			Expect(err).To(Equal(apperrors.ErrPaymentMethodNotFound))
		})
	})
})
