package transaction_test

import (
	"context"
	"errors"
	"log/slog"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/shopspring/decimal"

	"github.com/frahmantamala/tutoring-platform/internal/core/datamodel/transaction"
	transactionPkg "github.com/frahmantamala/tutoring-platform/internal/transaction"
)

type mockTransactionRepository struct {
	transactions map[string]*transaction.Transaction
	byGatewayID  map[string]*transaction.Transaction
	createError  error
	getError     error
	updateError  error
}

func newMockTransactionRepository() *mockTransactionRepository {
	return &mockTransactionRepository{
		transactions: make(map[string]*transaction.Transaction),
		byGatewayID:  make(map[string]*transaction.Transaction),
	}
}

func (m *mockTransactionRepository) Create(ctx context.Context, tx *transaction.Transaction) error {
	if m.createError != nil {
		return m.createError
	}
	m.transactions[tx.ID] = tx
	return nil
}

func (m *mockTransactionRepository) GetByID(ctx context.Context, id string) (*transaction.Transaction, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	return m.transactions[id], nil
}

func (m *mockTransactionRepository) GetByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*transaction.Transaction, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	return m.byGatewayID[gatewayPaymentID], nil
}

func (m *mockTransactionRepository) SetGatewayPaymentID(ctx context.Context, id, gatewayPaymentID string) error {
	if m.updateError != nil {
		return m.updateError
	}
	tx, ok := m.transactions[id]
	if !ok {
		return errors.New("transaction not found")
	}
	tx.GatewayPaymentID = &gatewayPaymentID
	m.byGatewayID[gatewayPaymentID] = tx
	return nil
}

func (m *mockTransactionRepository) UpdateStatus(ctx context.Context, id string, status transaction.Status, errorReason *string) (bool, error) {
	if m.updateError != nil {
		return false, m.updateError
	}
	tx, ok := m.transactions[id]
	if !ok {
		return false, nil
	}
	// mirror the guarded write: terminal rows never move
	if tx.Status.IsTerminal() {
		return false, nil
	}
	tx.Status = status
	tx.ErrorReason = errorReason
	return true, nil
}

var _ = Describe("TransactionService", func() {
	var (
		service  *transactionPkg.Service
		mockRepo *mockTransactionRepository
		ctx      context.Context
	)

	BeforeEach(func() {
		mockRepo = newMockTransactionRepository()
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = transactionPkg.NewService(mockRepo, logger)
		ctx = context.Background()
	})

	Describe("NewBindTransaction", func() {
		It("builds a pending 1 RUB card binding entry", func() {
			tx := service.NewBindTransaction("user-1", "pm-1")

			Expect(tx.ID).ToNot(BeEmpty())
			Expect(tx.Type).To(Equal(transaction.TypeCardBinding))
			Expect(tx.Status).To(Equal(transaction.StatusPending))
			Expect(tx.Amount.StringFixed(2)).To(Equal("1.00"))
			Expect(*tx.PaymentMethodID).To(Equal("pm-1"))
			Expect(tx.GatewayPaymentID).To(BeNil())
		})
	})

	Describe("CreateSessionPaymentTransaction", func() {
		It("creates a pending entry with the session amount", func() {
			amount := decimal.RequireFromString("1500.00")
			tx, err := service.CreateSessionPaymentTransaction(ctx, "user-1", "pm-1", amount, "math lesson")

			Expect(err).ToNot(HaveOccurred())
			Expect(tx.Type).To(Equal(transaction.TypeSessionPayment))
			Expect(tx.Status).To(Equal(transaction.StatusPending))
			Expect(tx.Amount.Equal(amount)).To(BeTrue())
			Expect(tx.Description).To(Equal("math lesson"))
		})
	})

	Describe("UpdateStatusByGatewayPaymentID", func() {
		var tx *transaction.Transaction

		BeforeEach(func() {
			tx = service.NewBindTransaction("user-1", "pm-1")
			Expect(mockRepo.Create(ctx, tx)).To(Succeed())
			Expect(service.SetGatewayPaymentID(ctx, tx.ID, "gw-1")).To(Succeed())
		})

		Context("when the gateway reports success", func() {
			It("moves the transaction to succeeded", func() {
				updated, err := service.UpdateStatusByGatewayPaymentID(ctx, "gw-1", "succeeded", nil)

				Expect(err).ToNot(HaveOccurred())
				Expect(updated).ToNot(BeNil())
				Expect(updated.Status).To(Equal(transaction.StatusSucceeded))
			})
		})

		Context("when the gateway reports cancellation", func() {
			It("records the failure reason", func() {
				reason := "insufficient_funds"
				updated, err := service.UpdateStatusByGatewayPaymentID(ctx, "gw-1", "canceled", &reason)

				Expect(err).ToNot(HaveOccurred())
				Expect(updated.Status).To(Equal(transaction.StatusCanceled))
				Expect(*updated.ErrorReason).To(Equal("insufficient_funds"))
			})
		})

		Context("when the transaction is already terminal", func() {
			It("leaves the status unchanged", func() {
				_, err := service.UpdateStatusByGatewayPaymentID(ctx, "gw-1", "succeeded", nil)
				Expect(err).ToNot(HaveOccurred())

				updated, err := service.UpdateStatusByGatewayPaymentID(ctx, "gw-1", "canceled", nil)

				Expect(err).ToNot(HaveOccurred())
				Expect(updated.Status).To(Equal(transaction.StatusSucceeded))
			})
		})

		Context("when no transaction matches the gateway id", func() {
			It("skips without error", func() {
				updated, err := service.UpdateStatusByGatewayPaymentID(ctx, "gw-unknown", "succeeded", nil)

				Expect(err).ToNot(HaveOccurred())
				Expect(updated).To(BeNil())
			})
		})

		Context("when the gateway status is unrecognized", func() {
			It("keeps the transaction pending", func() {
				updated, err := service.UpdateStatusByGatewayPaymentID(ctx, "gw-1", "something_new", nil)

				Expect(err).ToNot(HaveOccurred())
				Expect(updated.Status).To(Equal(transaction.StatusPending))
			})
		})
	})

	Describe("MarkFailed", func() {
		It("fails a pending transaction with the given reason", func() {
			tx := service.NewBindTransaction("user-1", "pm-1")
			Expect(mockRepo.Create(ctx, tx)).To(Succeed())

			Expect(service.MarkFailed(ctx, tx.ID, "gateway unreachable")).To(Succeed())

			stored := mockRepo.transactions[tx.ID]
			Expect(stored.Status).To(Equal(transaction.StatusFailed))
			Expect(*stored.ErrorReason).To(Equal("gateway unreachable"))
		})
	})

	Describe("MapGatewayStatus", func() {
		It("maps known gateway statuses onto ledger statuses", func() {
			Expect(transactionPkg.MapGatewayStatus("succeeded")).To(Equal(transaction.StatusSucceeded))
			Expect(transactionPkg.MapGatewayStatus("canceled")).To(Equal(transaction.StatusCanceled))
			Expect(transactionPkg.MapGatewayStatus("failed")).To(Equal(transaction.StatusFailed))
			Expect(transactionPkg.MapGatewayStatus("waiting_for_capture")).To(Equal(transaction.StatusWaitingForCapture))
			Expect(transactionPkg.MapGatewayStatus("pending")).To(Equal(transaction.StatusPending))
			Expect(transactionPkg.MapGatewayStatus("whatever")).To(Equal(transaction.StatusPending))
		})
	})
})
