package payments

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"membership-app/database"
	"membership-app/internal/domain/fees"
	"membership-app/internal/domain/members"
	paydom "membership-app/internal/domain/payments"
	"membership-app/internal/infra/hubtel"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Per-test in-memory database; one connection so concurrent callers
	// serialize on the driver, not on sqlite lock errors.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&members.Member{},
		&members.VerificationToken{},
		&fees.FeeType{},
		&paydom.Payment{},
	))
	database.DB = db
	return db
}

func seedMember(t *testing.T, db *gorm.DB, id uint) members.Member {
	t.Helper()
	m := members.Member{
		ID:               id,
		Name:             "Ama",
		Lastname:         "Mensah",
		Email:            fmt.Sprintf("member%d@example.com", id),
		Role:             "member",
		IsVerified:       true,
		MembershipStatus: members.MembershipNone,
	}
	require.NoError(t, db.Create(&m).Error)
	return m
}

func seedPendingPayment(t *testing.T, db *gorm.DB, memberID uint, reference string) paydom.Payment {
	t.Helper()
	token := "cb-token-" + reference
	p := paydom.Payment{
		MemberID:      memberID,
		Reference:     reference,
		Amount:        5,
		PaymentType:   "registration_fee",
		Status:        paydom.StatusPending,
		CallbackToken: &token,
		Notes:         "seeded",
	}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func countReceipts(t *testing.T) *int32 {
	t.Helper()
	var n int32
	prev := receiptSender
	receiptSender = func(to, name, reference string, amount float64, date time.Time) error {
		atomic.AddInt32(&n, 1)
		return nil
	}
	t.Cleanup(func() { receiptSender = prev })
	return &n
}

// the receipt goroutine is fire-and-forget, so assertions wait for it
func waitReceipts(t *testing.T, n *int32, want int32) {
	t.Helper()
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(n) == want
	}, 2*time.Second, 10*time.Millisecond)
}

func stillReceipts(t *testing.T, n *int32, want int32) {
	t.Helper()
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, want, atomic.LoadInt32(n))
}

func paidResult() *hubtel.StatusResult {
	return &hubtel.StatusResult{
		Status:        hubtel.StatusPaid,
		TransactionID: "tx-1",
		Amount:        5,
		PaymentMethod: "mobilemoney",
	}
}

func TestApplyCompletesAndActivatesMembership(t *testing.T) {
	db := setupDB(t)
	m := seedMember(t, db, 1)
	p := seedPendingPayment(t, db, m.ID, "REG-test-1234567890abcdef")
	receipts := countReceipts(t)

	status, err := Apply(db, &p, paidResult())
	require.NoError(t, err)
	require.Equal(t, paydom.StatusCompleted, status)

	var stored paydom.Payment
	require.NoError(t, db.Where("reference = ?", p.Reference).First(&stored).Error)
	require.Equal(t, paydom.StatusCompleted, stored.Status)
	require.NotNil(t, stored.PaymentDate)
	require.Nil(t, stored.CallbackToken, "one-time token must be cleared")
	require.Equal(t, "mobilemoney", stored.PaymentMethod)
	require.NotNil(t, stored.TransactionID)
	require.Equal(t, "tx-1", *stored.TransactionID)

	var member members.Member
	require.NoError(t, db.First(&member, m.ID).Error)
	require.Equal(t, members.MembershipActive, member.MembershipStatus)
	require.NotNil(t, member.MembershipStartDate)
	require.NotNil(t, member.MembershipExpiryDate)
	wantExpiry := time.Now().AddDate(1, 0, 0)
	require.WithinDuration(t, wantExpiry, *member.MembershipExpiryDate, time.Minute)

	waitReceipts(t, receipts, 1)
}

func TestApplyIsIdempotent(t *testing.T) {
	db := setupDB(t)
	m := seedMember(t, db, 1)
	p := seedPendingPayment(t, db, m.ID, "REG-test-1234567890abcdef")
	receipts := countReceipts(t)

	_, err := Apply(db, &p, paidResult())
	require.NoError(t, err)
	waitReceipts(t, receipts, 1)

	var first paydom.Payment
	require.NoError(t, db.Where("reference = ?", p.Reference).First(&first).Error)

	// same terminal determination again, fresh copy of the row
	again := first
	status, err := Apply(db, &again, paidResult())
	require.NoError(t, err)
	require.Equal(t, paydom.StatusCompleted, status)

	var second paydom.Payment
	require.NoError(t, db.Where("reference = ?", p.Reference).First(&second).Error)
	require.Equal(t, first, second, "row must be untouched by the second apply")
	stillReceipts(t, receipts, 1)
}

func TestApplyStaleCopyCannotDoubleFire(t *testing.T) {
	db := setupDB(t)
	m := seedMember(t, db, 1)
	p := seedPendingPayment(t, db, m.ID, "REG-test-1234567890abcdef")
	receipts := countReceipts(t)

	// p was loaded before another path completed the payment
	stale := p
	_, err := Apply(db, &p, paidResult())
	require.NoError(t, err)
	waitReceipts(t, receipts, 1)

	status, err := Apply(db, &stale, paidResult())
	require.NoError(t, err)
	require.Equal(t, paydom.StatusCompleted, status, "loser still reports the stored terminal state")
	stillReceipts(t, receipts, 1)
}

func TestApplyNeverDowngradesTerminalState(t *testing.T) {
	db := setupDB(t)
	m := seedMember(t, db, 1)
	p := seedPendingPayment(t, db, m.ID, "REG-test-1234567890abcdef")
	receipts := countReceipts(t)

	_, err := Apply(db, &p, paidResult())
	require.NoError(t, err)
	waitReceipts(t, receipts, 1)

	// provider now claims a refund; stale pending copy tries to apply it
	stale := paydom.Payment{ID: p.ID, MemberID: m.ID, Reference: p.Reference, Status: paydom.StatusPending}
	status, err := Apply(db, &stale, &hubtel.StatusResult{Status: hubtel.StatusRefunded})
	require.NoError(t, err)
	require.Equal(t, paydom.StatusCompleted, status)

	var stored paydom.Payment
	require.NoError(t, db.Where("reference = ?", p.Reference).First(&stored).Error)
	require.Equal(t, paydom.StatusCompleted, stored.Status)
}

func TestApplyAmbiguousStatusStaysPending(t *testing.T) {
	db := setupDB(t)
	m := seedMember(t, db, 1)
	p := seedPendingPayment(t, db, m.ID, "REG-test-1234567890abcdef")
	receipts := countReceipts(t)

	for _, providerStatus := range []string{hubtel.StatusUnknown, hubtel.StatusUnpaid, "", "Pending Authorization"} {
		status, err := Apply(db, &p, &hubtel.StatusResult{Status: providerStatus})
		require.NoError(t, err)
		require.Equal(t, paydom.StatusPending, status, "provider status %q", providerStatus)
	}

	var stored paydom.Payment
	require.NoError(t, db.Where("reference = ?", p.Reference).First(&stored).Error)
	require.Equal(t, paydom.StatusPending, stored.Status)
	require.NotNil(t, stored.CallbackToken)
	stillReceipts(t, receipts, 0)
}

func TestApplyRefundedMapsToFailedWithoutSideEffects(t *testing.T) {
	db := setupDB(t)
	m := seedMember(t, db, 1)
	p := seedPendingPayment(t, db, m.ID, "REG-test-1234567890abcdef")
	receipts := countReceipts(t)

	status, err := Apply(db, &p, &hubtel.StatusResult{Status: hubtel.StatusRefunded})
	require.NoError(t, err)
	require.Equal(t, paydom.StatusFailed, status)

	var member members.Member
	require.NoError(t, db.First(&member, m.ID).Error)
	require.Equal(t, members.MembershipNone, member.MembershipStatus)
	stillReceipts(t, receipts, 0)
}

func TestApplyLedgerWriteFailureIsRetriable(t *testing.T) {
	db := setupDB(t)
	m := seedMember(t, db, 301)
	p := seedPendingPayment(t, db, m.ID, "REG-lwf1-1234567890abcdef")
	receipts := countReceipts(t)

	// break the ledger underneath the provider-confirmed completion
	require.NoError(t, db.Migrator().DropTable(&paydom.Payment{}))

	status, err := Apply(db, &p, paidResult())
	require.ErrorIs(t, err, ErrLedgerWrite)
	require.Equal(t, paydom.StatusPending, status)
	require.Equal(t, paydom.StatusPending, p.Status)

	// no side effect may fire before the transition is recorded
	stillReceipts(t, receipts, 0)
	var member members.Member
	require.NoError(t, db.First(&member, m.ID).Error)
	require.Equal(t, members.MembershipNone, member.MembershipStatus)

	// once the ledger is back, the same transition runs to completion
	require.NoError(t, db.AutoMigrate(&paydom.Payment{}))
	restored := seedPendingPayment(t, db, m.ID, "REG-lwf1-1234567890abcdef")

	status, err = Apply(db, &restored, paidResult())
	require.NoError(t, err)
	require.Equal(t, paydom.StatusCompleted, status)
	waitReceipts(t, receipts, 1)
	require.NoError(t, db.First(&member, m.ID).Error)
	require.Equal(t, members.MembershipActive, member.MembershipStatus)
}

func TestApplyConcurrentVerifies(t *testing.T) {
	db := setupDB(t)
	m := seedMember(t, db, 1)
	p := seedPendingPayment(t, db, m.ID, "REG-test-1234567890abcdef")
	receipts := countReceipts(t)

	// both callers loaded the pending row, both get Paid from the provider
	copyA := p
	copyB := p

	var wg sync.WaitGroup
	results := make([]string, 2)
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		results[0], errs[0] = Apply(db, &copyA, paidResult())
	}()
	go func() {
		defer wg.Done()
		results[1], errs[1] = Apply(db, &copyB, paidResult())
	}()
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	require.Equal(t, paydom.StatusCompleted, results[0])
	require.Equal(t, paydom.StatusCompleted, results[1])
	waitReceipts(t, receipts, 1)
	stillReceipts(t, receipts, 1)

	var member members.Member
	require.NoError(t, db.First(&member, m.ID).Error)
	require.Equal(t, members.MembershipActive, member.MembershipStatus)
}
