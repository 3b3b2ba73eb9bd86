package payments

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"membership-app/internal/domain/members"
	paydom "membership-app/internal/domain/payments"
	"membership-app/internal/infra/hubtel"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func ageCreatedAt(t *testing.T, db *gorm.DB, p paydom.Payment, age time.Duration) {
	t.Helper()
	require.NoError(t, db.Model(&paydom.Payment{}).
		Where("id = ?", p.ID).
		Update("created_at", time.Now().Add(-age)).Error)
}

func TestRecoverStalePendingCompletesOldPayments(t *testing.T) {
	db := setupDB(t)
	fp := newFakeProvider(t)
	fp.status.Store(hubtel.StatusPaid)
	m := seedMember(t, db, 201)
	receipts := countReceipts(t)

	stale := seedPendingPayment(t, db, m.ID, "REG-rec1-1234567890abcdef")
	ageCreatedAt(t, db, stale, time.Hour)

	// fresh pending payments are left alone
	seedPendingPayment(t, db, m.ID, "REG-rec2-1234567890abcdef")

	RecoverStalePending(context.Background(), 10*time.Minute)

	var recovered, fresh paydom.Payment
	require.NoError(t, db.Where("reference = ?", "REG-rec1-1234567890abcdef").First(&recovered).Error)
	require.Equal(t, paydom.StatusCompleted, recovered.Status)
	require.NoError(t, db.Where("reference = ?", "REG-rec2-1234567890abcdef").First(&fresh).Error)
	require.Equal(t, paydom.StatusPending, fresh.Status)

	var member members.Member
	require.NoError(t, db.First(&member, m.ID).Error)
	require.Equal(t, members.MembershipActive, member.MembershipStatus)
	waitReceipts(t, receipts, 1)
	require.Equal(t, int32(1), atomic.LoadInt32(&fp.statusCalls))
}

func TestRecoverStalePendingWithoutProviderConfig(t *testing.T) {
	db := setupDB(t)
	t.Setenv("HUBTEL_CLIENT_ID", "")
	t.Setenv("HUBTEL_CLIENT_SECRET", "")
	m := seedMember(t, db, 202)
	p := seedPendingPayment(t, db, m.ID, "REG-rec3-1234567890abcdef")
	ageCreatedAt(t, db, p, time.Hour)

	RecoverStalePending(context.Background(), 10*time.Minute)

	var stored paydom.Payment
	require.NoError(t, db.Where("reference = ?", p.Reference).First(&stored).Error)
	require.Equal(t, paydom.StatusPending, stored.Status)
}

func TestRecoverStalePendingHonorsCancellation(t *testing.T) {
	db := setupDB(t)
	fp := newFakeProvider(t)
	fp.status.Store(hubtel.StatusUnpaid)
	m := seedMember(t, db, 203)
	p := seedPendingPayment(t, db, m.ID, "REG-rec4-1234567890abcdef")
	ageCreatedAt(t, db, p, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	RecoverStalePending(ctx, 10*time.Minute)

	// at most the immediate verify ran before the cancelled context stopped
	// the loop
	require.LessOrEqual(t, atomic.LoadInt32(&fp.statusCalls), int32(1))
}
