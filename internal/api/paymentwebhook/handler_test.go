package paymentwebhook

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"membership-app/database"
	"membership-app/internal/domain/fees"
	"membership-app/internal/domain/members"
	paydom "membership-app/internal/domain/payments"
	"membership-app/internal/infra/hubtel"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
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

func seedPayment(t *testing.T, db *gorm.DB, reference, token string) paydom.Payment {
	t.Helper()
	m := members.Member{
		Name:             "Ama",
		Lastname:         "Mensah",
		Email:            reference + "@example.com",
		Role:             "member",
		IsVerified:       true,
		MembershipStatus: members.MembershipNone,
	}
	require.NoError(t, db.Create(&m).Error)

	p := paydom.Payment{
		MemberID:    m.ID,
		Reference:   reference,
		Amount:      5,
		PaymentType: "registration_fee",
		Status:      paydom.StatusPending,
		Notes:       "seeded",
	}
	if token != "" {
		p.CallbackToken = &token
	}
	require.NoError(t, db.Create(&p).Error)
	return p
}

// fakeStatusProvider answers the status query with a fixed provider
// status and counts how often it is consulted.
func fakeStatusProvider(t *testing.T, status string) *int32 {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		body, _ := json.Marshal(map[string]interface{}{
			"status": "Success",
			"data": map[string]interface{}{
				"status":        status,
				"transactionId": "tx-cb",
				"amount":        5,
				"paymentMethod": "mobilemoney",
			},
		})
		w.Write(body)
	}))
	t.Cleanup(srv.Close)

	t.Setenv("HUBTEL_BASE_URL", srv.URL)
	t.Setenv("HUBTEL_CLIENT_ID", "test-id")
	t.Setenv("HUBTEL_CLIENT_SECRET", "test-secret")
	return &calls
}

func callbackRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/webhook/payments", PaymentCallback)
	return r
}

func postCallback(r *gin.Engine, query string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/webhook/payments"+query, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeAck(t *testing.T, w *httptest.ResponseRecorder) (success bool, status string) {
	t.Helper()
	var resp struct {
		Success bool   `json:"success"`
		Status  string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Success, resp.Status
}

func TestCallbackCompletesPaymentViaRederivation(t *testing.T) {
	db := setupDB(t)
	calls := fakeStatusProvider(t, hubtel.StatusPaid)
	r := callbackRouter()
	p := seedPayment(t, db, "REG-cb01-1234567890abcdef", "tok-cb01")

	w := postCallback(r, "?reference="+p.Reference+"&token=tok-cb01",
		`{"ResponseCode":"0000","Data":{"ClientReference":"`+p.Reference+`","Status":"Paid"}}`)
	require.Equal(t, http.StatusOK, w.Code)
	success, status := decodeAck(t, w)
	require.True(t, success)
	require.Equal(t, paydom.StatusCompleted, status)
	require.Equal(t, int32(1), atomic.LoadInt32(calls))

	var stored paydom.Payment
	require.NoError(t, db.Where("reference = ?", p.Reference).First(&stored).Error)
	require.Equal(t, paydom.StatusCompleted, stored.Status)
	require.Nil(t, stored.CallbackToken)
	require.Contains(t, stored.Notes, "provider callback received")
	require.Contains(t, stored.Notes, "claimed Paid")

	var member members.Member
	require.NoError(t, db.First(&member, stored.MemberID).Error)
	require.Equal(t, members.MembershipActive, member.MembershipStatus)
}

// The callback body claims Paid but the provider says Unpaid: the body
// must be ignored and the payment must stay pending.
func TestCallbackClaimedStatusIsIgnored(t *testing.T) {
	db := setupDB(t)
	calls := fakeStatusProvider(t, hubtel.StatusUnpaid)
	r := callbackRouter()
	p := seedPayment(t, db, "REG-cb02-1234567890abcdef", "tok-cb02")

	w := postCallback(r, "?reference="+p.Reference+"&token=tok-cb02",
		`{"Data":{"ClientReference":"`+p.Reference+`","Status":"Paid"}}`)
	require.Equal(t, http.StatusOK, w.Code)
	success, status := decodeAck(t, w)
	require.True(t, success)
	require.Equal(t, paydom.StatusPending, status)
	require.Equal(t, int32(1), atomic.LoadInt32(calls))

	var stored paydom.Payment
	require.NoError(t, db.Where("reference = ?", p.Reference).First(&stored).Error)
	require.Equal(t, paydom.StatusPending, stored.Status)

	var member members.Member
	require.NoError(t, db.First(&member, stored.MemberID).Error)
	require.Equal(t, members.MembershipNone, member.MembershipStatus)
}

func TestCallbackUnknownReference(t *testing.T) {
	setupDB(t)
	calls := fakeStatusProvider(t, hubtel.StatusPaid)
	r := callbackRouter()

	w := postCallback(r, "?reference=REG-none-1234567890abcdef", `{}`)
	require.Equal(t, http.StatusOK, w.Code, "callbacks are always acknowledged")
	success, _ := decodeAck(t, w)
	require.False(t, success)
	require.Zero(t, atomic.LoadInt32(calls))
}

func TestCallbackTokenMismatch(t *testing.T) {
	db := setupDB(t)
	calls := fakeStatusProvider(t, hubtel.StatusPaid)
	r := callbackRouter()
	p := seedPayment(t, db, "REG-cb03-1234567890abcdef", "tok-cb03")

	w := postCallback(r, "?reference="+p.Reference+"&token=wrong", `{}`)
	require.Equal(t, http.StatusOK, w.Code)
	success, _ := decodeAck(t, w)
	require.False(t, success)
	require.Zero(t, atomic.LoadInt32(calls), "mismatched token must not reach the provider")

	var stored paydom.Payment
	require.NoError(t, db.Where("reference = ?", p.Reference).First(&stored).Error)
	require.Equal(t, paydom.StatusPending, stored.Status)
	// receipt is still recorded for the audit trail
	require.Contains(t, stored.Notes, "provider callback received")
}

func TestCallbackReferenceFromBody(t *testing.T) {
	db := setupDB(t)
	fakeStatusProvider(t, hubtel.StatusPaid)
	r := callbackRouter()
	p := seedPayment(t, db, "REG-cb04-1234567890abcdef", "")

	w := postCallback(r, "", `{"Data":{"ClientReference":"`+p.Reference+`"}}`)
	require.Equal(t, http.StatusOK, w.Code)
	success, status := decodeAck(t, w)
	require.True(t, success)
	require.Equal(t, paydom.StatusCompleted, status)
}

func TestCallbackTerminalPaymentShortCircuits(t *testing.T) {
	db := setupDB(t)
	calls := fakeStatusProvider(t, hubtel.StatusPaid)
	r := callbackRouter()
	p := seedPayment(t, db, "REG-cb05-1234567890abcdef", "")
	now := time.Now()
	require.NoError(t, db.Model(&p).Updates(map[string]interface{}{
		"status":       paydom.StatusCompleted,
		"payment_date": now,
	}).Error)

	w := postCallback(r, "?reference="+url.QueryEscape(p.Reference), `{}`)
	require.Equal(t, http.StatusOK, w.Code)
	success, status := decodeAck(t, w)
	require.True(t, success)
	require.Equal(t, paydom.StatusCompleted, status)
	require.Zero(t, atomic.LoadInt32(calls))
}

func TestCallbackMissingReference(t *testing.T) {
	setupDB(t)
	r := callbackRouter()

	w := postCallback(r, "", `{"ResponseCode":"0000"}`)
	require.Equal(t, http.StatusOK, w.Code)
	success, _ := decodeAck(t, w)
	require.False(t, success)
}
