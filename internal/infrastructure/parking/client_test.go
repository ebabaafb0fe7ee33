package parking

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frontandrew/parklane/internal/domain"
	"github.com/frontandrew/parklane/internal/pkg/credential"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPClient(srv.URL, credential.New("test-token")), srv
}

func TestClient_Capture(t *testing.T) {
	cases := []struct {
		name     string
		response map[string]string
		kind     domain.DetectionKind
		plate    string
	}{
		{
			name:     "recognized plate",
			response: map[string]string{"plate": "CAV-8537", "type_code": "CAR", "spot_label": "A-12"},
			kind:     domain.DetectionPlate,
			plate:    "CAV-8537",
		},
		{
			name:     "unknown plate",
			response: map[string]string{"plate": "UNKNOWN", "message": "no plate found"},
			kind:     domain.DetectionNone,
		},
		{
			name:     "duplicate vehicle",
			response: map[string]string{"plate": "DUPLICATE", "message": "vehicle already inside"},
			kind:     domain.DetectionDuplicate,
		},
		{
			name:     "empty plate treated as miss",
			response: map[string]string{"plate": ""},
			kind:     domain.DetectionNone,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/camera/camera1/capture", r.URL.Path)
				assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

				require.NoError(t, r.ParseMultipartForm(1<<20))
				file, header, err := r.FormFile("file")
				require.NoError(t, err)
				defer file.Close()
				assert.Equal(t, "capture.jpg", header.Filename)

				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(tc.response)
			})

			det, err := client.Capture(context.Background(), "camera1", []byte{0xff, 0xd8, 0xff, 0xd9})
			require.NoError(t, err)
			assert.Equal(t, tc.kind, det.Kind)
			assert.Equal(t, tc.plate, det.Plate)
		})
	}
}

func TestClient_CreateEntrySession(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/entry/create-session", r.URL.Path)

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "CAV-8537", req["plate"], "номер уходит в верхнем регистре")

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"session_id": 42,
			"plate":      "CAV-8537",
			"type_code":  "CAR",
			"spot_label": "A-12",
			"entry_time": "2026-08-30T10:15:00",
			"qr_token":   "exit-token-42",
		})
	})

	session, err := client.CreateEntrySession(context.Background(), "cav-8537", "CAR", "A-12")
	require.NoError(t, err)
	assert.Equal(t, int64(42), session.SessionID)
	assert.Equal(t, "exit-token-42", session.QRToken)
	assert.Equal(t, 2026, session.EntryTime.Year())
}

func TestClient_PayPayloadShape(t *testing.T) {
	t.Run("cash carries cashier", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/payments/cash", r.URL.Path)

			var req map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "operator-1", req["cashier"])
			assert.NotContains(t, req, "rfid_tag")

			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"session_id": 42, "payment_method": "cash", "fee_lkr": 300,
			})
		})

		stl, err := client.Pay(context.Background(), domain.PaymentCash, 42, "operator-1", "")
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentCash, stl.PaymentMethod)
		assert.Equal(t, 300.0, stl.FeeLKR)
	})

	t.Run("rfid carries tag", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/payments/rfid", r.URL.Path)

			var req map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "TAG-1", req["rfid_tag"])
			assert.NotContains(t, req, "cashier")

			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"session_id": 42, "payment_method": "rfid", "fee_lkr": 300,
			})
		})

		_, err := client.Pay(context.Background(), domain.PaymentRFID, 42, "operator-1", "TAG-1")
		require.NoError(t, err)
	})

	t.Run("unknown method rejected locally", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("backend must not be called")
		})

		_, err := client.Pay(context.Background(), domain.PaymentMethod("crypto"), 42, "", "")
		assert.ErrorIs(t, err, domain.ErrInvalidPaymentMethod)
	})
}

func TestClient_BookingSearchNotFound(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "no booking"})
	})

	_, err := client.SearchBookingByPlate(context.Background(), "CAV-8537")
	assert.ErrorIs(t, err, domain.ErrBookingNotFound)
}

func TestClient_ValidateBookingQRInvalid(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"valid": false, "message": "booking expired",
		})
	})

	_, err := client.ValidateBookingQR(context.Background(), "qr-data")
	assert.ErrorIs(t, err, domain.ErrBookingInvalid)
	assert.Contains(t, err.Error(), "booking expired")
}

func TestClient_StatusErrorMapping(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, domain.ErrTokenExpired},
		{http.StatusForbidden, domain.ErrUnauthorized},
		{http.StatusNotFound, domain.ErrNotFound},
		{http.StatusConflict, domain.ErrConflict},
		{http.StatusBadRequest, domain.ErrBadRequest},
		{http.StatusInternalServerError, domain.ErrInternal},
	}

	for _, tc := range cases {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_ = json.NewEncoder(w).Encode(map[string]string{"detail": "boom"})
		})

		err := client.OpenGate(context.Background(), domain.GateEntry)
		assert.ErrorIs(t, err, tc.want, "status %d", tc.status)
	}
}

func TestClient_GateStatus(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/camera/gates/status", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"entry_gate": map[string]bool{"open": true},
			"exit_gate":  map[string]bool{"open": false},
		})
	})

	status, err := client.GateStatus(context.Background())
	require.NoError(t, err)
	assert.True(t, status.EntryOpen)
	assert.False(t, status.ExitOpen)
}

func TestClient_CalculateFee(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/controller/exit/calculate-fee", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"session_id": 42,
			"plate":      "CAV-8537",
			"entry_time": "2026-08-30T10:15:00",
			"exit_time":  "2026-08-30T12:45:00",
			"duration":   "2h 30m",
			"fee_lkr":    300,
		})
	})

	quote, err := client.CalculateFee(context.Background(), "CAV-8537")
	require.NoError(t, err)
	assert.Equal(t, int64(42), quote.SessionID)
	assert.Equal(t, "2h 30m", quote.Duration)
	assert.Equal(t, 300.0, quote.FeeLKR)
}

func makeToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix()})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func TestClient_ExpiredCredentialFailsFast(t *testing.T) {
	expired := makeToken(t, time.Now().Add(-time.Hour))
	called := false

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, credential.New(expired))
	err := client.OpenGate(context.Background(), domain.GateEntry)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
	assert.False(t, called, "мёртвый токен не должен доходить до сети")
}
