package yookassa

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePayment(t *testing.T) {
	var gotAuthUser, gotAuthPass string
	var gotIdempotenceKey string
	var gotBody map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuthUser, gotAuthPass, _ = r.BasicAuth()
		gotIdempotenceKey = r.Header.Get("Idempotence-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{
			"id": "yk_1",
			"status": "pending",
			"amount": {"value": "110.00", "currency": "RUB"},
			"confirmation": {"type": "redirect", "confirmation_url": "https://pay.example/yk_1"},
			"metadata": {"user_id": "42"}
		}`))
	}))
	defer srv.Close()

	client := NewClient("shop", "secret").WithBaseURL(srv.URL)

	payment, err := client.CreatePayment(context.Background(), CreatePaymentRequest{
		AmountValue: 110,
		Description: "1 месяц - 110₽",
		ReturnURL:   "http://localhost:5000/payment-success",
		Metadata:    map[string]string{"user_id": "42"},
	})
	require.NoError(t, err)

	assert.Equal(t, "yk_1", payment.ID)
	assert.Equal(t, "pending", payment.Status)
	assert.Equal(t, "https://pay.example/yk_1", payment.Confirmation.ConfirmationURL)
	assert.Equal(t, "42", payment.Metadata["user_id"])
	assert.NotEmpty(t, payment.Raw)

	assert.Equal(t, "shop", gotAuthUser)
	assert.Equal(t, "secret", gotAuthPass)
	assert.NotEmpty(t, gotIdempotenceKey)

	amount := gotBody["amount"].(map[string]interface{})
	assert.Equal(t, "110.00", amount["value"])
	assert.Equal(t, "RUB", amount["currency"])
	assert.Equal(t, true, gotBody["capture"])
}

func TestGetPayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payments/yk_2", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id": "yk_2", "status": "succeeded", "paid": true}`))
	}))
	defer srv.Close()

	client := NewClient("shop", "secret").WithBaseURL(srv.URL)

	payment, err := client.GetPayment(context.Background(), "yk_2")
	require.NoError(t, err)
	assert.Equal(t, "succeeded", payment.Status)
	assert.True(t, payment.Paid)
}

func TestGetPayment_APIErrorIsNotRetried(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"type": "error", "code": "not_found"}`))
	}))
	defer srv.Close()

	client := NewClient("shop", "secret").WithBaseURL(srv.URL)

	_, err := client.GetPayment(context.Background(), "ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 404")
	assert.Equal(t, 1, calls, "API responses must not be retried")
}

func TestDoWithRetry_TransportErrorsAreRetried(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // сервер сразу закрыт, каждый запрос - транспортная ошибка

	client := NewClient("shop", "secret").WithBaseURL(srv.URL)

	_, err := client.GetPayment(context.Background(), "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
}
