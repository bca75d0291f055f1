// Package yookassa - минимальный REST-клиент YooKassa API v3.
// Покрывает только создание платежа и запрос его статуса.
package yookassa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const defaultBaseURL = "https://api.yookassa.ru/v3"

// Payment - ответ YooKassa по платежу
type Payment struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	Paid         bool   `json:"paid"`
	Amount       Amount `json:"amount"`
	Description  string `json:"description"`
	Confirmation struct {
		Type            string `json:"type"`
		ConfirmationURL string `json:"confirmation_url"`
	} `json:"confirmation"`
	Metadata map[string]string `json:"metadata"`
	Raw      json.RawMessage   `json:"-"`
}

type Amount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

// CreatePaymentRequest - параметры создания платежа
type CreatePaymentRequest struct {
	AmountValue float64
	Currency    string
	Description string
	ReturnURL   string
	Metadata    map[string]string
}

type Client struct {
	shopID     string
	secretKey  string
	baseURL    string
	httpClient *http.Client
}

func NewClient(shopID, secretKey string) *Client {
	return &Client{
		shopID:    shopID,
		secretKey: secretKey,
		baseURL:   defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// WithBaseURL переопределяет адрес API, используется в тестах.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = baseURL
	return c
}

// CreatePayment создает платеж с redirect-подтверждением.
// Idempotence-Key генерируется на каждый вызов, повтор того же вызова
// делается только внутри doWithRetry с тем же ключом.
func (c *Client) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*Payment, error) {
	currency := req.Currency
	if currency == "" {
		currency = "RUB"
	}

	body := map[string]interface{}{
		"amount": map[string]string{
			"value":    fmt.Sprintf("%.2f", req.AmountValue),
			"currency": currency,
		},
		"confirmation": map[string]string{
			"type":       "redirect",
			"return_url": req.ReturnURL,
		},
		"capture":     true,
		"description": req.Description,
	}
	if len(req.Metadata) > 0 {
		body["metadata"] = req.Metadata
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	return c.doWithRetry(ctx, http.MethodPost, c.baseURL+"/payments", jsonBody, uuid.NewString())
}

// GetPayment запрашивает текущее состояние платежа.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	return c.doWithRetry(ctx, http.MethodGet, c.baseURL+"/payments/"+paymentID, nil, "")
}

const (
	maxAttempts  = 3
	retryBackoff = 500 * time.Millisecond
)

// doWithRetry выполняет запрос с ограниченными повторами.
// Повторяем только транспортные ошибки, ответы API (включая 4xx/5xx)
// повтору не подлежат.
func (c *Client) doWithRetry(ctx context.Context, method, url string, body []byte, idempotenceKey string) (*Payment, error) {
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryBackoff << (attempt - 1)):
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return nil, err
		}
		req.SetBasicAuth(c.shopID, c.secretKey)
		req.Header.Set("Content-Type", "application/json")
		if idempotenceKey != "" {
			req.Header.Set("Idempotence-Key", idempotenceKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		payment, err := decodePayment(resp)
		resp.Body.Close()
		return payment, err
	}

	return nil, fmt.Errorf("yookassa: request failed after %d attempts: %w", maxAttempts, lastErr)
}

func decodePayment(resp *http.Response) (*Payment, error) {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("yookassa: unexpected status %d: %s", resp.StatusCode, string(raw))
	}

	var payment Payment
	if err := json.Unmarshal(raw, &payment); err != nil {
		return nil, err
	}
	payment.Raw = raw
	return &payment, nil
}
