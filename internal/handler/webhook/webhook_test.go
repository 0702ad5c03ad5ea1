package webhook_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verzog/merchant/internal/domain"
	"github.com/verzog/merchant/internal/gateway"
	"github.com/verzog/merchant/internal/handler/webhook"
	"github.com/verzog/merchant/internal/router"
)

type stubAdapter struct {
	name    string
	outcome *gateway.Outcome
	err     error
	calls   int
}

func (s *stubAdapter) Name() string { return s.name }

func (s *stubAdapter) BuildPaymentRequest(ctx context.Context, bill *domain.Bill) (*gateway.PaymentRequest, error) {
	return &gateway.PaymentRequest{URL: "https://pay.example.org", Method: http.MethodGet}, nil
}

func (s *stubAdapter) HandleReturn(ctx context.Context, transID string) (*domain.Bill, error) {
	return nil, nil
}

func (s *stubAdapter) HandleNotification(ctx context.Context, r *http.Request) (*gateway.Outcome, error) {
	s.calls++
	return s.outcome, s.err
}

func newServer(t *testing.T, adapters ...gateway.Adapter) *httptest.Server {
	t.Helper()

	registry := gateway.NewRegistry()
	for _, a := range adapters {
		registry.Register(a)
	}

	h := webhook.NewHandler(registry, zerolog.Nop())
	rt := router.New()
	rt.Post("/webhooks/{gateway}", h.HandleNotification)

	srv := httptest.NewServer(rt)
	t.Cleanup(srv.Close)
	return srv
}

func postWebhook(t *testing.T, srv *httptest.Server, path string) (*http.Response, map[string]any) {
	t.Helper()

	resp, err := http.Post(srv.URL+path, "application/x-www-form-urlencoded", nil)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp, body
}

func TestWebhook_DispatchesToAdapter(t *testing.T) {
	adapter := &stubAdapter{
		name: "paypal",
		outcome: &gateway.Outcome{
			Notification: &domain.Notification{Status: domain.NotificationProcessed},
		},
	}
	srv := newServer(t, adapter)

	resp, body := postWebhook(t, srv, "/webhooks/paypal")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "PROCESSED", body["status"])
	assert.Equal(t, 1, adapter.calls)
}

func TestWebhook_RejectedStillAcks(t *testing.T) {
	adapter := &stubAdapter{
		name: "paypal",
		outcome: &gateway.Outcome{
			Notification: &domain.Notification{Status: domain.NotificationRejected},
		},
	}
	srv := newServer(t, adapter)

	resp, body := postWebhook(t, srv, "/webhooks/paypal")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "REJECTED", body["status"])
}

func TestWebhook_DuplicateMarked(t *testing.T) {
	adapter := &stubAdapter{
		name:    "paypal",
		outcome: &gateway.Outcome{Duplicate: true},
	}
	srv := newServer(t, adapter)

	resp, body := postWebhook(t, srv, "/webhooks/paypal")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "duplicate", body["status"])
}

func TestWebhook_InfrastructureErrorAnswers500(t *testing.T) {
	adapter := &stubAdapter{
		name: "paypal",
		err:  errors.New("verification endpoint unreachable"),
	}
	srv := newServer(t, adapter)

	resp, err := http.Post(srv.URL+"/webhooks/paypal", "application/x-www-form-urlencoded", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestWebhook_UnknownGateway(t *testing.T) {
	srv := newServer(t, &stubAdapter{name: "paypal"})

	resp, _ := postWebhook(t, srv, "/webhooks/bitcoin")

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
