package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"tiertrainer-backend/config"

	"github.com/stripe/stripe-go/v75"
)

// FakeStripe serves canned JSON for Stripe API paths and records form bodies.
type FakeStripe struct {
	mu        sync.Mutex
	responses map[string]any
	Requests  map[string][]url.Values
}

// NewFakeStripe points the stripe-go API backend at a local server for the test.
// responses is keyed by "METHOD /v1/path".
func NewFakeStripe(t *testing.T, responses map[string]any) *FakeStripe {
	t.Helper()
	fs := &FakeStripe{responses: responses, Requests: map[string][]url.Values{}}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		_ = r.ParseForm()

		fs.mu.Lock()
		fs.Requests[key] = append(fs.Requests[key], r.Form)
		body, ok := fs.responses[key]
		fs.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"no fake for ` + key + `"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(body)
	}))

	noRetries := int64(0)
	stripe.SetBackend(stripe.APIBackend, stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		MaxNetworkRetries: &noRetries,
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	}))
	config.STRIPE_SECRET_KEY = "sk_test_fake"

	t.Cleanup(func() {
		stripe.SetBackend(stripe.APIBackend, nil)
		srv.Close()
	})
	return fs
}

func (f *FakeStripe) Calls(key string) []url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Requests[key]
}

// Respond sets or replaces the canned body for key.
func (f *FakeStripe) Respond(key string, body any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.responses == nil {
		f.responses = map[string]any{}
	}
	f.responses[key] = body
}
