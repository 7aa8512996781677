package registry

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thalanet/bloodmatch/internal/config"
	"github.com/thalanet/bloodmatch/internal/model"
)

func newTestClient(baseURL string) *Client {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClient(config.RegistryConfig{
		Enabled: true,
		BaseURL: baseURL,
		APIKey:  "test-key",
		Timeout: 5 * time.Second,
	}, logger)
}

func TestNearbyStock(t *testing.T) {
	t.Run("Filters inactive and unstocked banks", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/stockAvailability", r.URL.Path)
			assert.Equal(t, "O-", r.URL.Query().Get("bloodGroup"))
			assert.Equal(t, "test-key", r.Header.Get("X-API-Key"))

			json.NewEncoder(w).Encode(map[string]interface{}{
				"blood_banks": []map[string]interface{}{
					{
						"bank_id":         "BB1",
						"name":            "Central Blood Bank",
						"status":          "active",
						"blood_inventory": map[string]int{"O-": 4, "A+": 10},
					},
					{
						"bank_id":         "BB2",
						"name":            "Closed Bank",
						"status":          "inactive",
						"blood_inventory": map[string]int{"O-": 9},
					},
					{
						"bank_id":         "BB3",
						"name":            "Empty Bank",
						"status":          "active",
						"blood_inventory": map[string]int{"O-": 0},
					},
				},
			})
		}))
		defer server.Close()

		banks, err := newTestClient(server.URL).NearbyStock(context.Background(), model.ONeg, 19.0760, 72.8777, 50)
		require.NoError(t, err)
		require.Len(t, banks, 1)
		assert.Equal(t, "BB1", banks[0].BankID)
		assert.Equal(t, 4, banks[0].UnitsOf(model.ONeg))
	})

	t.Run("Non-200 status is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).NearbyStock(context.Background(), model.ONeg, 0, 0, 50)
		assert.Error(t, err)
	})

	t.Run("Malformed body is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not json"))
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).NearbyStock(context.Background(), model.ONeg, 0, 0, 50)
		assert.Error(t, err)
	})

	t.Run("Context cancellation aborts the request", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer server.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		_, err := newTestClient(server.URL).NearbyStock(ctx, model.ONeg, 0, 0, 50)
		assert.Error(t, err)
	})
}
