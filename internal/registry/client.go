// Package registry integrates with the government blood bank registry
// (e-RaktKosh). The core only consumes stock availability through this
// narrow client; everything else about the registry is its own business.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/thalanet/bloodmatch/internal/config"
	"github.com/thalanet/bloodmatch/internal/model"
)

// BloodBank is one registry blood bank with its current stock
type BloodBank struct {
	BankID        string         `json:"bank_id"`
	Name          string         `json:"name"`
	Location      string         `json:"location"`
	Latitude      float64        `json:"latitude"`
	Longitude     float64        `json:"longitude"`
	ContactNumber string         `json:"contact_number"`
	Inventory     map[string]int `json:"blood_inventory"`
	LastUpdated   time.Time      `json:"last_updated"`
	Status        string         `json:"status"`
}

// UnitsOf returns the stocked units of a blood type at this bank
func (b *BloodBank) UnitsOf(t model.BloodType) int {
	return b.Inventory[string(t)]
}

// Client is the registry HTTP client
type Client struct {
	cfg    config.RegistryConfig
	logger *slog.Logger
	client *http.Client
}

// NewClient creates a registry client
func NewClient(cfg config.RegistryConfig, logger *slog.Logger) *Client {
	return &Client{
		cfg:    cfg,
		logger: logger,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// searchResponse is the registry search wire format
type searchResponse struct {
	Banks []BloodBank `json:"blood_banks"`
}

// NearbyStock returns blood banks within radiusKm of the coordinates that
// stock at least one unit of the requested type, nearest data first as
// returned by the registry.
func (c *Client) NearbyStock(ctx context.Context, bloodType model.BloodType, lat, lon, radiusKm float64) ([]BloodBank, error) {
	endpoint, err := url.Parse(c.cfg.BaseURL + "/stockAvailability")
	if err != nil {
		return nil, fmt.Errorf("invalid registry base url: %w", err)
	}

	q := endpoint.Query()
	q.Set("bloodGroup", string(bloodType))
	q.Set("lat", strconv.FormatFloat(lat, 'f', 6, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', 6, 64))
	q.Set("radiusKm", strconv.FormatFloat(radiusKm, 'f', 1, 64))
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create registry request: %w", err)
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("X-API-Key", c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("registry request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("registry returned status %d", resp.StatusCode)
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode registry response: %w", err)
	}

	stocked := make([]BloodBank, 0, len(parsed.Banks))
	for _, bank := range parsed.Banks {
		if bank.Status != "active" {
			continue
		}
		if bank.UnitsOf(bloodType) > 0 {
			stocked = append(stocked, bank)
		}
	}

	c.logger.Debug("registry stock lookup",
		"blood_type", bloodType,
		"banks", len(parsed.Banks),
		"stocked", len(stocked))
	return stocked, nil
}
