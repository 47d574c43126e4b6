package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
)

// client is a thin principal-authenticated HTTP client over the ledger API.
type client struct {
	baseURL string
	token   string
	http    *http.Client
}

func newClient(baseURL string) *client {
	return &client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *client) do(method, path string, body interface{}, out interface{}) (int, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return 0, fmt.Errorf("failed to marshal request: %w", err)
		}
	}
	req, err := http.NewRequest(method, c.baseURL+path, &buf)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func (c *client) register(principal, secret string) {
	status, err := c.do(http.MethodPost, "/api/auth/register",
		map[string]string{"principal": principal, "secret": secret}, nil)
	if err != nil {
		log.WithError(err).Fatal("Registration request failed")
	}
	// 409 means the principal already exists from a previous run.
	if status != http.StatusCreated && status != http.StatusConflict {
		log.WithField("status", status).Fatal("Registration rejected")
	}
}

func (c *client) login(principal, secret string) {
	var resp struct {
		Token string `json:"token"`
	}
	status, err := c.do(http.MethodPost, "/api/auth/token",
		map[string]string{"principal": principal, "secret": secret}, &resp)
	if err != nil || status != http.StatusOK {
		log.WithError(err).WithField("status", status).Fatal("Token request failed")
	}
	c.token = resp.Token
	log.WithField("principal", principal).Info("Obtained bearer token")
}

func main() {
	apiURL := os.Getenv("API_BASE_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080"
	}

	ownerPrincipal := os.Getenv("OWNER_PRINCIPAL")
	if ownerPrincipal == "" {
		ownerPrincipal = "ledger-owner"
	}
	ownerSecret := os.Getenv("OWNER_SECRET")
	if ownerSecret == "" {
		ownerSecret = "owner-demo-secret"
	}

	log.WithField("api_url", apiURL).Info("Vehicle record ledger demo starting")

	// Ledger identity, as deployment tooling would record it.
	info := map[string]interface{}{}
	if _, err := newClient(apiURL).do(http.MethodGet, "/api/ledger", nil, &info); err != nil {
		log.WithError(err).Fatal("Ledger is not reachable")
	}
	log.WithFields(log.Fields{"address": info["address"], "owner": info["owner"]}).Info("Connected to ledger")

	owner := newClient(apiURL)
	owner.login(ownerPrincipal, ownerSecret)

	center := newClient(apiURL)
	center.register("quick-fix-auto", "center-demo-secret")
	center.login("quick-fix-auto", "center-demo-secret")

	// Owner authorizes the service center.
	status, err := owner.do(http.MethodPost, "/api/centers",
		map[string]string{"principal": "quick-fix-auto", "name": "Quick Fix Auto"}, nil)
	if err != nil {
		log.WithError(err).Fatal("Failed to add service center")
	}
	if status == http.StatusConflict {
		log.Info("Service center already authorized from a previous run")
	} else if status != http.StatusCreated {
		log.WithField("status", status).Fatal("Adding service center rejected")
	} else {
		log.Info("Owner authorized Quick Fix Auto as a service center")
	}

	// The center records an oil change for ABC123.
	var record map[string]interface{}
	status, err = center.do(http.MethodPost, "/api/records", map[string]interface{}{
		"vehicle_id":   "ABC123",
		"service_type": "Oil Change",
		"mileage":      50000,
		"description":  "Full synthetic oil change and filter replacement",
	}, &record)
	if err != nil || status != http.StatusCreated {
		log.WithError(err).WithField("status", status).Fatal("Failed to add service record")
	}
	log.WithFields(log.Fields{
		"vehicle_id": record["vehicle_id"],
		"timestamp":  record["timestamp"],
	}).Info("Service record appended")

	// Anyone can read the history: no token on this client.
	reader := newClient(apiURL)
	var history struct {
		Records []map[string]interface{} `json:"records"`
	}
	if _, err := reader.do(http.MethodGet, "/api/records?vehicle_id=ABC123", nil, &history); err != nil {
		log.WithError(err).Fatal("Failed to read service history")
	}
	log.WithField("count", len(history.Records)).Info("Public service history for ABC123")
	for i, r := range history.Records {
		log.WithFields(log.Fields{
			"index":        i,
			"service_type": r["service_type"],
			"mileage":      r["mileage"],
			"center":       r["service_center"],
		}).Info("Record")
	}

	// Owner revokes the center; its next write must be rejected.
	status, err = owner.do(http.MethodDelete, "/api/centers?principal=quick-fix-auto", nil, nil)
	if err != nil || status != http.StatusOK {
		log.WithError(err).WithField("status", status).Fatal("Failed to remove service center")
	}
	log.Info("Owner removed Quick Fix Auto")

	status, _ = center.do(http.MethodPost, "/api/records", map[string]interface{}{
		"vehicle_id":   "ABC123",
		"service_type": "Brake Service",
		"mileage":      50500,
	}, nil)
	if status != http.StatusForbidden {
		log.WithField("status", status).Fatal("Expected removed center to be rejected")
	}
	log.Info("Removed center was rejected, as expected")

	// The prior record stays retrievable, unchanged.
	var first map[string]interface{}
	status, err = reader.do(http.MethodGet, "/api/records?vehicle_id=ABC123&index=0", nil, &first)
	if err != nil || status != http.StatusOK {
		log.WithError(err).WithField("status", status).Fatal("Failed to read record by index")
	}
	log.WithFields(log.Fields{
		"service_type": first["service_type"],
		"center":       first["service_center"],
	}).Info("First record still retrievable after center removal")

	log.Info("Demo complete")
}
