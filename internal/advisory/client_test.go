package advisory

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andresuchdata/autopo-replenish/internal/domain"
)

func completion(content string) []byte {
	body, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	})
	return body
}

func TestClient_RequestAdvisory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q", got)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "test-model" || len(req.Messages) != 2 {
			t.Errorf("request = %+v", req)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(completion("```json\n{\"forecast_demand\": 104.2, \"demand_std_dev\": null, \"lead_time_days\": 5, \"notes\": [\"ok\"], \"summary\": \"fine\"}\n```"))
	}))
	defer srv.Close()

	c, err := NewClient(ClientConfig{BaseURL: srv.URL + "/", APIKey: "secret", Model: "test-model"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	cand, err := c.RequestAdvisory(context.Background(), Prompt{System: "s", User: "u"})
	if err != nil {
		t.Fatalf("RequestAdvisory: %v", err)
	}
	if cand.ForecastDemand == nil || *cand.ForecastDemand != 104.2 {
		t.Errorf("ForecastDemand = %v", cand.ForecastDemand)
	}
	if cand.DemandStdDev != nil {
		t.Errorf("DemandStdDev = %v, want nil", *cand.DemandStdDev)
	}
	if cand.LeadTimeDays == nil || *cand.LeadTimeDays != 5 {
		t.Errorf("LeadTimeDays = %v", cand.LeadTimeDays)
	}
	if cand.Summary != "fine" || len(cand.Notes) != 1 {
		t.Errorf("candidate = %+v", cand)
	}
}

func TestClient_AuthFailureIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c, _ := NewClient(ClientConfig{BaseURL: srv.URL, APIKey: "wrong", MaxRetries: 3})
	c.backoff = time.Millisecond

	_, err := c.RequestAdvisory(context.Background(), Prompt{})
	if !errors.Is(err, domain.ErrAdvisoryUnavailable) {
		t.Fatalf("err = %v, want ErrAdvisoryUnavailable", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		w.Write(completion(`{"forecast_demand": 12}`))
	}))
	defer srv.Close()

	c, _ := NewClient(ClientConfig{BaseURL: srv.URL, APIKey: "k", MaxRetries: 2})
	c.backoff = time.Millisecond

	cand, err := c.RequestAdvisory(context.Background(), Prompt{})
	if err != nil {
		t.Fatalf("RequestAdvisory: %v", err)
	}
	if *cand.ForecastDemand != 12 {
		t.Errorf("ForecastDemand = %v, want 12", *cand.ForecastDemand)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestClient_MalformedContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(completion("the forecast is about twelve"))
	}))
	defer srv.Close()

	c, _ := NewClient(ClientConfig{BaseURL: srv.URL, APIKey: "k"})
	if _, err := c.RequestAdvisory(context.Background(), Prompt{}); !errors.Is(err, domain.ErrAdvisoryUnavailable) {
		t.Fatalf("err = %v, want ErrAdvisoryUnavailable", err)
	}
}

func TestClient_OAuth2ClientCredentials(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"minted","token_type":"bearer","expires_in":3600}`))
	}))
	defer tokenSrv.Close()

	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer minted" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Write(completion(`{"summary": "authorized"}`))
	}))
	defer apiSrv.Close()

	c, err := NewClient(ClientConfig{
		BaseURL:      apiSrv.URL,
		TokenURL:     tokenSrv.URL,
		ClientID:     "id",
		ClientSecret: "secret",
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	cand, err := c.RequestAdvisory(context.Background(), Prompt{})
	if err != nil {
		t.Fatalf("RequestAdvisory: %v", err)
	}
	if cand.Summary != "authorized" {
		t.Errorf("Summary = %q", cand.Summary)
	}
}

func TestNewClient_Validation(t *testing.T) {
	if _, err := NewClient(ClientConfig{APIKey: "k"}); err == nil {
		t.Error("expected error without base url")
	}
	if _, err := NewClient(ClientConfig{BaseURL: "http://localhost"}); err == nil {
		t.Error("expected error without credentials")
	}
}
