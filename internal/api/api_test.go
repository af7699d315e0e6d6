package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/andresuchdata/autopo-replenish/internal/actionplan"
	"github.com/andresuchdata/autopo-replenish/internal/api/middleware"
	"github.com/andresuchdata/autopo-replenish/internal/domain"
	"github.com/andresuchdata/autopo-replenish/internal/recommendation"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeRecommendations struct {
	lastSKU     string
	lastMetrics *domain.RequestMetrics
	lastPolicy  domain.Policy
	batchSize   int
	err         error
}

func (f *fakeRecommendations) ResolveRecommendation(_ context.Context, sku string, _ []domain.HistoryPoint, metrics *domain.RequestMetrics) (*domain.RecommendationResult, error) {
	f.lastSKU = sku
	f.lastMetrics = metrics
	if f.err != nil {
		return nil, f.err
	}
	demand := 98
	return &domain.RecommendationResult{SKU: sku, ForecastDemand: &demand}, nil
}

func (f *fakeRecommendations) ComputeReplenishment(_ domain.DemandEstimate, policy domain.Policy, _ domain.StockState) domain.ReplenishmentMetrics {
	f.lastPolicy = policy
	return domain.ReplenishmentMetrics{SafetyStock: 49, ReorderPoint: 949, RecommendedOrderQuantity: 499, AvailableStock: 450}
}

func (f *fakeRecommendations) Evaluate(_ context.Context, req recommendation.EvaluateRequest) (*recommendation.Evaluation, error) {
	f.lastSKU = req.SKU
	if f.err != nil {
		return nil, f.err
	}
	return &recommendation.Evaluation{Recommendation: &domain.RecommendationResult{SKU: req.SKU}}, nil
}

func (f *fakeRecommendations) EvaluateBatch(_ context.Context, reqs []recommendation.EvaluateRequest) []recommendation.BatchResult {
	f.batchSize = len(reqs)
	out := make([]recommendation.BatchResult, len(reqs))
	for i, r := range reqs {
		out[i] = recommendation.BatchResult{SKU: r.SKU}
	}
	return out
}

func newTestRouter(rec *fakeRecommendations, plans *actionplan.Service) *gin.Engine {
	services := &Services{}
	if rec != nil {
		services.Recommendation = rec
	}
	if plans != nil {
		services.Plans = plans
	}
	return NewRouter(services, nil)
}

func do(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return out
}

func TestHealth(t *testing.T) {
	w := do(t, newTestRouter(nil, nil), http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if w.Header().Get(middleware.RequestIDHeader) == "" {
		t.Errorf("expected a request id header")
	}
}

func TestResolveRecommendation(t *testing.T) {
	rec := &fakeRecommendations{}
	router := newTestRouter(rec, nil)

	w := do(t, router, http.MethodPost, "/api/v1/recommendations/SKU-1", `{"metrics":{"daily_avg":3.5}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", w.Code, w.Body.String())
	}
	if rec.lastSKU != "SKU-1" {
		t.Errorf("sku = %q", rec.lastSKU)
	}
	if rec.lastMetrics == nil || rec.lastMetrics.DailyAvg == nil || *rec.lastMetrics.DailyAvg != 3.5 {
		t.Errorf("metrics not forwarded: %+v", rec.lastMetrics)
	}
	if got := decode(t, w)["forecast_demand"]; got != float64(98) {
		t.Errorf("forecast_demand = %v", got)
	}

	// An empty body is a valid request.
	if w := do(t, router, http.MethodPost, "/api/v1/recommendations/SKU-2", ""); w.Code != http.StatusOK {
		t.Errorf("empty body status = %d", w.Code)
	}

	if w := do(t, router, http.MethodPost, "/api/v1/recommendations/SKU-3", `{not json`); w.Code != http.StatusBadRequest {
		t.Errorf("malformed body status = %d", w.Code)
	}
}

func TestResolveRecommendation_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantField  string
	}{
		{"validation", &domain.ValidationError{Field: "sku", Reason: "must not be empty"}, http.StatusBadRequest, "sku"},
		{"internal", fmt.Errorf("db down"), http.StatusInternalServerError, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&fakeRecommendations{err: tt.err}, nil)
			w := do(t, router, http.MethodPost, "/api/v1/recommendations/X", "")
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			body := decode(t, w)
			if tt.wantField != "" && body["field"] != tt.wantField {
				t.Errorf("field = %v", body["field"])
			}
			if tt.wantStatus == http.StatusInternalServerError && strings.Contains(w.Body.String(), "db down") {
				t.Errorf("internal error leaked: %s", w.Body.String())
			}
		})
	}
}

func TestBatch(t *testing.T) {
	rec := &fakeRecommendations{}
	router := newTestRouter(rec, nil)

	w := do(t, router, http.MethodPost, "/api/v1/recommendations/batch", `{"skus":["A"," B "]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if rec.batchSize != 2 {
		t.Errorf("batch size = %d", rec.batchSize)
	}
	results, _ := decode(t, w)["results"].([]any)
	if len(results) != 2 {
		t.Fatalf("results = %v", results)
	}

	if w := do(t, router, http.MethodPost, "/api/v1/recommendations/batch", `{"skus":[]}`); w.Code != http.StatusBadRequest {
		t.Errorf("empty batch status = %d", w.Code)
	}

	skus := make([]string, 201)
	for i := range skus {
		skus[i] = fmt.Sprintf("%q", fmt.Sprintf("S%d", i))
	}
	body := `{"skus":[` + strings.Join(skus, ",") + `]}`
	if w := do(t, router, http.MethodPost, "/api/v1/recommendations/batch", body); w.Code != http.StatusBadRequest {
		t.Errorf("oversized batch status = %d", w.Code)
	}
}

func TestReplenishment(t *testing.T) {
	rec := &fakeRecommendations{}
	router := newTestRouter(rec, nil)

	body := `{"estimate":{"avg_daily_demand":100,"demand_std_dev":10},"policy":{"lead_time_days":9},"stock":{"on_hand":500,"reserved":50},"service_level_percent":95}`
	w := do(t, router, http.MethodPost, "/api/v1/replenishment", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", w.Code, w.Body.String())
	}
	if z := rec.lastPolicy.ServiceLevelZ; z < 1.64 || z > 1.65 {
		t.Errorf("z derived from percent = %v", z)
	}
	if got := decode(t, w)["reorder_point"]; got != float64(949) {
		t.Errorf("reorder_point = %v", got)
	}

	bad := `{"estimate":{"avg_daily_demand":-1},"stock":{"on_hand":1}}`
	if w := do(t, router, http.MethodPost, "/api/v1/replenishment", bad); w.Code != http.StatusBadRequest {
		t.Errorf("negative demand status = %d", w.Code)
	}
}

func TestEvaluate(t *testing.T) {
	rec := &fakeRecommendations{}
	router := newTestRouter(rec, nil)

	w := do(t, router, http.MethodPost, "/api/v1/evaluations/SKU-9", `{"stock":{"on_hand":10}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", w.Code, w.Body.String())
	}
	if rec.lastSKU != "SKU-9" {
		t.Errorf("sku = %q", rec.lastSKU)
	}
}

func TestActionPlanRoutes(t *testing.T) {
	plans := actionplan.NewService(actionplan.NewMemoryStore(), nil)
	plan, err := plans.Create(context.Background(), actionplan.NewPlan{
		SKU:   "SKU-1",
		Items: []domain.ActionItem{{What: "Raise a purchase order"}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	router := newTestRouter(nil, plans)

	steps := []struct {
		method     string
		path       string
		wantStatus int
		wantState  string
	}{
		{http.MethodGet, "/api/v1/action-plans/" + plan.ID, http.StatusOK, "draft"},
		{http.MethodPost, "/api/v1/action-plans/" + plan.ID + "/approve", http.StatusConflict, ""},
		{http.MethodPost, "/api/v1/action-plans/" + plan.ID + "/submit", http.StatusOK, "reviewed"},
		{http.MethodPost, "/api/v1/action-plans/" + plan.ID + "/submit", http.StatusConflict, ""},
		{http.MethodPost, "/api/v1/action-plans/" + plan.ID + "/approve", http.StatusOK, "approved"},
		{http.MethodGet, "/api/v1/action-plans/missing", http.StatusNotFound, ""},
	}
	for _, s := range steps {
		w := do(t, router, s.method, s.path, "")
		if w.Code != s.wantStatus {
			t.Fatalf("%s %s: status = %d, want %d (%s)", s.method, s.path, w.Code, s.wantStatus, w.Body.String())
		}
		if s.wantState != "" {
			if got := decode(t, w)["status"]; got != s.wantState {
				t.Errorf("%s %s: status field = %v, want %s", s.method, s.path, got, s.wantState)
			}
		}
	}
}

func TestNormalizeAllowedOrigins(t *testing.T) {
	origins, all := normalizeAllowedOrigins([]string{"https://a.example, https://b.example", " ", "*"})
	if !all {
		t.Errorf("expected allowAll")
	}
	if len(origins) != 2 || origins[0] != "https://a.example" || origins[1] != "https://b.example" {
		t.Errorf("origins = %v", origins)
	}
}

type fakePolicies struct {
	drafts map[string]domain.PolicyDraft
}

func (f *fakePolicies) GetDraft(_ context.Context, sku string) (*domain.PolicyDraft, error) {
	d, ok := f.drafts[sku]
	if !ok {
		return nil, domain.ErrPolicyNotFound
	}
	return &d, nil
}

func (f *fakePolicies) SaveDrafts(_ context.Context, drafts []domain.PolicyDraft) error {
	for _, d := range drafts {
		f.drafts[d.SKU] = d
	}
	return nil
}

func TestPolicyRoutes(t *testing.T) {
	policies := &fakePolicies{drafts: map[string]domain.PolicyDraft{}}
	router := NewRouter(&Services{Policies: policies}, nil)

	if w := do(t, router, http.MethodGet, "/api/v1/policies/SKU-1", ""); w.Code != http.StatusNotFound {
		t.Fatalf("missing draft status = %d", w.Code)
	}

	w := do(t, router, http.MethodPut, "/api/v1/policies", `{"drafts":[{"sku":" SKU-1 ","lead_time_days":12,"service_level_percent":97}]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("save status = %d body %s", w.Code, w.Body.String())
	}

	w = do(t, router, http.MethodGet, "/api/v1/policies/SKU-1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	if got := decode(t, w)["lead_time_days"]; got != float64(12) {
		t.Errorf("lead_time_days = %v", got)
	}

	if w := do(t, router, http.MethodPut, "/api/v1/policies", `{"drafts":[{"sku":""}]}`); w.Code != http.StatusBadRequest {
		t.Errorf("empty sku status = %d", w.Code)
	}
}

type fakeLister struct {
	plans []*domain.ActionPlan
}

func (f *fakeLister) ListBySKU(_ context.Context, sku string) ([]*domain.ActionPlan, error) {
	var out []*domain.ActionPlan
	for _, p := range f.plans {
		if p.SKU == sku {
			out = append(out, p)
		}
	}
	return out, nil
}

func TestListActionPlans(t *testing.T) {
	plans := actionplan.NewService(actionplan.NewMemoryStore(), nil)
	lister := &fakeLister{plans: []*domain.ActionPlan{{ID: "p1", SKU: "A"}, {ID: "p2", SKU: "B"}}}
	router := NewRouter(&Services{Plans: plans, PlanHistory: lister}, nil)

	w := do(t, router, http.MethodGet, "/api/v1/action-plans?sku=A", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	listed, _ := decode(t, w)["plans"].([]any)
	if len(listed) != 1 {
		t.Errorf("plans = %v", listed)
	}

	if w := do(t, router, http.MethodGet, "/api/v1/action-plans", ""); w.Code != http.StatusBadRequest {
		t.Errorf("missing sku status = %d", w.Code)
	}

	noLister := NewRouter(&Services{Plans: plans}, nil)
	if w := do(t, noLister, http.MethodGet, "/api/v1/action-plans?sku=A", ""); w.Code != http.StatusNotImplemented {
		t.Errorf("without lister status = %d", w.Code)
	}
}
