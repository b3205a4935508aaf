package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"kpitrack/internal/app/server"
	"kpitrack/internal/domain/auth"
	"kpitrack/internal/domain/kpi"
	"kpitrack/internal/platform/config"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error any             `json:"error"`
}

func testConfig(dbURL string) config.Config {
	return config.Config{
		DatabaseURL:        dbURL,
		JWTSecret:          "test-secret",
		Environment:        "test",
		RunMigrations:      true,
		RunSeed:            true,
		MigrationsDir:      "../../../../migrations",
		SeedFile:           "../../../../config/seed.yaml",
		MaxBodyBytes:       1048576,
		RateLimitPerMinute: 1000,
		ReportCacheTTL:     time.Minute,
		ReportConcurrency:  2,
		MetricsEnabled:     true,
	}
}

func startApp(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	cfg := testConfig(dbURL)
	app, err := server.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to start app: %v", err)
	}
	t.Cleanup(app.Close)

	ts := httptest.NewServer(app.Router)
	t.Cleanup(ts.Close)

	token, err := auth.GenerateToken(cfg.JWTSecret, auth.Claims{UserID: "journey-admin", RoleName: auth.RoleAdmin}, time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	return ts, token
}

func TestOutreachOfficerJourney(t *testing.T) {
	ts, token := startApp(t)
	client := ts.Client()

	memberEnv := doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/members", token, map[string]any{
		"name": fmt.Sprintf("Journey %d", time.Now().UnixNano()),
		"role": "Outreach Officer",
	}, http.StatusOK)
	var member kpi.TeamMember
	decodeData(t, memberEnv, &member)
	if member.ID == "" || member.Designation != "Outreach Officer" {
		t.Fatalf("unexpected member: %+v", member)
	}

	for month := 1; month <= 2; month++ {
		doJSON(t, client, http.MethodPut, ts.URL+"/api/v1/members/"+member.ID+"/records", token, map[string]any{
			"month":  month,
			"year":   2024,
			"values": map[string]float64{"monthly_outreaches": 525, "report_delivered": 1},
		}, http.StatusOK)
	}

	reportURL := ts.URL + "/api/v1/members/" + member.ID + "/report?startMonth=1&startYear=2024&endMonth=2&endYear=2024"

	// Seeded annual targets are not pro-rated: 1050/6825 and 2/13.
	var report kpi.Report
	decodeData(t, doJSON(t, client, http.MethodGet, reportURL, token, nil, http.StatusOK), &report)
	if report.Achievements.OverallAveragePercent != 15 || report.Category != kpi.CategoryCritical {
		t.Fatalf("unexpected seeded report: %+v", report.Achievements)
	}
	if len(report.Achievements.Results) != 2 {
		t.Fatalf("expected two scored kpis, got %d", len(report.Achievements.Results))
	}

	doJSON(t, client, http.MethodPut, ts.URL+"/api/v1/members/"+member.ID+"/targets/monthly_outreaches", token, map[string]any{
		"monthlyTarget": 100,
		"annualTarget":  0,
	}, http.StatusOK)

	// Override with no annual target: 1050 / (100 x 2) = 525.
	decodeData(t, doJSON(t, client, http.MethodGet, reportURL, token, nil, http.StatusOK), &report)
	if report.Achievements.OverallAveragePercent != 270 || report.Category != kpi.CategoryGood {
		t.Fatalf("expected override to be reflected, got %+v", report.Achievements)
	}

	doJSON(t, client, http.MethodGet, ts.URL+"/api/v1/members/"+member.ID+"/achievements?startMonth=3&startYear=2024&endMonth=4&endYear=2024", token, nil, http.StatusNotFound)
	doJSON(t, client, http.MethodGet, ts.URL+"/api/v1/members/"+member.ID+"/aggregate?startMonth=4&startYear=2024&endMonth=3&endYear=2024", token, nil, http.StatusBadRequest)

	auditEnv := doJSON(t, client, http.MethodGet, ts.URL+"/api/v1/audit/events?entityType=performance_record&actorUserId=journey-admin&limit=1", token, nil, http.StatusOK)
	var page struct {
		Total int `json:"total"`
	}
	decodeData(t, auditEnv, &page)
	if page.Total < 2 {
		t.Fatalf("expected record writes to be audited, got %d", page.Total)
	}
}

func TestTeamReportJobJourney(t *testing.T) {
	ts, token := startApp(t)
	client := ts.Client()

	env := doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/reports/team", token, map[string]any{
		"startMonth": 1, "startYear": 2024, "endMonth": 12, "endYear": 2024,
	}, http.StatusOK)
	var report kpi.TeamReport
	decodeData(t, env, &report)
	if report.CategoryCounts == nil {
		t.Fatal("expected category counts")
	}

	jobsEnv := doJSON(t, client, http.MethodGet, ts.URL+"/api/v1/reports/jobs?jobType=team_report&limit=5", token, nil, http.StatusOK)
	var page struct {
		Items []map[string]any `json:"items"`
		Total int              `json:"total"`
	}
	decodeData(t, jobsEnv, &page)
	if page.Total == 0 || len(page.Items) == 0 {
		t.Fatal("expected the team report run to be recorded")
	}
	if status, _ := page.Items[0]["status"].(string); status != "completed" {
		t.Fatalf("expected latest run completed, got %v", page.Items[0]["status"])
	}
}

func TestAnonymousRequestsAreRejected(t *testing.T) {
	ts, _ := startApp(t)
	doJSON(t, ts.Client(), http.MethodGet, ts.URL+"/api/v1/kpis", "", nil, http.StatusUnauthorized)
}

func doJSON(t *testing.T, client *http.Client, method, url, token string, body any, want int) envelope {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewBuffer(raw)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response: %v", err)
	}
	if resp.StatusCode != want {
		t.Fatalf("%s %s: expected status %d, got %d: %s", method, url, want, resp.StatusCode, string(raw))
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return env
}

func decodeData(t *testing.T, env envelope, dst any) {
	t.Helper()
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("failed to decode data: %v", err)
	}
}
