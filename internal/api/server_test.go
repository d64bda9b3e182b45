package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/snapmed/internal/apperr"
	"github.com/ppiankov/snapmed/internal/auth"
	"github.com/ppiankov/snapmed/internal/logging"
	"github.com/ppiankov/snapmed/internal/metrics"
	"github.com/ppiankov/snapmed/internal/model"
	"github.com/ppiankov/snapmed/internal/pipeline"
)

// MockAnalyzer returns a fixed result or error
type MockAnalyzer struct {
	Result *model.EnrichmentResult
	Err    error
	ctxErr error
}

func (m *MockAnalyzer) Enrich(ctx context.Context, image string) (*model.EnrichmentResult, error) {
	m.ctxErr = ctx.Err()
	return m.Result, m.Err
}

// MockStore records appends in memory
type MockStore struct {
	mu        sync.Mutex
	records   []model.HistoryRecord
	AppendErr error
	Panic     bool
}

func (m *MockStore) Append(ctx context.Context, ownerID string, lines []string, drugInfo *model.DrugMetadata) (string, error) {
	if m.AppendErr != nil {
		return "", m.AppendErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id := "h" + string(rune('0'+len(m.records)))
	rec := model.HistoryRecord{ID: id, OwnerID: ownerID, Lines: lines, CreatedAt: time.Now()}
	if drugInfo != nil {
		rec.DrugInfo = *drugInfo
	}
	m.records = append(m.records, rec)
	return id, nil
}

func (m *MockStore) ListByOwner(ctx context.Context, ownerID string) []model.HistoryRecord {
	if m.Panic {
		panic("boom")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.HistoryRecord{}
	for i := len(m.records) - 1; i >= 0; i-- {
		if m.records[i].OwnerID == ownerID {
			out = append(out, m.records[i])
		}
	}
	return out
}

var ibuprofen = &model.DrugMetadata{GenericName: "ibuprofen", DosageForm: "TABLET", ProductType: "HUMAN OTC DRUG", Route: []string{"ORAL"}}

func newTestServer(t *testing.T, analyzer Analyzer, store HistoryStore, opts ...Option) *Server {
	t.Helper()
	cfg := model.DefaultConfig()
	gate := auth.NewStaticGate(map[string]string{"S1": "U1", "S2": "U2"})
	opts = append([]Option{WithLogger(logging.Discard())}, opts...)
	return New(cfg, analyzer, store, gate, opts...)
}

func do(s *Server, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	return rec
}

func session(uid, sid string) []*http.Cookie {
	return []*http.Cookie{{Name: auth.UserCookie, Value: uid}, {Name: auth.SessionCookie, Value: sid}}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestAnalyze_Found(t *testing.T) {
	analyzer := &MockAnalyzer{Result: &model.EnrichmentResult{Lines: []string{"Advil", "Pain reliever"}, DrugInfo: ibuprofen}}
	s := newTestServer(t, analyzer, &MockStore{})

	rec := do(s, http.MethodPost, "/analyze-base64", `{"image":"AAAA"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, []any{"Advil", "Pain reliever"}, body["lines"])
	assert.Equal(t, map[string]any{
		"generic_name": "ibuprofen",
		"dosage_form":  "TABLET",
		"product_type": "HUMAN OTC DRUG",
		"route":        []any{"ORAL"},
	}, body["drugInfo"])
	assert.NotContains(t, body, "historyId")
	assert.NoError(t, analyzer.ctxErr)
}

func TestAnalyze_NoDrugInfo(t *testing.T) {
	analyzer := &MockAnalyzer{Result: &model.EnrichmentResult{Lines: []string{"Aspirin", "Pain relief"}}}
	s := newTestServer(t, analyzer, &MockStore{})

	rec := do(s, http.MethodPost, "/analyze-base64", `{"image":"AAAA"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"lines":["Aspirin","Pain relief"],"drugInfo":"no detailed drug info found"}`, rec.Body.String())
}

func TestAnalyze_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantError  string
	}{
		{"missing image", `{}`, nil, http.StatusBadRequest, "No base64 image provided."},
		{"empty image", `{"image":""}`, nil, http.StatusBadRequest, "No base64 image provided."},
		{"extraction failed", `{"image":"AAAA"}`, pipeline.ErrExtractionFailed, http.StatusBadRequest, "Unable to extract medicine data."},
		{"unexpected", `{"image":"AAAA"}`, errors.New("disk on fire"), http.StatusInternalServerError, "Something went wrong. disk on fire"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, &MockAnalyzer{Err: tt.err}, &MockStore{})

			rec := do(s, http.MethodPost, "/analyze-base64", tt.body)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantError, decode(t, rec)["error"])
		})
	}
}

func TestAnalyze_FailureWritesNoHistory(t *testing.T) {
	tests := []struct {
		name string
		body string
		err  error
	}{
		{"missing image", `{}`, nil},
		{"extraction failed", `{"image":"AAAA"}`, pipeline.ErrExtractionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &MockStore{}
			s := newTestServer(t, &MockAnalyzer{Err: tt.err}, store)
			s.config.History.AutoSave = true

			rec := do(s, http.MethodPost, "/analyze-base64", tt.body, session("U1", "S1")...)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotContains(t, decode(t, rec), "historyId")
			assert.Empty(t, store.records)
		})
	}
}

func TestAnalyze_UnexpectedDetailHiddenInProduction(t *testing.T) {
	s := newTestServer(t, &MockAnalyzer{Err: errors.New("disk on fire")}, &MockStore{})
	s.config.Environment = "production"

	rec := do(s, http.MethodPost, "/analyze-base64", `{"image":"AAAA"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Something went wrong.", decode(t, rec)["error"])
}

func TestAnalyze_AutoSaveForAuthenticatedCaller(t *testing.T) {
	store := &MockStore{}
	analyzer := &MockAnalyzer{Result: &model.EnrichmentResult{Lines: []string{"Aspirin"}}}
	s := newTestServer(t, analyzer, store)

	rec := do(s, http.MethodPost, "/analyze-base64", `{"image":"AAAA"}`, session("U1", "S1")...)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "h0", decode(t, rec)["historyId"])
	require.Len(t, store.records, 1)
	assert.Equal(t, "U1", store.records[0].OwnerID)

	// invalid session on the optional route stays anonymous
	rec = do(s, http.MethodPost, "/analyze-base64", `{"image":"AAAA"}`, session("U1", "nope")...)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, decode(t, rec), "historyId")
	assert.Len(t, store.records, 1)
}

func TestAnalyze_AutoSaveFailureStillAnswers(t *testing.T) {
	store := &MockStore{AppendErr: apperr.PersistenceUnavailable("Failed to save medication history", errors.New("down"))}
	s := newTestServer(t, &MockAnalyzer{Result: &model.EnrichmentResult{Lines: []string{"Aspirin"}}}, store)

	rec := do(s, http.MethodPost, "/analyze-base64", `{"image":"AAAA"}`, session("U1", "S1")...)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, decode(t, rec), "historyId")
}

func TestHistory_RequiresAuth(t *testing.T) {
	s := newTestServer(t, &MockAnalyzer{}, &MockStore{})

	rec := do(s, http.MethodGet, "/api/history", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Authentication required", decode(t, rec)["message"])

	rec = do(s, http.MethodPost, "/api/history", `{"lines":["a"]}`, session("U1", "S2")...)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid or expired authentication", decode(t, rec)["message"])
}

func TestHistory_SaveAndList(t *testing.T) {
	store := &MockStore{}
	s := newTestServer(t, &MockAnalyzer{}, store)

	rec := do(s, http.MethodPost, "/api/history", `{"lines":["Aspirin"]}`, session("U1", "S1")...)
	require.Equal(t, http.StatusCreated, rec.Code)
	saved := decode(t, rec)
	assert.Equal(t, "Medication history saved successfully", saved["message"])
	assert.Equal(t, "h0", saved["historyId"])

	rec = do(s, http.MethodPost, "/api/history", `{"lines":["Advil"],"drugInfo":{"generic_name":"ibuprofen"}}`, session("U1", "S1")...)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(s, http.MethodPost, "/api/history", `{"lines":["Other"]}`, session("U2", "S2")...)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(s, http.MethodGet, "/api/history", "", session("U1", "S1")...)
	require.Equal(t, http.StatusOK, rec.Code)

	var list historyListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, "Medication history retrieved successfully", list.Message)
	require.Len(t, list.Histories, 2)
	assert.Equal(t, []string{"Advil"}, list.Histories[0].Lines)
	assert.Equal(t, "N/A", list.Histories[0].DrugInfo.DosageForm)
	assert.Equal(t, []string{"Aspirin"}, list.Histories[1].Lines)
}

func TestHistory_SaveValidation(t *testing.T) {
	s := newTestServer(t, &MockAnalyzer{}, &MockStore{})

	tests := []struct {
		body string
		want string
	}{
		{`{}`, "Invalid medication data: lines array is required"},
		{`{"lines":[]}`, "Invalid medication data: lines array is required"},
		{`{"lines":["a"],"drugInfo":"x"}`, "Drug info must be an object"},
		{`{"lines":["a"],"drugInfo":{"route":"ORAL"}}`, "Route must be an array"},
	}
	for _, tt := range tests {
		rec := do(s, http.MethodPost, "/api/history", tt.body, session("U1", "S1")...)
		assert.Equal(t, http.StatusBadRequest, rec.Code, tt.body)
		assert.Equal(t, tt.want, decode(t, rec)["message"], tt.body)
	}
}

func TestHistory_SaveFault(t *testing.T) {
	store := &MockStore{AppendErr: apperr.PersistenceUnavailable("Failed to save medication history", errors.New("down"))}
	s := newTestServer(t, &MockAnalyzer{}, store)

	rec := do(s, http.MethodPost, "/api/history", `{"lines":["Aspirin"]}`, session("U1", "S1")...)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, map[string]any{"message": "Failed to save medication history"}, decode(t, rec))
}

func TestHistory_ListUnexpectedFault(t *testing.T) {
	s := newTestServer(t, &MockAnalyzer{}, &MockStore{Panic: true})

	rec := do(s, http.MethodGet, "/api/history", "", session("U1", "S1")...)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"message":"Failed to retrieve medication history","histories":[]}`, rec.Body.String())
}

func TestHistory_ListEmpty(t *testing.T) {
	s := newTestServer(t, &MockAnalyzer{}, &MockStore{})

	rec := do(s, http.MethodGet, "/api/history", "", session("U2", "S2")...)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Medication history retrieved successfully","histories":[]}`, rec.Body.String())
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, &MockAnalyzer{}, &MockStore{})

	rec := do(s, http.MethodGet, "/health", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "development", body["environment"])
	assert.Len(t, body["allowedOrigins"], 2)
}

func TestSessionAndLogout(t *testing.T) {
	s := newTestServer(t, &MockAnalyzer{}, &MockStore{})

	rec := do(s, http.MethodGet, "/api/auth/session", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, false, decode(t, rec)["isAuthenticated"])

	rec = do(s, http.MethodGet, "/api/auth/session", "", session("U1", "S1")...)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "U1", decode(t, rec)["userId"])

	rec = do(s, http.MethodPost, "/api/auth/logout", "", session("U1", "S1")...)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, rec.Result().Cookies(), 2)

	rec = do(s, http.MethodGet, "/api/auth/session", "", session("U1", "S1")...)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid session", decode(t, rec)["message"])
}

func TestCORS(t *testing.T) {
	s := newTestServer(t, &MockAnalyzer{}, &MockStore{})
	s.config.Environment = "production"

	req := httptest.NewRequest(http.MethodGet, "/health", http.NoBody)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/health", http.NoBody)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestBodyLimit(t *testing.T) {
	s := newTestServer(t, &MockAnalyzer{Result: &model.EnrichmentResult{Lines: []string{"a"}}}, &MockStore{})
	s.config.Server.BodyLimit = "1K"
	s = New(s.config, s.analyzer, s.history, s.gate, WithLogger(logging.Discard()))

	rec := do(s, http.MethodPost, "/analyze-base64", `{"image":"`+strings.Repeat("A", 4096)+`"}`)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestMetricsRoute(t *testing.T) {
	m, err := metrics.New()
	require.NoError(t, err)
	s := newTestServer(t, &MockAnalyzer{}, &MockStore{}, WithMetrics(m))

	rec := do(s, http.MethodGet, "/metrics", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
