package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BerniceZTT/followup_ledger/middleware"
	"github.com/BerniceZTT/followup_ledger/models"
	"github.com/BerniceZTT/followup_ledger/repository"
	"github.com/BerniceZTT/followup_ledger/service"
	"github.com/BerniceZTT/followup_ledger/utils"
)

var jwtKey = []byte("routes-secret")

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

type testServer struct {
	t      *testing.T
	router *gin.Engine
	store  *repository.MemoryStore
	clock  *fixedClock
}

func newTestServer(t *testing.T) *testServer {
	gin.SetMode(gin.TestMode)
	store := repository.NewMemoryStore()
	clock := &fixedClock{now: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)}

	router := gin.New()
	router.Use(middleware.Recovery(), middleware.ErrorHandler())
	RegisterRoutes(router, Dependencies{
		Ledger: service.NewLedgerService(store, clock, nil),
		Store:  store,
		JWTKey: jwtKey,
	})
	return &testServer{t: t, router: router, store: store, clock: clock}
}

func (s *testServer) do(session *models.Session, method, path string, body interface{}) (int, map[string]interface{}) {
	s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if session != nil {
		token, err := utils.GenerateToken(*session, jwtKey, time.Hour)
		require.NoError(s.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var out map[string]interface{}
	if w.Body.Len() > 0 {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w.Code, out
}

func (s *testServer) createClient(session *models.Session) string {
	s.t.Helper()
	code, body := s.do(session, http.MethodPost, "/api/clients", gin.H{"name": "Maria Souza", "phone": "(11) 98765-4321"})
	require.Equal(s.t, http.StatusCreated, code, body)
	return body["data"].(map[string]interface{})["client"].(map[string]interface{})["id"].(string)
}

var (
	brokerSession = &models.Session{ActorID: "broker-1", Name: "Ana", Role: models.RoleBroker}
	adminSession  = &models.Session{ActorID: "admin-1", Name: "Diego", Role: models.RoleAdmin}
)

func TestHealthAndStatus(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(nil, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])

	code, body = s.do(nil, http.MethodGet, "/api/db-status", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "memory", body["driver"])
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t)
	code, body := s.do(nil, http.MethodGet, "/api/unknown", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "RESOURCE_NOT_FOUND", body["code"])
}

func TestClientsRequireToken(t *testing.T) {
	s := newTestServer(t)
	code, body := s.do(nil, http.MethodGet, "/api/clients", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "MISSING_TOKEN", body["code"])
}

func TestFollowUpResolutionFlow(t *testing.T) {
	s := newTestServer(t)
	id := s.createClient(brokerSession)
	path := "/api/clients/" + id + "/follow-ups"

	code, body := s.do(brokerSession, http.MethodPost, path, gin.H{"scheduledAt": "2024-03-11T12:00:00Z"})
	require.Equal(t, http.StatusCreated, code, body)
	client := body["data"].(map[string]interface{})["client"].(map[string]interface{})
	assert.Equal(t, "Ativo", client["followUpState"])

	// 已有跟进时不带 resolution
	code, body = s.do(brokerSession, http.MethodPost, path, gin.H{"scheduledAt": "2024-03-12T12:00:00Z"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "FOLLOW_UP_PENDING", body["code"])
	assert.Equal(t, []interface{}{"complete", "lost", "cancel"}, body["resolutions"])

	code, body = s.do(brokerSession, http.MethodPost, path, gin.H{"scheduledAt": "2024-03-12T12:00:00Z", "resolution": "archive"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])

	code, body = s.do(brokerSession, http.MethodPost, path, gin.H{"scheduledAt": "2024-03-09T12:00:00Z", "resolution": "lost"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "PAST_DATE", body["code"])

	code, body = s.do(brokerSession, http.MethodPost, path, gin.H{"scheduledAt": "2024-03-12T12:00:00Z", "resolution": "lost"})
	require.Equal(t, http.StatusCreated, code, body)
	appended := body["data"].(map[string]interface{})["appended"].([]interface{})
	require.Len(t, appended, 2)
	assert.Equal(t, "Follow-up Perdido", appended[0].(map[string]interface{})["type"])

	code, body = s.do(brokerSession, http.MethodPost, path+"/complete", gin.H{"note": "Visitou o imóvel"})
	require.Equal(t, http.StatusOK, code, body)
	client = body["data"].(map[string]interface{})["client"].(map[string]interface{})
	assert.Equal(t, "Concluido", client["followUpState"])

	code, body = s.do(brokerSession, http.MethodPost, path+"/postpone", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = s.do(brokerSession, http.MethodGet, "/api/clients/"+id+"/interactions", nil)
	require.Equal(t, http.StatusOK, code)
	entries := body["data"].(map[string]interface{})["interactions"].([]interface{})
	require.Len(t, entries, 5)
	newest := entries[0].(map[string]interface{})
	assert.Equal(t, "Follow-up Concluído", newest["type"])
	assert.Equal(t, "Visitou o imóvel", newest["observation"])
	live := entries[1].(map[string]interface{})
	assert.Equal(t, "2024-03-12T12:00:00Z", live["scheduledAt"])
}

func TestStatusChangeAndList(t *testing.T) {
	s := newTestServer(t)
	id := s.createClient(brokerSession)

	code, body := s.do(brokerSession, http.MethodPost, "/api/clients/"+id+"/interactions", gin.H{
		"type":         "Mudança de Status",
		"explicitNext": "Venda Gerada",
	})
	require.Equal(t, http.StatusCreated, code, body)
	entry := body["data"].(map[string]interface{})["interaction"].(map[string]interface{})
	assert.Equal(t, "Primeiro Atendimento", entry["fromStatus"])
	assert.Equal(t, "Venda Gerada", entry["toStatus"])

	code, body = s.do(brokerSession, http.MethodPost, "/api/clients/"+id+"/interactions", gin.H{"type": "Follow-up Agendado"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = s.do(brokerSession, http.MethodGet, "/api/clients?status=Venda%20Gerada", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["data"].(map[string]interface{})["total"])

	code, body = s.do(brokerSession, http.MethodGet, "/api/clients/"+id, nil)
	require.Equal(t, http.StatusOK, code)
	client := body["data"].(map[string]interface{})["client"].(map[string]interface{})
	assert.Equal(t, "Venda Gerada", client["status"])
	assert.Equal(t, "Sem Follow Up", client["followUpState"])
	assert.Len(t, client["interactions"], 2)
}

func TestDeleteAndOperationLog(t *testing.T) {
	s := newTestServer(t)
	id := s.createClient(brokerSession)

	code, _ := s.do(brokerSession, http.MethodDelete, "/api/clients/"+id, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = s.do(adminSession, http.MethodDelete, "/api/clients/"+id, nil)
	assert.Equal(t, http.StatusOK, code)

	code, body := s.do(adminSession, http.MethodGet, "/api/clients/"+id, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "RESOURCE_NOT_FOUND", body["code"])

	logs := s.store.OperationLogs()
	require.Len(t, logs, 3)
	assert.Equal(t, "admin-1", logs[2].OperatorID)
	assert.Equal(t, http.StatusOK, logs[2].StatusCode)
}

func TestDashboardKpis(t *testing.T) {
	s := newTestServer(t)
	id := s.createClient(brokerSession)
	code, _ := s.do(brokerSession, http.MethodPost, "/api/clients/"+id+"/follow-ups", gin.H{"scheduledAt": "2024-03-10T13:00:00Z"})
	require.Equal(t, http.StatusCreated, code)

	s.clock.now = s.clock.now.Add(2 * time.Hour)

	code, body := s.do(brokerSession, http.MethodGet, "/api/dashboard/kpis", nil)
	require.Equal(t, http.StatusOK, code)
	kpis := body["data"].(map[string]interface{})
	assert.Equal(t, float64(1), kpis["followUpAtrasado"])
	assert.Equal(t, float64(0), kpis["followUpFuturo"])
	assert.Equal(t, float64(1), kpis["totalLeads"])

	code, _ = s.do(brokerSession, http.MethodGet, "/api/dashboard/kpis?ownerId=broker-2", nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, body = s.do(brokerSession, http.MethodGet, "/api/clients?followUpState=Atrasado", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["data"].(map[string]interface{})["total"])
}

func TestDashboardReports(t *testing.T) {
	s := newTestServer(t)
	id := s.createClient(brokerSession)
	for _, typ := range []string{"Ligação Iniciada", "Ligação Registrada", "Anotação"} {
		code, body := s.do(brokerSession, http.MethodPost, "/api/clients/"+id+"/interactions", gin.H{"type": typ})
		require.Equal(t, http.StatusCreated, code, body)
	}
	code, body := s.do(brokerSession, http.MethodPost, "/api/clients/"+id+"/interactions", gin.H{
		"type":         "Mudança de Status",
		"explicitNext": "Tratativa",
	})
	require.Equal(t, http.StatusCreated, code, body)

	code, body = s.do(brokerSession, http.MethodGet, "/api/dashboard/productivity?startDate=2024-03-09&endDate=2024-03-10", nil)
	require.Equal(t, http.StatusOK, code, body)
	report := body["data"].(map[string]interface{})
	assert.Equal(t, []interface{}{
		map[string]interface{}{"date": "2024-03-09", "count": float64(0)},
		map[string]interface{}{"date": "2024-03-10", "count": float64(2)},
	}, report["series"])
	assert.Equal(t, float64(2), report["total"])

	code, body = s.do(brokerSession, http.MethodGet, "/api/dashboard/funnel?startDate=2024-03-10&endDate=2024-03-10", nil)
	require.Equal(t, http.StatusOK, code, body)
	stages := body["data"].(map[string]interface{})["stages"].(map[string]interface{})
	assert.Equal(t, float64(1), stages["Primeiro Atendimento"])
	assert.Equal(t, float64(1), stages["Tratativa"])
	assert.Equal(t, float64(0), stages["Venda Gerada"])

	code, body = s.do(brokerSession, http.MethodGet, "/api/dashboard/kpis", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["data"].(map[string]interface{})["leadsEmTratativa"])

	code, body = s.do(brokerSession, http.MethodGet, "/api/dashboard/productivity?startDate=10-03-2024&endDate=2024-03-10", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])

	code, _ = s.do(brokerSession, http.MethodGet, "/api/dashboard/funnel?startDate=2024-03-10&endDate=2024-03-10&brokerId=broker-2", nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, body = s.do(adminSession, http.MethodGet, "/api/dashboard/productivity?startDate=2024-03-10&endDate=2024-03-10&brokerId=broker-1", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(2), body["data"].(map[string]interface{})["total"])
}
