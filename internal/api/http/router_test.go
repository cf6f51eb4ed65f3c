package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/api/http/handlers"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/observability"
	"github.com/spec-kit/support-desk/internal/persistence"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/service"
)

type downPinger struct{}

func (downPinger) Ping(context.Context) error { return errors.New("connection refused") }

type testServer struct {
	app         *fiber.App
	ticketsBlob *persistence.FileBlob
}

func newTestServer(t *testing.T, extraChecks map[string]persistence.Pinger) *testServer {
	t.Helper()
	dir := t.TempDir()
	ticketsBlob, err := persistence.NewFileBlob(filepath.Join(dir, "chamados.csv"))
	require.NoError(t, err)
	complaintsBlob, err := persistence.NewFileBlob(filepath.Join(dir, "reclamacoes.csv"))
	require.NoError(t, err)

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	tickets := service.NewTicketService(service.TicketDependencies{
		TicketRepo: repository.NewCSVTicketRepository(ticketsBlob, logger, metrics),
		Dispatcher: dispatcher,
		Logger:     logger,
		Metrics:    metrics,
	})
	complaints := service.NewComplaintService(service.ComplaintDependencies{
		ComplaintRepo: repository.NewCSVComplaintRepository(complaintsBlob, logger, metrics),
		Dispatcher:    dispatcher,
		Logger:        logger,
		Metrics:       metrics,
	})

	checks := map[string]persistence.Pinger{"storage": ticketsBlob}
	for name, p := range extraChecks {
		checks[name] = p
	}

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, 0)
	RegisterRoutes(app, RouteConfig{
		Health:     handlers.NewHealthHandler("support-desk", "test", checks),
		Tickets:    handlers.NewTicketsHandler(tickets),
		Complaints: handlers.NewComplaintsHandler(complaints),
		Metrics:    metrics,
	})
	return &testServer{app: app, ticketsBlob: ticketsBlob}
}

func (s *testServer) do(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func createTicketBody() map[string]any {
	return map[string]any{
		"name":        "Ana",
		"email":       "ana@x.com",
		"category":    "technical",
		"subject":     "Login fails",
		"description": "Cannot log in",
	}
}

func TestTicketRoutes_Lifecycle(t *testing.T) {
	srv := newTestServer(t, nil)

	status, created := srv.do(t, "POST", "/api/chamados", createTicketBody())
	require.Equal(t, 201, status, created)
	assert.Equal(t, float64(1), created["id"])
	assert.Equal(t, "CHM-000001", created["number"])
	assert.Equal(t, "open", created["status"])
	assert.Equal(t, "medium", created["priority"])
	assert.Nil(t, created["phone"])
	messages := created["messages"].([]any)
	require.Len(t, messages, 1)
	assert.Equal(t, "Cannot log in", messages[0].(map[string]any)["body"])

	status, byNumber := srv.do(t, "GET", "/api/chamados/CHM-000001", nil)
	require.Equal(t, 200, status)
	status, byID := srv.do(t, "GET", "/api/chamados/1", nil)
	require.Equal(t, 200, status)
	assert.Equal(t, byNumber, byID)
	assert.Equal(t, created, byID)

	status, appended := srv.do(t, "POST", "/api/chamados/1/mensagens", map[string]any{"mensagem": "Still broken"})
	require.Equal(t, 200, status, appended)
	msg := appended["mensagem"].(map[string]any)
	assert.Equal(t, float64(2), msg["id"])
	assert.Equal(t, "customer", msg["kind"])
	assert.Equal(t, "Ana", msg["author"])
	ticket := appended["chamado"].(map[string]any)
	assert.Len(t, ticket["messages"], 2)

	status, updated := srv.do(t, "PUT", "/api/chamados/CHM-000001/status", map[string]any{"status": "resolved"})
	require.Equal(t, 200, status, updated)
	assert.Equal(t, "resolved", updated["status"])

	status, list := srv.do(t, "GET", "/api/chamados?status=resolved", nil)
	require.Equal(t, 200, status)
	assert.Equal(t, float64(1), list["total"])
}

func TestTicketRoutes_ListFilterByStatus(t *testing.T) {
	srv := newTestServer(t, nil)
	for i := 0; i < 5; i++ {
		status, _ := srv.do(t, "POST", "/api/chamados", createTicketBody())
		require.Equal(t, 201, status)
	}
	for _, id := range []string{"1", "3", "5"} {
		status, _ := srv.do(t, "PUT", "/api/chamados/"+id+"/status", map[string]any{"status": "resolved"})
		require.Equal(t, 200, status)
	}

	status, list := srv.do(t, "GET", "/api/chamados?status=resolved", nil)
	require.Equal(t, 200, status)
	assert.Equal(t, float64(3), list["total"])
	records := list["records"].([]any)
	require.Len(t, records, 3)
	for _, r := range records {
		assert.Equal(t, "resolved", r.(map[string]any)["status"])
	}

	status, all := srv.do(t, "GET", "/api/chamados", nil)
	require.Equal(t, 200, status)
	assert.Equal(t, float64(5), all["total"])
}

func TestTicketRoutes_Errors(t *testing.T) {
	srv := newTestServer(t, nil)

	body := createTicketBody()
	body["email"] = "not-an-email"
	status, resp := srv.do(t, "POST", "/api/chamados", body)
	assert.Equal(t, 400, status)
	assert.Equal(t, "VALIDATION_FAILED", resp["error"])
	assert.Equal(t, "invalid email address", resp["message"])

	status, resp = srv.do(t, "POST", "/api/chamados", map[string]any{"name": "Ana"})
	assert.Equal(t, 400, status)
	assert.Equal(t, []any{"email", "category", "subject", "description"}, resp["details"].(map[string]any)["fields"])

	status, _ = srv.do(t, "POST", "/api/chamados", createTicketBody())
	require.Equal(t, 201, status)
	before, err := srv.ticketsBlob.Read(context.Background())
	require.NoError(t, err)

	status, resp = srv.do(t, "PUT", "/api/chamados/999/status", map[string]any{"status": "closed"})
	assert.Equal(t, 404, status)
	assert.Equal(t, "NOT_FOUND", resp["error"])
	assert.Equal(t, "ticket not found", resp["message"])

	status, resp = srv.do(t, "PUT", "/api/chamados/1/status", map[string]any{"status": "archived"})
	assert.Equal(t, 400, status)
	assert.Equal(t, "VALIDATION_FAILED", resp["error"])

	status, _ = srv.do(t, "POST", "/api/chamados/1/mensagens", map[string]any{"mensagem": "  "})
	assert.Equal(t, 400, status)

	status, _ = srv.do(t, "POST", "/api/chamados/1/mensagens", map[string]any{"mensagem": "hi", "tipo": "robot"})
	assert.Equal(t, 400, status)

	status, _ = srv.do(t, "GET", "/api/chamados/CHM-000404", nil)
	assert.Equal(t, 404, status)

	after, err := srv.ticketsBlob.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, before, after)

	status, resp = srv.do(t, "GET", "/api/nowhere", nil)
	assert.Equal(t, 404, status)
	assert.Equal(t, "NOT_FOUND", resp["error"])
}

func TestTicketRoutes_Enumerations(t *testing.T) {
	srv := newTestServer(t, nil)

	status, resp := srv.do(t, "GET", "/api/chamados/categorias", nil)
	require.Equal(t, 200, status)
	assert.Equal(t, []any{"technical", "financial", "commercial", "support", "other"}, resp["categories"])

	status, resp = srv.do(t, "GET", "/api/chamados/status", nil)
	require.Equal(t, 200, status)
	assert.Equal(t, []any{"open", "in_progress", "awaiting_customer", "resolved", "closed"}, resp["statuses"])

	status, resp = srv.do(t, "GET", "/api/reclamacoes/status", nil)
	require.Equal(t, 200, status)
	assert.Equal(t, []any{"open", "in_review", "resolved", "cancelled"}, resp["statuses"])
}

func TestComplaintRoutes_Lifecycle(t *testing.T) {
	srv := newTestServer(t, nil)

	status, created := srv.do(t, "POST", "/api/reclamacoes", map[string]any{
		"name":        "Carla",
		"email":       "carla@z.com",
		"subject":     "Late delivery",
		"description": "Ordered two weeks ago",
		"postal_code": "01310-100",
	})
	require.Equal(t, 201, status, created)
	assert.Equal(t, float64(1), created["id"])
	assert.Equal(t, "open", created["status"])
	assert.Equal(t, "01310-100", created["postalCode"])

	status, got := srv.do(t, "GET", "/api/reclamacoes/1", nil)
	require.Equal(t, 200, status)
	assert.Equal(t, created, got)

	status, _ = srv.do(t, "GET", "/api/reclamacoes/CHM-000001", nil)
	assert.Equal(t, 404, status)

	status, updated := srv.do(t, "PUT", "/api/reclamacoes/1/status", map[string]any{"status": "in_review"})
	require.Equal(t, 200, status)
	assert.Equal(t, "in_review", updated["status"])

	status, _ = srv.do(t, "PUT", "/api/reclamacoes/1/status", map[string]any{"status": "closed"})
	assert.Equal(t, 400, status)

	status, _ = srv.do(t, "PUT", "/api/reclamacoes/7/status", map[string]any{"status": "resolved"})
	assert.Equal(t, 404, status)

	status, list := srv.do(t, "GET", "/api/reclamacoes?email=carla@z.com", nil)
	require.Equal(t, 200, status)
	assert.Equal(t, float64(1), list["total"])

	status, list = srv.do(t, "GET", "/api/reclamacoes?status=resolved", nil)
	require.Equal(t, 200, status)
	assert.Equal(t, float64(0), list["total"])
	assert.Equal(t, []any{}, list["records"])
}

func TestHealthAndMetricsRoutes(t *testing.T) {
	srv := newTestServer(t, nil)

	status, resp := srv.do(t, "GET", "/health/live", nil)
	require.Equal(t, 200, status)
	assert.Equal(t, "alive", resp["status"])

	status, resp = srv.do(t, "GET", "/health/ready", nil)
	require.Equal(t, 200, status)
	assert.Equal(t, map[string]any{"storage": "ok"}, resp["dependencies"])

	srv.do(t, "POST", "/api/chamados", createTicketBody())
	req := httptest.NewRequest("GET", "/metrics", nil)
	httpResp, err := srv.app.Test(req, -1)
	require.NoError(t, err)
	defer httpResp.Body.Close()
	raw, err := io.ReadAll(httpResp.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, httpResp.StatusCode)
	assert.Contains(t, string(raw), `support_desk_records_lifecycle_events_total{event="created",store="tickets"} 1`)

	degraded := newTestServer(t, map[string]persistence.Pinger{"redis": downPinger{}})
	status, resp = degraded.do(t, "GET", "/health/ready", nil)
	assert.Equal(t, 503, status)
	assert.Equal(t, "DEPENDENCY_UNAVAILABLE", resp["error"])
	assert.Equal(t, "connection refused", resp["details"].(map[string]any)["redis"])
}

func TestRequestIDHeader(t *testing.T) {
	srv := newTestServer(t, nil)

	req := httptest.NewRequest("GET", "/health/live", nil)
	req.Header.Set("X-Request-ID", "req-123")
	resp, err := srv.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, "req-123", resp.Header.Get("X-Request-ID"))

	resp, err = srv.app.Test(httptest.NewRequest("GET", "/health/live", nil), -1)
	require.NoError(t, err)
	assert.Len(t, resp.Header.Get("X-Request-ID"), 36)
}
