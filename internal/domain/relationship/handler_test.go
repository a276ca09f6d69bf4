package relationship_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/heartlink/heartlink-api/internal/docstore"
	"github.com/heartlink/heartlink-api/internal/domain/relationship"
	"github.com/heartlink/heartlink-api/internal/middleware"
)

// authAs is a stand-in for the JWT middleware that injects a fixed user
func authAs(userID uuid.UUID) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), middleware.UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func newTestRouter(t *testing.T, userID uuid.UUID) (http.Handler, *env) {
	t.Helper()
	e := newEnv(t, docstore.NewMemory())
	handler := relationship.NewHandler(e.service)
	return handler.Routes(authAs(userID)), e
}

func TestBlockEndpoint(t *testing.T) {
	alice, bob := uuid.New(), uuid.New()
	router, e := newTestRouter(t, alice)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodPost, "/users/"+bob.String()+"/block",
		strings.NewReader(`{"reason":"spam"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	blocked, err := e.service.IsBlocked(ctx, alice, bob)
	if err != nil || !blocked {
		t.Fatalf("expected pair blocked after request")
	}
}

func TestBlockEndpointWithoutBody(t *testing.T) {
	alice, bob := uuid.New(), uuid.New()
	router, _ := newTestRouter(t, alice)

	req := httptest.NewRequest(http.MethodPost, "/users/"+bob.String()+"/block", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("blocking without a body must work, got %d", w.Code)
	}
}

func TestBlockEndpointRejectsBadID(t *testing.T) {
	router, _ := newTestRouter(t, uuid.New())

	req := httptest.NewRequest(http.MethodPost, "/users/not-a-uuid/block", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestBlockEndpointRejectsSelf(t *testing.T) {
	alice := uuid.New()
	router, _ := newTestRouter(t, alice)

	req := httptest.NewRequest(http.MethodPost, "/users/"+alice.String()+"/block", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for self block, got %d", w.Code)
	}
}

func TestInteractEndpointValidatesType(t *testing.T) {
	alice, bob := uuid.New(), uuid.New()
	router, _ := newTestRouter(t, alice)

	req := httptest.NewRequest(http.MethodPost, "/users/"+bob.String()+"/interactions",
		strings.NewReader(`{"type":"wave"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for unknown type, got %d", w.Code)
	}
}

func TestInteractEndpointReportsMatch(t *testing.T) {
	alice, bob := uuid.New(), uuid.New()
	router, e := newTestRouter(t, alice)
	ctx := context.Background()

	if _, err := e.service.RecordInteraction(ctx, bob, alice, relationship.InteractionLike); err != nil {
		t.Fatalf("seed like failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/users/"+bob.String()+"/interactions",
		strings.NewReader(`{"type":"like"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"matched":true`) {
		t.Fatalf("expected matched:true in body, got %s", w.Body.String())
	}
}

func TestReportEndpointValidatesReason(t *testing.T) {
	alice, bob := uuid.New(), uuid.New()
	router, _ := newTestRouter(t, alice)

	req := httptest.NewRequest(http.MethodPost, "/users/"+bob.String()+"/report",
		strings.NewReader(`{"reason":"because"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for unknown reason, got %d", w.Code)
	}
}

func TestListBlockedEndpoint(t *testing.T) {
	alice, bob := uuid.New(), uuid.New()
	router, e := newTestRouter(t, alice)
	ctx := context.Background()

	if err := e.service.Block(ctx, alice, bob, "spam"); err != nil {
		t.Fatalf("block failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/users/me/blocked", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), bob.String()) {
		t.Fatalf("expected bob in blocked list, got %s", w.Body.String())
	}
}

// authAsRole injects both a fixed user and a role the way the JWT
// middleware does after validating a token
func authAsRole(userID uuid.UUID, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), middleware.UserIDKey, userID)
			ctx = context.WithValue(ctx, middleware.RoleKey, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func TestAdminReportsRequireAdminRole(t *testing.T) {
	router, _ := newTestRouter(t, uuid.New())

	req := httptest.NewRequest(http.MethodGet, "/admin/reports", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", w.Code)
	}
}

func TestAdminReportReviewEndpoint(t *testing.T) {
	admin := uuid.New()
	e := newEnv(t, docstore.NewMemory())
	router := relationship.NewHandler(e.service).Routes(authAsRole(admin, "admin"))
	ctx := context.Background()

	alice, bob := uuid.New(), uuid.New()
	if err := e.service.Report(ctx, alice, bob, "spam", "", false); err != nil {
		t.Fatalf("report failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/reports", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), bob.String()) {
		t.Fatalf("report listing missing reported user: %s", w.Body.String())
	}

	reports, err := e.service.ListReports(ctx, relationship.ReportStatusPending)
	if err != nil || len(reports) != 1 {
		t.Fatalf("expected one pending report, got %d (%v)", len(reports), err)
	}
	reportID := reports[0].ID

	req = httptest.NewRequest(http.MethodPatch, "/admin/reports/"+reportID.String(),
		strings.NewReader(`{"status":"resolved"}`))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodPatch, "/admin/reports/"+reportID.String(),
		strings.NewReader(`{"status":"escalated"}`))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodPatch, "/admin/reports/"+uuid.New().String(),
		strings.NewReader(`{"status":"reviewed"}`))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown report, got %d", w.Code)
	}
}
