package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/campuskit/iam-service/internal/core/domain"
	"github.com/campuskit/iam-service/internal/core/port"
	"github.com/campuskit/iam-service/internal/repository"
	"github.com/campuskit/iam-service/internal/transport/http/handlers"
	"github.com/campuskit/iam-service/internal/usecase"
)

type permissionStoreStub struct {
	port.PermissionRepository
	existing map[string]struct{}
	created  []domain.Permission
}

func (s *permissionStoreStub) Create(_ context.Context, permission domain.Permission) error {
	if _, ok := s.existing[permission.Name]; ok {
		return repository.ErrConflict
	}
	s.created = append(s.created, permission)
	return nil
}

func newPermissionRouter(store *permissionStoreStub) *gin.Engine {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	handler := handlers.NewPermissionHandler(usecase.NewPermissionService(store))
	handler.RegisterRoutes(r.Group("/api/v1/permissions"))
	return r
}

func TestBulkCreatePermissionsReturnsOK(t *testing.T) {
	store := &permissionStoreStub{existing: map[string]struct{}{"courses:read": {}}}
	r := newPermissionRouter(store)

	body := `{"resource":"courses","actions":["read","create"]}`
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/permissions/bulk", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	// Bulk provisioning is idempotent and may create nothing, so it
	// answers 200 rather than 201.
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp handlers.PermissionBulkCreateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Created) != 1 || resp.Created[0].Name != "courses:create" {
		t.Fatalf("unexpected created set: %+v", resp.Created)
	}
	if len(resp.Skipped) != 1 || resp.Skipped[0] != "courses:read" {
		t.Fatalf("unexpected skipped set: %+v", resp.Skipped)
	}
}
