package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pocketbase/pocketbase/core"

	"contractadmin/config"
)

func TestGetConfig_FromContext(t *testing.T) {
	cfg := config.Default()
	cfg.Table.PageSize = 25
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), ConfigKey, cfg))

	if got := GetConfig(req); got.Table.PageSize != 25 {
		t.Errorf("expected page size 25, got %d", got.Table.PageSize)
	}
}

func TestGetConfig_NotInContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := GetConfig(req); got.Table.PageSize != 10 {
		t.Errorf("expected default page size, got %d", got.Table.PageSize)
	}
}

func TestConfigMiddleware_StoresConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Export.Currency = "EUR"
	mw := ConfigMiddleware(cfg)

	req := httptest.NewRequest(http.MethodGet, "/contracts", nil)
	rec := httptest.NewRecorder()
	e := &core.RequestEvent{}
	e.Request = req
	e.Response = rec

	// e.Next without a handler chain returns nil
	if err := mw(e); err != nil {
		t.Fatalf("middleware returned error: %v", err)
	}
	if got := GetConfig(e.Request); got.Export.Currency != "EUR" {
		t.Errorf("expected EUR, got %q", got.Export.Currency)
	}
}
