package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"contractadmin/services"
)

// HandleReferenceAPI returns the wizard option lists as JSON. A list that
// failed to load is empty and named in data.errors.
func HandleReferenceAPI(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		data := services.LoadReferenceData(e.Request.Context(), app)
		if !data.Ready() {
			app.Logger().Warn("reference_api: partial reference data", "errors", data.Errors)
		}
		return e.JSON(http.StatusOK, map[string]any{
			"success": true,
			"data":    data,
		})
	}
}
