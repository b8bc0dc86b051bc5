package http

import (
	"net/http"

	"github.com/labworks/labgrade/internal/auth"
	"github.com/labworks/labgrade/internal/grading"
)

// ActionHandler serves the legacy single-endpoint protocol: the frontend
// POSTs a form whose "type" field selects the action. Kept so existing
// clients keep working next to the REST routes.
func ActionHandler(engine *grading.Engine, authSvc *auth.Service, marks MarkSource, labs LabLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		switch r.FormValue("type") {
		case "setAnswer":
			writeJSON(w, engine.Grade(r.Context(), submissionFrom(r)))
		case "logging":
			writeJSON(w, authSvc.Login(r.Context(), r.FormValue("login"), r.FormValue("password")))
		case "getUserStatistic":
			writeUserStatistic(w, r, authSvc, marks, labs, r.FormValue("id"))
		default:
			writeJSON(w, map[string]any{
				"success": false,
				"message": "Неизвестное действие",
			})
		}
	}
}
