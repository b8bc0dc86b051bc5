package http

import (
	"net/http"

	"github.com/labworks/labgrade/internal/auth"
)

// LoginHandler authenticates a login/password pair from the form body.
func LoginHandler(svc *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		resp := svc.Login(r.Context(), r.FormValue("login"), r.FormValue("password"))
		writeJSON(w, resp)
	}
}
