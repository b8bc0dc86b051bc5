package http

import (
	"encoding/json"
	"net/http"

	"github.com/labworks/labgrade/internal/grading"
)

// SubmitAnswersHandler grades one raw form submission and returns the
// aggregate result verbatim. Grading never fails the request: bad input comes
// back as a result object with the error field set.
func SubmitAnswersHandler(engine *grading.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, engine.Grade(r.Context(), submissionFrom(r)))
	}
}

// submissionFrom flattens the parsed form into the engine's submission view.
// Repeated fields keep their first value.
func submissionFrom(r *http.Request) grading.Submission {
	_ = r.ParseForm()
	fields := make(map[string]string, len(r.Form))
	for k, vs := range r.Form {
		if len(vs) > 0 {
			fields[k] = vs[0]
		}
	}
	return grading.Submission{Method: r.Method, Fields: fields}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
