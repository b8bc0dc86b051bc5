package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/labworks/labgrade/internal/auth"
)

// MarkSource exposes the stored per-lab percentages aggregate.
type MarkSource interface {
	AverageMark(ctx context.Context, studentID string, labIDs []string) (float64, bool)
}

// LabLister enumerates the labs known to the answer specification config.
type LabLister interface {
	LabIDs() []string
}

type studentStatistic struct {
	ID      int64   `json:"id"`
	Login   string  `json:"login"`
	Name    string  `json:"name"`
	Age     int     `json:"age"`
	AvgMark float64 `json:"avgMark"`
}

type statisticResponse struct {
	Students any            `json:"students"`
	Error    auth.ErrorInfo `json:"error"`
}

// UserStatisticHandler returns one user's record plus the mean percentage
// across all labs they submitted.
func UserStatisticHandler(users *auth.Service, marks MarkSource, labs LabLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeUserStatistic(w, r, users, marks, labs, chi.URLParam(r, "userID"))
	}
}

func writeUserStatistic(w http.ResponseWriter, r *http.Request, users *auth.Service, marks MarkSource, labs LabLister, id string) {
	u, err := users.UserByID(r.Context(), id)
	if err != nil {
		writeJSON(w, statisticResponse{
			Students: struct{}{},
			Error:    auth.ErrorInfo{IsError: true, ErrorText: "User not found"},
		})
		return
	}
	// Missing lab tables are skipped, so a fresh deployment still answers.
	avg, _ := marks.AverageMark(r.Context(), id, labs.LabIDs())
	writeJSON(w, statisticResponse{
		Students: studentStatistic{
			ID:      u.ID,
			Login:   u.Login,
			Name:    u.Name,
			Age:     u.Age,
			AvgMark: avg,
		},
		Error: auth.ErrorInfo{ErrorText: ""},
	})
}
