package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	api "github.com/labworks/labgrade/internal/api/http"
	"github.com/labworks/labgrade/internal/answers"
	"github.com/labworks/labgrade/internal/auth"
	"github.com/labworks/labgrade/internal/config"
	"github.com/labworks/labgrade/internal/db"
	"github.com/labworks/labgrade/internal/grading"
	"github.com/labworks/labgrade/internal/labstore"
)

func main() {
	cfg := config.FromEnv()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}

	specs := answers.NewFileStore(cfg.AnswersPath)
	subs := labstore.NewSQLStore(dbh, cfg.DBDriver)
	engine := grading.NewEngine(specs, subs, log.Default())
	authSvc := auth.NewService(dbh, cfg.AuthSecret)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Legacy action dispatch, one endpoint for every frontend action.
	r.Post("/api", api.ActionHandler(engine, authSvc, subs, specs))

	// REST aliases for newer callers.
	r.Post("/api/answers", api.SubmitAnswersHandler(engine))
	r.Post("/api/login", api.LoginHandler(authSvc))
	r.Get("/api/users/{userID}/statistic", api.UserStatisticHandler(authSvc, subs, specs))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	log.Printf("listening on %s (db=%s, answers=%s)", cfg.HTTPAddr, cfg.DBDriver, cfg.AnswersPath)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
