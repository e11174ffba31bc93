package main

import (
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/mlopez/surveyforge/app"
	"github.com/mlopez/surveyforge/config"
	"github.com/mlopez/surveyforge/database"
	"github.com/mlopez/surveyforge/httpx"
	"github.com/mlopez/surveyforge/log"
	"github.com/mlopez/surveyforge/routes"
)

func main() {
	cfg, err := config.ParseFlags()
	if err != nil {
		log.Fatal("main.config:", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal("main.db.open:", err)
	}
	defer db.Close()

	if cfg.AdminPassword != "" {
		err = database.EnsureAdminUser(db, cfg.AdminPassword)
		if err != nil {
			log.Fatal("main.db.admin_user:", err)
		}
	}

	err = os.MkdirAll(cfg.UploadDir, 0o755)
	if err != nil {
		log.Fatal("main.upload_dir:", err)
	}

	bearerServer := httpx.NewBearerServer(db, cfg)

	app := app.App{
		DB:           db,
		BearerServer: bearerServer,
		Config:       cfg,
	}

	handler := routes.Wire(app)

	err = runServer(cfg, handler)
	if !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("main.server:", err)
	}
}

func runServer(cfg config.Config, handler http.Handler) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Info("Listening on " + cfg.Url())
	return srv.ListenAndServe()
}
