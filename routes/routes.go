package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mlopez/surveyforge/app"
	"github.com/mlopez/surveyforge/routes/middlewares"
)

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.Logger, middleware.Recoverer)

	root.Mount("/", apiRouter(app, middlewares.Admin(app.TokenSecret)))

	return root
}

func apiRouter(app app.App, admin func(http.Handler) http.Handler) http.Handler {
	api := chi.NewRouter()

	// public surface: response flow, link validation, device check
	api.Get("/surveys/{id}", GetSurveyById(app))
	api.Post("/surveys/{id}/responses", SubmitResponse(app))
	api.Get("/surveys/{id}/respondent-check", CheckRespondent(app))
	api.Get("/invitations/validate", ValidateInvitation(app))
	api.Handle("/files/*", ServeUploads(app))

	api.Post("/login", Login(app))
	api.Post("/refresh", Refresh(app))

	// builder surface
	api.Group(func(r chi.Router) {
		r.Use(admin)

		r.Get("/surveys", ListSurveys(app))
		r.Post("/surveys", CreateSurvey(app))
		r.Put("/surveys/{id}", UpdateSurvey(app))
		r.Delete("/surveys/{id}", DeleteSurvey(app))

		r.Get("/surveys/{id}/stats", GetSurveyStats(app))
		r.Get("/surveys/{id}/export", ExportSurvey(app))
		r.Get("/surveys/{id}/pdf", DownloadSurveyPDF(app))

		r.Post("/surveys/{id}/invitations", CreateInvitation(app))
		r.Get("/surveys/{id}/invitations", ListInvitations(app))
		r.Delete("/surveys/{id}/invitations/{token}", DeactivateInvitation(app))

		r.Post("/upload", UploadFile(app))
	})

	return api
}
