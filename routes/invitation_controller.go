package routes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/gofrs/uuid"
	"github.com/mlopez/surveyforge/app"
	"github.com/mlopez/surveyforge/httpx"
	"github.com/mlopez/surveyforge/log"
	"github.com/mlopez/surveyforge/model"
)

type createInvitationRequest struct {
	ExpiresInHours int `json:"expires_in_hours"`
}

func CreateInvitation(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId := chi.URLParam(r, "id")

		req := createInvitationRequest{}
		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogStatus(w, r, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		if !model.ValidInvitationTTL(req.ExpiresInHours) {
			httpx.LogDetail(w, r, http.StatusBadRequest, log.DebugLevel, "create_invitation.validate",
				"expires_in_hours must be one of %v", model.InvitationTTLHours)
			return
		}

		var exists bool
		err = app.QueryRowContext(r.Context(), `SELECT 1 FROM survey WHERE id = ?`, surveyId).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, r, "create_invitation.get_survey", surveyId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_survey", err)
			return
		}

		token := newToken()
		now := time.Now()
		expiresAt := now.Add(time.Duration(req.ExpiresInHours) * time.Hour)

		_, err = app.ExecContext(r.Context(), `
			INSERT INTO invitation (token, survey_id, expires_at, is_active, created_at)
			VALUES (?, ?, ?, 1, ?)`,
			token,
			surveyId,
			expiresAt,
			now,
		)
		if err != nil {
			httpx.LogInternalError(w, r, "db.insert_invitation", err)
			return
		}

		shareUrl := fmt.Sprintf("%s/survey/%s?token=%s",
			strings.TrimRight(app.PublicURL, "/"), surveyId, token)

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"token":      token,
			"share_url":  shareUrl,
			"expires_at": expiresAt,
		})
	}
}

func ListInvitations(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId := chi.URLParam(r, "id")

		rows, err := app.QueryContext(r.Context(), `
			SELECT
				i.token, i.survey_id, i.expires_at, i.is_active, i.created_at,
				(SELECT COUNT(*) FROM response r WHERE r.invitation_token = i.token)
			FROM invitation i
			WHERE i.survey_id = ?
			ORDER BY i.created_at DESC`,
			surveyId,
		)
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_invitations", err)
			return
		}
		defer rows.Close()

		now := time.Now()
		invitations := []model.Invitation{}
		for rows.Next() {
			inv := model.Invitation{}
			err = rows.Scan(&inv.Token, &inv.SurveyID, &inv.ExpiresAt, &inv.IsActive, &inv.CreatedAt, &inv.ResponsesCount)
			if err != nil {
				httpx.LogInternalError(w, r, "db.get_invitations.scan", err)
				return
			}

			inv.IsExpired = inv.Expired(now)
			invitations = append(invitations, inv)
		}

		render.JSON(w, r, map[string]any{
			"invitations": invitations,
		})
	}
}

// DeactivateInvitation is a one-way transition; deactivating an already
// inactive token is not an error.
func DeactivateInvitation(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId := chi.URLParam(r, "id")
		token := chi.URLParam(r, "token")

		res, err := app.ExecContext(r.Context(), `
			UPDATE invitation
			SET is_active = 0
			WHERE token = ?
				AND survey_id = ?`,
			token,
			surveyId,
		)
		if err != nil {
			httpx.LogInternalError(w, r, "db.deactivate_invitation", err)
			return
		}
		n, err := res.RowsAffected()
		if err != nil {
			httpx.LogInternalError(w, r, "db.deactivate_invitation.verify", err)
			return
		}
		if n < 1 {
			httpx.LogNotFound(w, r, "deactivate_invitation", token)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// ValidateInvitation is a pure read used by the response flow before
// rendering the survey; it reserves nothing.
func ValidateInvitation(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			httpx.LogDetail(w, r, http.StatusBadRequest, log.DebugLevel, "validate_invitation", "missing token parameter")
			return
		}

		valid := false
		inv, err := getInvitation(r.Context(), app.DB, token)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			httpx.LogInternalError(w, r, "db.get_invitation", err)
			return
		}
		if err == nil {
			valid = inv.Usable(time.Now())
		}

		render.JSON(w, r, map[string]any{
			"valid": valid,
		})
	}
}

func getInvitation(ctx context.Context, db *sql.DB, token string) (inv model.Invitation, err error) {
	err = db.QueryRowContext(ctx, `
		SELECT token, survey_id, expires_at, is_active, created_at
		FROM invitation
		WHERE token = ?`,
		token,
	).Scan(&inv.Token, &inv.SurveyID, &inv.ExpiresAt, &inv.IsActive, &inv.CreatedAt)
	return
}

func newToken() string {
	return strings.ReplaceAll(uuid.Must(uuid.NewV4()).String(), "-", "")
}
