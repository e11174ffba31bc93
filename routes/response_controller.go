package routes

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/mlopez/surveyforge/app"
	"github.com/mlopez/surveyforge/httpx"
	"github.com/mlopez/surveyforge/log"
	"github.com/mlopez/surveyforge/model"
)

type respondentCheck struct {
	op     bool
	key    string
	result chan<- bool
}

// SubmitResponse records a full response batch atomically. The device gate is
// best effort: the in-flight guard below narrows the check-then-insert window
// for a single process, the unique index on (survey_id, respondent_id) closes
// it for good.
func SubmitResponse(app app.App) http.HandlerFunc {
	guardStart := make(chan respondentCheck)
	go func() {
		inFlight := make(map[string]bool)

		for {
			req := <-guardStart
			if req.op {
				req.result <- inFlight[req.key]
				inFlight[req.key] = true
			} else {
				delete(inFlight, req.key)
			}
		}
	}()

	return func(w http.ResponseWriter, r *http.Request) {
		surveyId := chi.URLParam(r, "id")

		submission := model.SurveyResponse{}
		err := render.DecodeJSON(r.Body, &submission)
		if err != nil {
			httpx.LogStatus(w, r, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		token := submission.InvitationToken
		if token == "" {
			token = r.URL.Query().Get("token")
		}

		var isActive bool
		err = app.QueryRowContext(r.Context(),
			`SELECT is_active FROM survey WHERE id = ?`, surveyId,
		).Scan(&isActive)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, r, "submit_response.get_survey", surveyId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_survey", err)
			return
		}
		if !isActive {
			httpx.LogDetail(w, r, http.StatusForbidden, log.DebugLevel, "submit_response.inactive", "survey is not active")
			return
		}

		// invitation gate, rechecked here even if the link was validated at load time
		if token != "" {
			inv, err := getInvitation(r.Context(), app.DB, token)
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				httpx.LogInternalError(w, r, "db.get_invitation", err)
				return
			}
			if err != nil || inv.SurveyID != surveyId || !inv.Usable(time.Now()) {
				httpx.LogDetail(w, r, http.StatusForbidden, log.DebugLevel, "submit_response.invitation", "link not valid")
				return
			}
		}

		if err := validateAnswers(app, surveyId, submission, w, r); err != nil {
			return
		}

		// serialize concurrent submissions from the same device
		if submission.RespondentID != "" {
			key := surveyId + "/" + submission.RespondentID
			guardDone := make(chan bool)
			guardStart <- respondentCheck{true, key, guardDone}
			if <-guardDone {
				httpx.LogDetail(w, r, http.StatusConflict, log.DebugLevel, "respondent.already_submitted", "already responded")
				return
			}
			defer func() { guardStart <- respondentCheck{false, key, nil} }()

			var alreadySubmitted bool
			err = app.QueryRowContext(r.Context(), `
				SELECT 1 FROM response
				WHERE survey_id = ?
					AND respondent_id = ?`,
				surveyId,
				submission.RespondentID,
			).Scan(&alreadySubmitted)
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				httpx.LogInternalError(w, r, "db.get_respondent.scan", err)
				return
			}
			if alreadySubmitted {
				httpx.LogDetail(w, r, http.StatusConflict, log.DebugLevel, "respondent.already_submitted", "already responded")
				return
			}
		}

		tx, err := app.BeginTx(r.Context(), nil)
		if err != nil {
			httpx.LogInternalError(w, r, "db.begin_tx", err)
			return
		}
		defer tx.Rollback()

		responseId := newId()
		_, err = tx.ExecContext(r.Context(), `
			INSERT INTO response (id, survey_id, respondent_id, invitation_token, submitted_at)
			VALUES (?, ?, ?, ?, ?)`,
			responseId,
			surveyId,
			nullable(submission.RespondentID),
			nullable(token),
			time.Now(),
		)
		if isUniqueViolation(err) {
			httpx.LogDetail(w, r, http.StatusConflict, log.DebugLevel, "respondent.already_submitted", "already responded")
			return
		}
		if err != nil {
			httpx.LogInternalError(w, r, "db.insert_response", err)
			return
		}

		stmt, err := tx.PrepareContext(r.Context(), `
			INSERT INTO response_item (response_id, question_id, response_value)
			VALUES (?, ?, ?)`)
		if err != nil {
			httpx.LogInternalError(w, r, "db.insert_response.items.prepare", err)
			return
		}
		defer stmt.Close()

		for _, item := range submission.Responses {
			_, err := stmt.ExecContext(r.Context(), responseId, item.QuestionID, item.Value)
			if err != nil {
				httpx.LogInternalError(w, r, "db.insert_response.items.insert", err)
				return
			}
		}

		err = tx.Commit()
		if err != nil {
			httpx.LogInternalError(w, r, "db.insert_response.commit", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"message":     "response recorded",
			"response_id": responseId,
		})
	}
}

// CheckRespondent reports whether a device may still respond to a survey.
// An empty respondent id is anonymous and always allowed.
func CheckRespondent(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId := chi.URLParam(r, "id")
		respondentId := r.URL.Query().Get("respondent_id")

		canRespond := true
		if respondentId != "" {
			var found bool
			err := app.QueryRowContext(r.Context(), `
				SELECT 1 FROM response
				WHERE survey_id = ?
					AND respondent_id = ?`,
				surveyId,
				respondentId,
			).Scan(&found)
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				httpx.LogInternalError(w, r, "db.get_respondent.scan", err)
				return
			}
			canRespond = !found
		}

		render.JSON(w, r, map[string]any{
			"can_respond": canRespond,
		})
	}
}

// validateAnswers checks every answered question exists with a value in its
// type's domain and that no required question is missing. Writes the error
// response itself and reports whether one was written.
func validateAnswers(app app.App, surveyId string, submission model.SurveyResponse, w http.ResponseWriter, r *http.Request) error {
	rows, err := app.QueryContext(r.Context(), `
		SELECT id, question_type, is_required
		FROM question
		WHERE survey_id = ?`,
		surveyId,
	)
	if err != nil {
		httpx.LogInternalError(w, r, "db.get_questions", err)
		return err
	}
	defer rows.Close()

	types := map[string]model.QuestionType{}
	required := map[string]bool{}
	for rows.Next() {
		var id string
		var qtype model.QuestionType
		var req bool
		err = rows.Scan(&id, &qtype, &req)
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_questions.scan", err)
			return err
		}
		types[id] = qtype
		if req {
			required[id] = true
		}
	}
	if err := rows.Err(); err != nil {
		httpx.LogInternalError(w, r, "db.get_questions.rows", err)
		return err
	}

	answered := map[string]bool{}
	for _, item := range submission.Responses {
		qtype, ok := types[item.QuestionID]
		if !ok {
			httpx.LogDetail(w, r, http.StatusBadRequest, log.DebugLevel, "submit_response.validate", "unknown question: %s", item.QuestionID)
			return errValidation
		}
		if !model.ValidAnswerValue(qtype, item.Value) {
			httpx.LogDetail(w, r, http.StatusBadRequest, log.DebugLevel, "submit_response.validate", "invalid value for question %s", item.QuestionID)
			return errValidation
		}
		answered[item.QuestionID] = true
	}

	for id := range required {
		if !answered[id] {
			httpx.LogDetail(w, r, http.StatusBadRequest, log.DebugLevel, "submit_response.validate", "missing required responses")
			return errValidation
		}
	}
	return nil
}

var errValidation = errors.New("validation failed")

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint
}
