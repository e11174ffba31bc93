package routes

import (
	"context"
	"database/sql"
	"errors"
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

func CreateSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		survey := model.Survey{}
		err := render.DecodeJSON(r.Body, &survey)
		if err != nil {
			httpx.LogStatus(w, r, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		if strings.TrimSpace(survey.Title) == "" {
			httpx.LogDetail(w, r, http.StatusBadRequest, log.DebugLevel, "create_survey.validate", "title is required")
			return
		}
		if err := validQuestionTypes(survey); err != nil {
			httpx.LogDetail(w, r, http.StatusBadRequest, log.DebugLevel, "create_survey.validate", "%s", err)
			return
		}

		tx, err := app.BeginTx(r.Context(), nil)
		if err != nil {
			httpx.LogInternalError(w, r, "db.begin_tx", err)
			return
		}
		defer tx.Rollback()

		surveyId := newId()
		now := time.Now()
		_, err = tx.ExecContext(r.Context(), `
			INSERT INTO survey (
				id, title, description, instructions, header_image_url, footer_text,
				pdf_page_size, pdf_theme_color, is_active, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			surveyId,
			survey.Title,
			survey.Description,
			survey.Instructions,
			survey.HeaderImageURL,
			survey.FooterText,
			pageSizeOrDefault(survey.PDFSettings.PageSize),
			themeColorOrDefault(survey.PDFSettings.ThemeColor),
			survey.IsActive,
			now,
			now,
		)
		if err != nil {
			httpx.LogInternalError(w, r, "db.insert_survey", err)
			return
		}

		err = insertSurveyChildren(r.Context(), tx, surveyId, survey, now)
		if err != nil {
			httpx.LogInternalError(w, r, "db.insert_survey.children", err)
			return
		}

		err = tx.Commit()
		if err != nil {
			httpx.LogInternalError(w, r, "db.insert_survey.commit", err)
			return
		}

		created, err := loadSurvey(r.Context(), app.DB, surveyId)
		if err != nil {
			httpx.LogInternalError(w, r, "db.insert_survey.reload", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, created)
	}
}

func ListSurveys(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := app.QueryContext(r.Context(), `
			SELECT
				s.id, s.title, s.description, s.is_active, s.created_at, s.updated_at,
				(SELECT COUNT(*) FROM response r WHERE r.survey_id = s.id)
			FROM survey s
			ORDER BY s.created_at DESC`)
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_surveys", err)
			return
		}
		defer rows.Close()

		surveys := []model.Survey{}
		for rows.Next() {
			s := model.Survey{}
			err = rows.Scan(&s.ID, &s.Title, &s.Description, &s.IsActive, &s.CreatedAt, &s.UpdatedAt, &s.TotalResponses)
			if err != nil {
				httpx.LogInternalError(w, r, "db.get_surveys.scan", err)
				return
			}

			surveys = append(surveys, s)
		}

		render.JSON(w, r, map[string]any{
			"surveys": surveys,
		})
	}
}

func GetSurveyById(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId := chi.URLParam(r, "id")

		survey, err := loadSurvey(r.Context(), app.DB, surveyId)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, r, "get_survey", surveyId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_survey", err)
			return
		}

		render.JSON(w, r, survey)
	}
}

func UpdateSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId := chi.URLParam(r, "id")

		survey := model.Survey{}
		err := render.DecodeJSON(r.Body, &survey)
		if err != nil {
			httpx.LogStatus(w, r, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		if strings.TrimSpace(survey.Title) == "" {
			httpx.LogDetail(w, r, http.StatusBadRequest, log.DebugLevel, "update_survey.validate", "title is required")
			return
		}
		if err := validQuestionTypes(survey); err != nil {
			httpx.LogDetail(w, r, http.StatusBadRequest, log.DebugLevel, "update_survey.validate", "%s", err)
			return
		}

		tx, err := app.BeginTx(r.Context(), nil)
		if err != nil {
			httpx.LogInternalError(w, r, "db.begin_tx", err)
			return
		}
		defer tx.Rollback()

		now := time.Now()
		res, err := tx.ExecContext(r.Context(), `
			UPDATE survey
			SET
				title = ?,
				description = ?,
				instructions = ?,
				header_image_url = ?,
				footer_text = ?,
				pdf_page_size = ?,
				pdf_theme_color = ?,
				is_active = ?,
				updated_at = ?
			WHERE id = ?`,
			survey.Title,
			survey.Description,
			survey.Instructions,
			survey.HeaderImageURL,
			survey.FooterText,
			pageSizeOrDefault(survey.PDFSettings.PageSize),
			themeColorOrDefault(survey.PDFSettings.ThemeColor),
			survey.IsActive,
			now,
			surveyId,
		)
		if err != nil {
			httpx.LogInternalError(w, r, "db.update_survey", err)
			return
		}
		n, err := res.RowsAffected()
		if err != nil {
			httpx.LogInternalError(w, r, "db.update_survey.verify", err)
			return
		}
		if n < 1 {
			httpx.LogNotFound(w, r, "update_survey", surveyId)
			return
		}

		// delete and recreate all sections and questions
		_, err = tx.ExecContext(r.Context(), `DELETE FROM question WHERE survey_id = ?`, surveyId)
		if err != nil {
			httpx.LogInternalError(w, r, "db.update_survey.delete_questions", err)
			return
		}
		_, err = tx.ExecContext(r.Context(), `DELETE FROM section WHERE survey_id = ?`, surveyId)
		if err != nil {
			httpx.LogInternalError(w, r, "db.update_survey.delete_sections", err)
			return
		}

		err = insertSurveyChildren(r.Context(), tx, surveyId, survey, now)
		if err != nil {
			httpx.LogInternalError(w, r, "db.update_survey.children", err)
			return
		}

		err = tx.Commit()
		if err != nil {
			httpx.LogInternalError(w, r, "db.update_survey.commit", err)
			return
		}

		updated, err := loadSurvey(r.Context(), app.DB, surveyId)
		if err != nil {
			httpx.LogInternalError(w, r, "db.update_survey.reload", err)
			return
		}

		render.JSON(w, r, updated)
	}
}

func DeleteSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId := chi.URLParam(r, "id")

		res, err := app.ExecContext(r.Context(), `DELETE FROM survey WHERE id = ?`, surveyId)
		if err != nil {
			httpx.LogInternalError(w, r, "db.delete_survey", err)
			return
		}
		n, err := res.RowsAffected()
		if err != nil {
			httpx.LogInternalError(w, r, "db.delete_survey.verify", err)
			return
		}
		if n < 1 {
			httpx.LogNotFound(w, r, "delete_survey", surveyId)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// insertSurveyChildren recreates section and question rows from the payload.
// Orders are reassigned from list positions so they are always dense,
// whatever the client sent.
func insertSurveyChildren(ctx context.Context, tx *sql.Tx, surveyId string, survey model.Survey, now time.Time) error {
	sectionStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO section (id, survey_id, title, description, section_order)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer sectionStmt.Close()

	questionStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO question (
			id, survey_id, section_id,
			question_text, question_type, help_text, question_image_url,
			is_required, question_order, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer questionStmt.Close()

	insertQuestion := func(q model.Question, sectionId any, order int) error {
		_, err := questionStmt.ExecContext(ctx,
			newId(), surveyId, sectionId,
			q.Text, q.Type, q.HelpText, q.ImageURL,
			q.Required, order, now,
		)
		return err
	}

	for i, sec := range survey.Sections {
		sectionId := newId()
		_, err = sectionStmt.ExecContext(ctx, sectionId, surveyId, sec.Title, sec.Description, i)
		if err != nil {
			return err
		}
		for j, q := range sec.Questions {
			if err := insertQuestion(q, sectionId, j); err != nil {
				return err
			}
		}
	}
	for i, q := range survey.Questions {
		if err := insertQuestion(q, nil, i); err != nil {
			return err
		}
	}
	return nil
}

// loadSurvey assembles a full survey with ordered sections and questions.
// Returns sql.ErrNoRows when the survey does not exist.
func loadSurvey(ctx context.Context, db *sql.DB, surveyId string) (*model.Survey, error) {
	survey := model.Survey{
		Sections:  []model.Section{},
		Questions: []model.Question{},
	}
	err := db.QueryRowContext(ctx, `
		SELECT
			id, title, description, instructions, header_image_url, footer_text,
			pdf_page_size, pdf_theme_color, is_active, created_at, updated_at
		FROM survey
		WHERE id = ?`,
		surveyId,
	).Scan(
		&survey.ID, &survey.Title, &survey.Description, &survey.Instructions,
		&survey.HeaderImageURL, &survey.FooterText,
		&survey.PDFSettings.PageSize, &survey.PDFSettings.ThemeColor,
		&survey.IsActive, &survey.CreatedAt, &survey.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	sectionIdx := map[string]int{}
	rows, err := db.QueryContext(ctx, `
		SELECT id, title, description, section_order
		FROM section
		WHERE survey_id = ?
		ORDER BY section_order`,
		surveyId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		sec := model.Section{Questions: []model.Question{}}
		err = rows.Scan(&sec.ID, &sec.Title, &sec.Description, &sec.Order)
		if err != nil {
			return nil, err
		}
		sectionIdx[sec.ID] = len(survey.Sections)
		survey.Sections = append(survey.Sections, sec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = db.QueryContext(ctx, `
		SELECT
			id, section_id, question_text, question_type, help_text,
			question_image_url, is_required, question_order, created_at
		FROM question
		WHERE survey_id = ?
		ORDER BY question_order`,
		surveyId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		q := model.Question{}
		var sectionId sql.NullString
		err = rows.Scan(
			&q.ID, &sectionId, &q.Text, &q.Type, &q.HelpText,
			&q.ImageURL, &q.Required, &q.Order, &q.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		if sectionId.Valid {
			q.SectionID = sectionId.String
			if idx, ok := sectionIdx[sectionId.String]; ok {
				survey.Sections[idx].Questions = append(survey.Sections[idx].Questions, q)
				continue
			}
		}
		survey.Questions = append(survey.Questions, q)
	}
	return &survey, rows.Err()
}

func validQuestionTypes(survey model.Survey) error {
	check := func(qs []model.Question) error {
		for _, q := range qs {
			if !q.Type.Valid() {
				return errors.New("invalid question type: " + string(q.Type))
			}
		}
		return nil
	}
	for _, sec := range survey.Sections {
		if err := check(sec.Questions); err != nil {
			return err
		}
	}
	return check(survey.Questions)
}

func pageSizeOrDefault(size string) string {
	if size == "" {
		return "A4"
	}
	return size
}

func themeColorOrDefault(color string) string {
	if color == "" {
		return "#3B82F6"
	}
	return color
}

func newId() string {
	return uuid.Must(uuid.NewV4()).String()
}
