package routes

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/mlopez/surveyforge/app"
	"github.com/mlopez/surveyforge/httpx"
	"github.com/mlopez/surveyforge/model"
)

// GetSurveyStats precomputes the per-question distributions the stats view
// renders; the client only derives the completion rate from this document.
func GetSurveyStats(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId := chi.URLParam(r, "id")

		survey, err := loadSurvey(r.Context(), app.DB, surveyId)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, r, "get_stats", surveyId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_survey", err)
			return
		}

		stat := model.SurveyStat{
			SurveyID:  survey.ID,
			Title:     survey.Title,
			Sections:  []model.SectionStat{},
			Questions: []model.QuestionStat{},
		}

		err = app.QueryRowContext(r.Context(),
			`SELECT COUNT(*) FROM response WHERE survey_id = ?`, surveyId,
		).Scan(&stat.TotalResponses)
		if err != nil {
			httpx.LogInternalError(w, r, "db.count_responses", err)
			return
		}

		rows, err := app.QueryContext(r.Context(), `
			SELECT ri.question_id, ri.response_value
			FROM response_item ri
			INNER JOIN response r ON (r.id = ri.response_id)
			WHERE r.survey_id = ?`,
			surveyId,
		)
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_response_items", err)
			return
		}
		defer rows.Close()

		values := map[string][]string{}
		for rows.Next() {
			var questionId, value string
			err = rows.Scan(&questionId, &value)
			if err != nil {
				httpx.LogInternalError(w, r, "db.get_response_items.scan", err)
				return
			}
			values[questionId] = append(values[questionId], value)
		}
		if err := rows.Err(); err != nil {
			httpx.LogInternalError(w, r, "db.get_response_items.rows", err)
			return
		}

		for _, sec := range survey.Sections {
			secStat := model.SectionStat{
				SectionID: sec.ID,
				Title:     sec.Title,
				Order:     sec.Order,
				Questions: []model.QuestionStat{},
			}
			for _, q := range sec.Questions {
				secStat.Questions = append(secStat.Questions, questionStat(q, values[q.ID]))
			}
			stat.Sections = append(stat.Sections, secStat)
		}
		for _, q := range survey.Questions {
			stat.Questions = append(stat.Questions, questionStat(q, values[q.ID]))
		}

		render.JSON(w, r, stat)
	}
}

func questionStat(q model.Question, values []string) model.QuestionStat {
	stat := model.QuestionStat{
		QuestionID:     q.ID,
		QuestionText:   q.Text,
		QuestionType:   q.Type,
		TotalResponses: len(values),
		Distribution:   map[string]int{},
	}

	sum, count := 0, 0
	var min, max float64
	for _, v := range values {
		stat.Distribution[v]++

		if q.Type == model.QuestionYesNo {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			continue
		}
		if count == 0 || float64(n) < min {
			min = float64(n)
		}
		if count == 0 || float64(n) > max {
			max = float64(n)
		}
		sum += n
		count++
	}

	if count > 0 {
		avg := float64(sum) / float64(count)
		stat.AverageValue = &avg
		stat.MinValue = &min
		stat.MaxValue = &max
	}
	return stat
}

type exportedResponse struct {
	ID              string                   `json:"id"`
	RespondentID    string                   `json:"respondent_id,omitempty"`
	InvitationToken string                   `json:"invitation_token,omitempty"`
	SubmittedAt     time.Time                `json:"submitted_at"`
	Answers         []model.QuestionResponse `json:"answers"`
}

// ExportSurvey dumps the survey definition with every recorded response.
func ExportSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId := chi.URLParam(r, "id")

		survey, err := loadSurvey(r.Context(), app.DB, surveyId)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, r, "export_survey", surveyId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_survey", err)
			return
		}

		rows, err := app.QueryContext(r.Context(), `
			SELECT
				r.id, r.respondent_id, r.invitation_token, r.submitted_at,
				ri.question_id, ri.response_value
			FROM response r
			LEFT OUTER JOIN response_item ri ON (r.id = ri.response_id)
			WHERE r.survey_id = ?
			ORDER BY r.submitted_at, r.id`,
			surveyId,
		)
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_responses", err)
			return
		}
		defer rows.Close()

		responses := []exportedResponse{}
		for rows.Next() {
			var (
				id              string
				respondentId    sql.NullString
				invitationToken sql.NullString
				submittedAt     time.Time
				questionId      sql.NullString
				value           sql.NullString
			)
			err = rows.Scan(&id, &respondentId, &invitationToken, &submittedAt, &questionId, &value)
			if err != nil {
				httpx.LogInternalError(w, r, "db.get_responses.scan", err)
				return
			}

			lastIdx := len(responses) - 1
			if lastIdx < 0 || responses[lastIdx].ID != id {
				responses = append(responses, exportedResponse{
					ID:              id,
					RespondentID:    respondentId.String,
					InvitationToken: invitationToken.String,
					SubmittedAt:     submittedAt,
					Answers:         []model.QuestionResponse{},
				})
				lastIdx++
			}
			if questionId.Valid {
				responses[lastIdx].Answers = append(responses[lastIdx].Answers, model.QuestionResponse{
					QuestionID: questionId.String,
					Value:      value.String,
				})
			}
		}
		if err := rows.Err(); err != nil {
			httpx.LogInternalError(w, r, "db.get_responses.rows", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"survey":      survey,
			"responses":   responses,
			"exported_at": time.Now(),
		})
	}
}
