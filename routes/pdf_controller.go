package routes

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"codeberg.org/go-pdf/fpdf"
	"github.com/go-chi/chi/v5"
	"github.com/mlopez/surveyforge/app"
	"github.com/mlopez/surveyforge/httpx"
	"github.com/mlopez/surveyforge/model"
)

var reSlug = regexp.MustCompile(`[^a-z0-9]+`)

// DownloadSurveyPDF renders the survey as a printable questionnaire.
func DownloadSurveyPDF(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId := chi.URLParam(r, "id")

		survey, err := loadSurvey(r.Context(), app.DB, surveyId)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, r, "survey_pdf", surveyId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_survey", err)
			return
		}

		filename := fmt.Sprintf("%s_%s.pdf", slug(survey.Title), time.Now().Format("2006-01-02"))
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

		err = renderSurveyPDF(survey, w)
		if err != nil {
			httpx.LogInternalError(w, r, "pdf.render", err)
		}
	}
}

func slug(title string) string {
	s := reSlug.ReplaceAllString(strings.ToLower(title), "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "survey"
	}
	return s
}

type pdfWriter struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func renderSurveyPDF(survey *model.Survey, out io.Writer) error {
	pageSize := survey.PDFSettings.PageSize
	if pageSize != "A4" && pageSize != "Letter" {
		pageSize = "A4"
	}

	pdf := fpdf.New("P", "mm", pageSize, "")
	pdf.SetTitle(survey.Title, true)
	w := pdfWriter{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}

	if survey.FooterText != "" {
		pdf.SetFooterFunc(func() {
			pdf.SetY(-15)
			pdf.SetFont("Helvetica", "I", 8)
			pdf.SetTextColor(128, 128, 128)
			pdf.CellFormat(0, 10, w.tr(survey.FooterText), "", 0, "C", false, 0, "")
		})
	}

	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetTextColor(0, 0, 0)
	pdf.MultiCell(0, 9, w.tr(survey.Title), "", "L", false)
	if survey.Description != "" {
		pdf.SetFont("Helvetica", "", 11)
		pdf.SetTextColor(80, 80, 80)
		pdf.MultiCell(0, 6, w.tr(survey.Description), "", "L", false)
	}
	if survey.Instructions != "" {
		pdf.Ln(2)
		pdf.SetFont("Helvetica", "I", 10)
		pdf.SetTextColor(60, 60, 60)
		pdf.MultiCell(0, 5, w.tr(survey.Instructions), "1", "L", false)
	}
	pdf.Ln(4)

	number := 0
	for _, sec := range survey.Sections {
		pdf.SetFont("Helvetica", "B", 13)
		pdf.SetTextColor(0, 0, 0)
		pdf.MultiCell(0, 8, w.tr(sec.Title), "", "L", false)
		if sec.Description != "" {
			pdf.SetFont("Helvetica", "", 10)
			pdf.SetTextColor(80, 80, 80)
			pdf.MultiCell(0, 5, w.tr(sec.Description), "", "L", false)
		}
		pdf.Ln(1)
		for _, q := range sec.Questions {
			number++
			w.writeQuestion(number, q)
		}
		pdf.Ln(2)
	}
	for _, q := range survey.Questions {
		number++
		w.writeQuestion(number, q)
	}

	return pdf.Output(out)
}

func (w pdfWriter) writeQuestion(number int, q model.Question) {
	pdf := w.pdf

	text := fmt.Sprintf("%d. %s", number, q.Text)
	if q.Required {
		text += " *"
	}
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetTextColor(0, 0, 0)
	pdf.MultiCell(0, 6, w.tr(text), "", "L", false)

	if q.HelpText != "" {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.SetTextColor(100, 100, 100)
		pdf.MultiCell(0, 5, w.tr(q.HelpText), "", "L", false)
	}

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(0, 0, 0)
	switch q.Type {
	case model.QuestionLikert:
		w.writeChoiceBoxes([]string{"1", "2", "3", "4", "5"})
		pdf.SetFont("Helvetica", "", 8)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(0, 5, w.tr("1 = Muy insatisfecho, 5 = Muy satisfecho"), "", 1, "L", false, 0, "")
	case model.QuestionYesNo:
		w.writeChoiceBoxes([]string{model.AnswerYes, model.AnswerNo})
	case model.QuestionNumeric:
		labels := make([]string, 11)
		for i := range labels {
			labels[i] = fmt.Sprintf("%d", i)
		}
		w.writeChoiceBoxes(labels)
	}
	pdf.Ln(4)
}

func (w pdfWriter) writeChoiceBoxes(labels []string) {
	pdf := w.pdf
	for _, label := range labels {
		pdf.CellFormat(8, 8, "", "1", 0, "C", false, 0, "")
		pdf.CellFormat(10, 8, w.tr(label), "", 0, "L", false, 0, "")
	}
	pdf.Ln(10)
}
