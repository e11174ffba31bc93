package model

import (
	"strconv"
	"time"
)

type QuestionType string

const (
	QuestionLikert  QuestionType = "likert"
	QuestionYesNo   QuestionType = "yesno"
	QuestionNumeric QuestionType = "numeric"
)

func (t QuestionType) Valid() bool {
	switch t {
	case QuestionLikert, QuestionYesNo, QuestionNumeric:
		return true
	}
	return false
}

// Localized yes/no answers are stored literally.
const (
	AnswerYes = "Sí"
	AnswerNo  = "No"
)

type Survey struct {
	ID             string      `json:"id,omitempty"`
	Title          string      `json:"title"`
	Description    string      `json:"description"`
	Instructions   string      `json:"instructions,omitempty"`
	HeaderImageURL string      `json:"header_image_url,omitempty"`
	FooterText     string      `json:"footer_text,omitempty"`
	PDFSettings    PDFSettings `json:"pdf_settings"`
	IsActive       bool        `json:"is_active"`
	CreatedAt      time.Time   `json:"created_at,omitempty"`
	UpdatedAt      time.Time   `json:"updated_at,omitempty"`
	Sections       []Section   `json:"sections"`
	Questions      []Question  `json:"questions"`
	TotalResponses int         `json:"total_responses,omitempty"`
}

type PDFSettings struct {
	PageSize   string `json:"page_size"`
	ThemeColor string `json:"theme_color"`
}

type Section struct {
	ID          string     `json:"id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Order       int        `json:"section_order"`
	Questions   []Question `json:"questions"`
}

type Question struct {
	ID        string       `json:"id,omitempty"`
	Text      string       `json:"question_text"`
	Type      QuestionType `json:"question_type"`
	HelpText  string       `json:"help_text,omitempty"`
	ImageURL  string       `json:"question_image_url,omitempty"`
	Required  bool         `json:"is_required"`
	Order     int          `json:"question_order"`
	SectionID string       `json:"section_id,omitempty"`
	CreatedAt time.Time    `json:"created_at,omitempty"`
}

// AllQuestions yields sectioned questions first (in section order), then the
// unsectioned list, matching the order a respondent walks the survey in.
func (s *Survey) AllQuestions() []Question {
	all := make([]Question, 0, len(s.Questions))
	for _, sec := range s.Sections {
		all = append(all, sec.Questions...)
	}
	return append(all, s.Questions...)
}

type QuestionResponse struct {
	QuestionID string `json:"question_id"`
	Value      string `json:"response_value"`
}

// SurveyResponse is submitted atomically as one unit.
type SurveyResponse struct {
	SurveyID        string             `json:"survey_id"`
	RespondentID    string             `json:"respondent_id,omitempty"`
	InvitationToken string             `json:"invitation_token,omitempty"`
	Responses       []QuestionResponse `json:"responses"`
}

// ValidAnswerValue reports whether value is in the answer domain of the
// question type: likert "1".."5", yes/no the literal localized strings,
// numeric "0".."10".
func ValidAnswerValue(t QuestionType, value string) bool {
	switch t {
	case QuestionLikert:
		n, err := strconv.Atoi(value)
		return err == nil && n >= 1 && n <= 5
	case QuestionYesNo:
		return value == AnswerYes || value == AnswerNo
	case QuestionNumeric:
		n, err := strconv.Atoi(value)
		return err == nil && n >= 0 && n <= 10
	}
	return false
}
