package model

type QuestionStat struct {
	QuestionID     string         `json:"question_id"`
	QuestionText   string         `json:"question_text"`
	QuestionType   QuestionType   `json:"question_type"`
	TotalResponses int            `json:"total_responses"`
	AverageValue   *float64       `json:"average_value,omitempty"`
	MinValue       *float64       `json:"min_value,omitempty"`
	MaxValue       *float64       `json:"max_value,omitempty"`
	Distribution   map[string]int `json:"distribution"`
}

type SectionStat struct {
	SectionID string         `json:"section_id"`
	Title     string         `json:"title"`
	Order     int            `json:"section_order"`
	Questions []QuestionStat `json:"questions"`
}

type SurveyStat struct {
	SurveyID       string         `json:"survey_id"`
	Title          string         `json:"title"`
	TotalResponses int            `json:"total_responses"`
	Sections       []SectionStat  `json:"sections"`
	Questions      []QuestionStat `json:"questions"`
}

// CompletionRate derives the overall completion percentage: answers recorded
// over answers possible, rounded to the nearest percent, 0 when the survey
// has no questions or no responses.
func (s *SurveyStat) CompletionRate() int {
	questions := len(s.Questions)
	answered := 0
	for _, q := range s.Questions {
		answered += q.TotalResponses
	}
	for _, sec := range s.Sections {
		questions += len(sec.Questions)
		for _, q := range sec.Questions {
			answered += q.TotalResponses
		}
	}

	possible := s.TotalResponses * questions
	if possible == 0 {
		return 0
	}
	return int(float64(answered)/float64(possible)*100 + 0.5)
}
