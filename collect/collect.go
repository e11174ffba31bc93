// Package collect walks a respondent through a survey: it gates entry on
// the invitation link and the device identity, records per-question
// answers, enforces required-question completeness and submits the batch
// atomically.
package collect

import (
	"context"
	"errors"
	"strconv"

	"github.com/mlopez/surveyforge/client"
	"github.com/mlopez/surveyforge/log"
	"github.com/mlopez/surveyforge/model"
)

var (
	// ErrLinkInvalid is terminal: the flow must not render the survey.
	ErrLinkInvalid = errors.New("invitation link is not valid")
	// ErrAlreadyResponded is recoverable: the survey stays viewable but
	// submission is blocked.
	ErrAlreadyResponded = errors.New("this device has already responded")
	ErrSubmitInFlight   = errors.New("a submission is already in progress")
	ErrIncomplete       = errors.New("required questions are missing answers")
)

// Answer is an encoded response value.
type Answer string

// Likert encodes a 1..5 satisfaction rating.
func Likert(value int) (Answer, error) {
	if value < 1 || value > 5 {
		return "", errors.New("likert value must be between 1 and 5")
	}
	return Answer(strconv.Itoa(value)), nil
}

// YesNo encodes a yes/no choice as the literal localized string.
func YesNo(yes bool) Answer {
	if yes {
		return Answer(model.AnswerYes)
	}
	return Answer(model.AnswerNo)
}

// Numeric encodes a 0..10 rating.
func Numeric(value int) (Answer, error) {
	if value < 0 || value > 10 {
		return "", errors.New("numeric value must be between 0 and 10")
	}
	return Answer(strconv.Itoa(value)), nil
}

// Flow is owned by a single respondent view; it is not safe for concurrent
// use.
type Flow struct {
	api    *client.Client
	survey *model.Survey

	// threaded explicitly so the flow has no hidden ambient state
	respondentId    string
	invitationToken string

	answers    map[string]Answer
	submitting bool
}

func New(api *client.Client, survey *model.Survey, respondentId, invitationToken string) *Flow {
	return &Flow{
		api:             api,
		survey:          survey,
		respondentId:    respondentId,
		invitationToken: invitationToken,
		answers:         map[string]Answer{},
	}
}

// Begin runs the two eligibility gates in sequence before the survey is
// rendered: the invitation gate (only when a token is present) and the
// device gate. Both are advisory; the server is the actual arbiter at
// submission time.
func (f *Flow) Begin(ctx context.Context) error {
	if f.invitationToken != "" {
		valid, err := f.api.ValidateInvitation(ctx, f.invitationToken)
		if err != nil {
			return err
		}
		if !valid {
			return ErrLinkInvalid
		}
	}

	if f.respondentId != "" {
		canRespond, err := f.api.CheckRespondent(ctx, f.survey.ID, f.respondentId)
		if err != nil {
			return err
		}
		if !canRespond {
			return ErrAlreadyResponded
		}
	}
	return nil
}

// Record stores the answer for a question, replacing any previous one. The
// value must be in the question type's answer domain.
func (f *Flow) Record(questionId string, answer Answer) error {
	q := f.question(questionId)
	if q == nil {
		return errors.New("unknown question: " + questionId)
	}
	if !model.ValidAnswerValue(q.Type, string(answer)) {
		return errors.New("invalid answer for question type " + string(q.Type))
	}
	f.answers[questionId] = answer
	return nil
}

// Value returns the recorded answer for a question, if any.
func (f *Flow) Value(questionId string) (Answer, bool) {
	answer, ok := f.answers[questionId]
	return answer, ok
}

// Progress reports how many questions have been answered out of the total.
func (f *Flow) Progress() (answered, total int) {
	return len(f.answers), len(f.survey.AllQuestions())
}

// CanSubmit reports whether every required question, sectioned or not, has
// a recorded answer.
func (f *Flow) CanSubmit() bool {
	for _, q := range f.survey.AllQuestions() {
		if q.Required {
			if _, ok := f.answers[q.ID]; !ok {
				return false
			}
		}
	}
	return true
}

// Submit sends the batch. At most one submission is in flight at a time.
// The device gate is re-run first to narrow the window since page load; the
// recheck itself is best effort (a failing call is logged, not blocking)
// and is not atomic with the write. Strict one-response-per-device is the
// server's unique constraint, not this check.
func (f *Flow) Submit(ctx context.Context) (responseId string, err error) {
	if f.submitting {
		return "", ErrSubmitInFlight
	}
	f.submitting = true
	defer func() { f.submitting = false }()

	if !f.CanSubmit() {
		return "", ErrIncomplete
	}

	if f.respondentId != "" {
		canRespond, err := f.api.CheckRespondent(ctx, f.survey.ID, f.respondentId)
		if err != nil {
			log.Debugf("collect.recheck_respondent: %s", err)
		} else if !canRespond {
			return "", ErrAlreadyResponded
		}
	}

	receipt, err := f.api.SubmitResponse(ctx, f.survey.ID, f.payload())
	if err != nil {
		return "", err
	}
	return receipt.ResponseID, nil
}

// payload emits answers in the order the respondent walks the survey.
func (f *Flow) payload() model.SurveyResponse {
	response := model.SurveyResponse{
		SurveyID:        f.survey.ID,
		RespondentID:    f.respondentId,
		InvitationToken: f.invitationToken,
	}
	for _, q := range f.survey.AllQuestions() {
		if answer, ok := f.answers[q.ID]; ok {
			response.Responses = append(response.Responses, model.QuestionResponse{
				QuestionID: q.ID,
				Value:      string(answer),
			})
		}
	}
	return response
}

func (f *Flow) question(id string) *model.Question {
	for _, q := range f.survey.AllQuestions() {
		if q.ID == id {
			q := q
			return &q
		}
	}
	return nil
}
