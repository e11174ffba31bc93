package collect

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/mlopez/surveyforge/client"
	"github.com/mlopez/surveyforge/model"
)

func testSurvey() *model.Survey {
	return &model.Survey{
		ID:    "s1",
		Title: "Satisfaction",
		Sections: []model.Section{
			{ID: "sec1", Title: "Service", Questions: []model.Question{
				{ID: "q1", Text: "Rate the service", Type: model.QuestionLikert, Required: true, Order: 0},
			}},
		},
		Questions: []model.Question{
			{ID: "q2", Text: "Would you recommend us?", Type: model.QuestionYesNo, Order: 0},
			{ID: "q3", Text: "Score 0-10", Type: model.QuestionNumeric, Required: true, Order: 1},
		},
	}
}

// fakeAPI serves the three endpoints a collection flow touches.
type fakeAPI struct {
	tokenValid bool
	canRespond bool

	submissions chan model.SurveyResponse
	submitCode  int
	submitBody  map[string]string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		tokenValid:  true,
		canRespond:  true,
		submissions: make(chan model.SurveyResponse, 8),
		submitCode:  http.StatusCreated,
		submitBody:  map[string]string{"message": "response recorded", "response_id": "r1"},
	}
}

func (f *fakeAPI) server(t *testing.T) *client.Client {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/invitations/validate", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]bool{"valid": f.tokenValid})
	})
	mux.HandleFunc("/surveys/s1/respondent-check", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]bool{"can_respond": f.canRespond})
	})
	mux.HandleFunc("/surveys/s1/responses", func(w http.ResponseWriter, r *http.Request) {
		var submitted model.SurveyResponse
		if err := json.NewDecoder(r.Body).Decode(&submitted); err != nil {
			t.Errorf("decoding submission: %s", err)
		}
		f.submissions <- submitted

		w.WriteHeader(f.submitCode)
		json.NewEncoder(w).Encode(f.submitBody)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return client.New(srv.URL)
}

func recordAll(t *testing.T, flow *Flow) {
	t.Helper()

	likert, err := Likert(4)
	if err != nil {
		t.Fatal(err)
	}
	numeric, err := Numeric(9)
	if err != nil {
		t.Fatal(err)
	}
	for id, answer := range map[string]Answer{"q1": likert, "q2": YesNo(true), "q3": numeric} {
		if err := flow.Record(id, answer); err != nil {
			t.Fatalf("Record(%s): %s", id, err)
		}
	}
}

func TestAnswerConstructors(t *testing.T) {
	if a, err := Likert(3); err != nil || a != "3" {
		t.Errorf("Likert(3) = %q, %v", a, err)
	}
	if _, err := Likert(0); err == nil {
		t.Error("Likert(0) should fail")
	}
	if _, err := Likert(6); err == nil {
		t.Error("Likert(6) should fail")
	}
	if YesNo(true) != Answer(model.AnswerYes) || YesNo(false) != Answer(model.AnswerNo) {
		t.Error("YesNo must emit the literal stored answers")
	}
	if a, err := Numeric(10); err != nil || a != "10" {
		t.Errorf("Numeric(10) = %q, %v", a, err)
	}
	if _, err := Numeric(11); err == nil {
		t.Error("Numeric(11) should fail")
	}
}

func TestBeginGates(t *testing.T) {
	t.Run("valid link and fresh device", func(t *testing.T) {
		api := newFakeAPI()
		flow := New(api.server(t), testSurvey(), "respondent_abc", "tok1")
		if err := flow.Begin(context.Background()); err != nil {
			t.Fatalf("Begin() = %s", err)
		}
	})

	t.Run("invalid link is terminal", func(t *testing.T) {
		api := newFakeAPI()
		api.tokenValid = false
		flow := New(api.server(t), testSurvey(), "respondent_abc", "tok1")
		if err := flow.Begin(context.Background()); !errors.Is(err, ErrLinkInvalid) {
			t.Fatalf("Begin() = %v, want ErrLinkInvalid", err)
		}
	})

	t.Run("device already responded", func(t *testing.T) {
		api := newFakeAPI()
		api.canRespond = false
		flow := New(api.server(t), testSurvey(), "respondent_abc", "")
		if err := flow.Begin(context.Background()); !errors.Is(err, ErrAlreadyResponded) {
			t.Fatalf("Begin() = %v, want ErrAlreadyResponded", err)
		}
	})

	t.Run("no token skips the invitation gate", func(t *testing.T) {
		api := newFakeAPI()
		api.tokenValid = false
		flow := New(api.server(t), testSurvey(), "respondent_abc", "")
		if err := flow.Begin(context.Background()); err != nil {
			t.Fatalf("Begin() = %s", err)
		}
	})
}

func TestRecordValidatesDomain(t *testing.T) {
	flow := New(nil, testSurvey(), "", "")

	if err := flow.Record("q1", Answer("6")); err == nil {
		t.Error("out-of-range likert accepted")
	}
	if err := flow.Record("q2", Answer("yes")); err == nil {
		t.Error("non-literal yes/no accepted")
	}
	if err := flow.Record("nope", Answer("1")); err == nil {
		t.Error("unknown question accepted")
	}

	if err := flow.Record("q1", Answer("2")); err != nil {
		t.Fatalf("Record(q1) = %s", err)
	}
	if err := flow.Record("q1", Answer("5")); err != nil {
		t.Fatalf("re-Record(q1) = %s", err)
	}
	if answer, ok := flow.Value("q1"); !ok || answer != "5" {
		t.Errorf("Value(q1) = %q, %v; want replacement to win", answer, ok)
	}

	if answered, total := flow.Progress(); answered != 1 || total != 3 {
		t.Errorf("Progress() = %d/%d, want 1/3", answered, total)
	}
}

func TestCanSubmitRequiresAllRequired(t *testing.T) {
	flow := New(nil, testSurvey(), "", "")
	if flow.CanSubmit() {
		t.Fatal("empty flow should not be submittable")
	}

	// q2 is optional; answering only it never enables submission
	flow.Record("q2", YesNo(false))
	if flow.CanSubmit() {
		t.Fatal("optional answer alone should not enable submission")
	}

	flow.Record("q1", Answer("4"))
	if flow.CanSubmit() {
		t.Fatal("q3 is required and unanswered")
	}

	flow.Record("q3", Answer("7"))
	if !flow.CanSubmit() {
		t.Fatal("all required questions answered, should be submittable")
	}
}

func TestSubmitSendsWalkOrderPayload(t *testing.T) {
	api := newFakeAPI()
	flow := New(api.server(t), testSurvey(), "respondent_abc", "tok1")
	recordAll(t, flow)

	responseId, err := flow.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit() = %s", err)
	}
	if responseId != "r1" {
		t.Errorf("response id = %q, want r1", responseId)
	}

	submitted := <-api.submissions
	if submitted.SurveyID != "s1" || submitted.RespondentID != "respondent_abc" || submitted.InvitationToken != "tok1" {
		t.Errorf("submission envelope = %+v", submitted)
	}
	want := []model.QuestionResponse{
		{QuestionID: "q1", Value: "4"},
		{QuestionID: "q2", Value: model.AnswerYes},
		{QuestionID: "q3", Value: "9"},
	}
	if len(submitted.Responses) != len(want) {
		t.Fatalf("responses = %+v, want %+v", submitted.Responses, want)
	}
	for i := range want {
		if submitted.Responses[i] != want[i] {
			t.Errorf("responses[%d] = %+v, want %+v", i, submitted.Responses[i], want[i])
		}
	}
}

func TestSubmitBlockedWhenIncomplete(t *testing.T) {
	api := newFakeAPI()
	flow := New(api.server(t), testSurvey(), "respondent_abc", "")
	if _, err := flow.Submit(context.Background()); !errors.Is(err, ErrIncomplete) {
		t.Fatalf("Submit() = %v, want ErrIncomplete", err)
	}
}

func TestSubmitRechecksDevice(t *testing.T) {
	api := newFakeAPI()
	api.canRespond = false
	flow := New(api.server(t), testSurvey(), "respondent_abc", "")
	recordAll(t, flow)

	if _, err := flow.Submit(context.Background()); !errors.Is(err, ErrAlreadyResponded) {
		t.Fatalf("Submit() = %v, want ErrAlreadyResponded", err)
	}
	select {
	case submitted := <-api.submissions:
		t.Errorf("submission went through anyway: %+v", submitted)
	default:
	}
}

func TestSubmitRecheckFailureIsNotBlocking(t *testing.T) {
	var submissions atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/surveys/s1/respondent-check", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/surveys/s1/responses", func(w http.ResponseWriter, r *http.Request) {
		submissions.Add(1)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"message": "response recorded", "response_id": "r1"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	flow := New(client.New(srv.URL), testSurvey(), "respondent_abc", "")
	recordAll(t, flow)

	if _, err := flow.Submit(context.Background()); err != nil {
		t.Fatalf("Submit() = %s", err)
	}
	if submissions.Load() != 1 {
		t.Errorf("submissions = %d, want 1", submissions.Load())
	}
}

func TestSubmitSurfacesServerRejection(t *testing.T) {
	api := newFakeAPI()
	api.submitCode = http.StatusConflict
	api.submitBody = map[string]string{"detail": "already responded"}
	flow := New(api.server(t), testSurvey(), "", "")
	recordAll(t, flow)

	_, err := flow.Submit(context.Background())
	apiErr := &client.APIError{}
	if !errors.As(err, &apiErr) {
		t.Fatalf("Submit() = %v, want *client.APIError", err)
	}
	if apiErr.StatusCode != http.StatusConflict || apiErr.Detail != "already responded" {
		t.Errorf("APIError = %+v", apiErr)
	}
}
