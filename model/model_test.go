package model

import (
	"testing"
	"time"
)

func TestValidAnswerValue(t *testing.T) {
	cases := []struct {
		qtype QuestionType
		value string
		want  bool
	}{
		{QuestionLikert, "1", true},
		{QuestionLikert, "5", true},
		{QuestionLikert, "0", false},
		{QuestionLikert, "6", false},
		{QuestionLikert, "3.5", false},
		{QuestionLikert, "", false},
		{QuestionYesNo, AnswerYes, true},
		{QuestionYesNo, AnswerNo, true},
		{QuestionYesNo, "yes", false},
		{QuestionYesNo, "si", false},
		{QuestionNumeric, "0", true},
		{QuestionNumeric, "10", true},
		{QuestionNumeric, "11", false},
		{QuestionNumeric, "-1", false},
		{QuestionType("freetext"), "anything", false},
	}

	for _, tc := range cases {
		if got := ValidAnswerValue(tc.qtype, tc.value); got != tc.want {
			t.Errorf("ValidAnswerValue(%q, %q) = %v, want %v", tc.qtype, tc.value, got, tc.want)
		}
	}
}

func TestQuestionTypeValid(t *testing.T) {
	for _, valid := range []QuestionType{QuestionLikert, QuestionYesNo, QuestionNumeric} {
		if !valid.Valid() {
			t.Errorf("%q should be valid", valid)
		}
	}
	if QuestionType("multiple_choice").Valid() {
		t.Error("unknown type should not be valid")
	}
}

func TestAllQuestionsWalkOrder(t *testing.T) {
	s := &Survey{
		Sections: []Section{
			{Title: "A", Questions: []Question{{ID: "a1"}, {ID: "a2"}}},
			{Title: "B", Questions: []Question{{ID: "b1"}}},
		},
		Questions: []Question{{ID: "u1"}, {ID: "u2"}},
	}

	want := []string{"a1", "a2", "b1", "u1", "u2"}
	all := s.AllQuestions()
	if len(all) != len(want) {
		t.Fatalf("AllQuestions() returned %d questions, want %d", len(all), len(want))
	}
	for i, q := range all {
		if q.ID != want[i] {
			t.Errorf("AllQuestions()[%d] = %q, want %q", i, q.ID, want[i])
		}
	}
}

func TestInvitationUsable(t *testing.T) {
	now := time.Now()
	cases := []struct {
		name string
		inv  Invitation
		want bool
	}{
		{"active and fresh", Invitation{IsActive: true, ExpiresAt: now.Add(time.Hour)}, true},
		{"deactivated", Invitation{IsActive: false, ExpiresAt: now.Add(time.Hour)}, false},
		{"expired", Invitation{IsActive: true, ExpiresAt: now.Add(-time.Second)}, false},
		{"expired wins over active", Invitation{IsActive: true, ExpiresAt: now}, false},
		{"deactivated and expired", Invitation{IsActive: false, ExpiresAt: now.Add(-time.Hour)}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.inv.Usable(now); got != tc.want {
				t.Errorf("Usable() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestValidInvitationTTL(t *testing.T) {
	for _, hours := range InvitationTTLHours {
		if !ValidInvitationTTL(hours) {
			t.Errorf("ValidInvitationTTL(%d) = false, want true", hours)
		}
	}
	for _, hours := range []int{0, -1, 2, 48, 8760} {
		if ValidInvitationTTL(hours) {
			t.Errorf("ValidInvitationTTL(%d) = true, want false", hours)
		}
	}
}

func TestCompletionRate(t *testing.T) {
	cases := []struct {
		name string
		stat SurveyStat
		want int
	}{
		{
			"no responses",
			SurveyStat{Questions: []QuestionStat{{}, {}}},
			0,
		},
		{
			"no questions",
			SurveyStat{TotalResponses: 5},
			0,
		},
		{
			"full completion",
			SurveyStat{
				TotalResponses: 2,
				Questions:      []QuestionStat{{TotalResponses: 2}, {TotalResponses: 2}},
			},
			100,
		},
		{
			"half completion",
			SurveyStat{
				TotalResponses: 2,
				Questions:      []QuestionStat{{TotalResponses: 2}, {TotalResponses: 0}},
			},
			50,
		},
		{
			"rounds to nearest percent",
			SurveyStat{
				TotalResponses: 3,
				Questions:      []QuestionStat{{TotalResponses: 2}},
			},
			67,
		},
		{
			"counts sectioned questions",
			SurveyStat{
				TotalResponses: 2,
				Sections: []SectionStat{
					{Questions: []QuestionStat{{TotalResponses: 1}}},
				},
				Questions: []QuestionStat{{TotalResponses: 2}},
			},
			75,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.stat.CompletionRate(); got != tc.want {
				t.Errorf("CompletionRate() = %d, want %d", got, tc.want)
			}
		})
	}
}
