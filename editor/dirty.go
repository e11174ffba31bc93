package editor

import "github.com/mlopez/surveyforge/model"

// questionView is the normalized projection of the editable question
// fields. Field-wise equality avoids the key-order pitfalls of comparing
// serialized forms.
type questionView struct {
	Text     string
	Type     model.QuestionType
	Required bool
	Order    int
}

type snapshot struct {
	Title       string
	Description string
	Active      bool
	Questions   []questionView
}

func (ed *Editor) snapshot() snapshot {
	snap := snapshot{
		Title:       ed.Title,
		Description: ed.Description,
		Active:      ed.Active,
	}
	for _, sec := range ed.sections {
		for _, q := range sec.Questions {
			snap.Questions = append(snap.Questions, viewOf(q))
		}
	}
	for _, q := range ed.questions {
		snap.Questions = append(snap.Questions, viewOf(q))
	}
	return snap
}

func viewOf(q model.Question) questionView {
	return questionView{
		Text:     q.Text,
		Type:     q.Type,
		Required: q.Required,
		Order:    q.Order,
	}
}

// IsDirty compares the current state against the last-loaded-from-server
// baseline. It is recomputed on every call, never cached. A draft that was
// never loaded from the server is always dirty.
func (ed *Editor) IsDirty() bool {
	if ed.baseline == nil {
		return true
	}
	return !ed.snapshot().equal(*ed.baseline)
}

// ResetBaseline marks the current state as saved.
func (ed *Editor) ResetBaseline() {
	snap := ed.snapshot()
	ed.baseline = &snap
}

func (s snapshot) equal(other snapshot) bool {
	if s.Title != other.Title ||
		s.Description != other.Description ||
		s.Active != other.Active ||
		len(s.Questions) != len(other.Questions) {
		return false
	}
	for i, q := range s.Questions {
		if q != other.Questions[i] {
			return false
		}
	}
	return true
}
