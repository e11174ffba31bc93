// Package editor holds the in-memory draft of a survey while it is being
// built. Section and question lists are mutated only through the four
// operations (add, update, remove, move); every structural mutation ends in
// a reindex, so order values are always dense 0..n-1.
package editor

import (
	"strings"

	"github.com/gofrs/uuid"
	"github.com/mlopez/surveyforge/model"
)

type Editor struct {
	Title       string
	Description string
	Active      bool

	// carried through unedited
	Instructions   string
	HeaderImageURL string
	FooterText     string
	PDFSettings    model.PDFSettings

	sections  []model.Section
	questions []model.Question // unsectioned

	baseline *snapshot
}

func New() *Editor {
	return &Editor{Active: true}
}

// Load builds an editor from a server copy and captures it as the dirty
// baseline.
func Load(survey *model.Survey) *Editor {
	ed := &Editor{
		Title:          survey.Title,
		Description:    survey.Description,
		Active:         survey.IsActive,
		Instructions:   survey.Instructions,
		HeaderImageURL: survey.HeaderImageURL,
		FooterText:     survey.FooterText,
		PDFSettings:    survey.PDFSettings,
	}
	for _, sec := range survey.Sections {
		sec.Questions = append([]model.Question{}, sec.Questions...)
		ed.sections = append(ed.sections, sec)
	}
	ed.questions = append([]model.Question{}, survey.Questions...)
	ed.reindex()

	base := ed.snapshot()
	ed.baseline = &base
	return ed
}

// Sections exposes the current section list; treat it as read-only.
func (ed *Editor) Sections() []model.Section {
	return ed.sections
}

// Questions exposes the current unsectioned question list; treat it as
// read-only.
func (ed *Editor) Questions() []model.Question {
	return ed.questions
}

// AddSection appends an empty section and returns its id.
func (ed *Editor) AddSection() string {
	sec := model.Section{
		ID:    tempId(),
		Order: len(ed.sections),
	}
	ed.sections = append(ed.sections, sec)
	return sec.ID
}

// UpdateSection applies update to the section matched by id. Order and the
// owned question list are preserved whatever update does.
func (ed *Editor) UpdateSection(id string, update func(*model.Section)) bool {
	for i := range ed.sections {
		if ed.sections[i].ID != id {
			continue
		}
		order, questions := ed.sections[i].Order, ed.sections[i].Questions
		update(&ed.sections[i])
		ed.sections[i].ID = id
		ed.sections[i].Order = order
		ed.sections[i].Questions = questions
		return true
	}
	return false
}

// RemoveSection deletes a section; its questions become unsectioned rather
// than being dropped.
func (ed *Editor) RemoveSection(id string) bool {
	for i := range ed.sections {
		if ed.sections[i].ID != id {
			continue
		}
		orphans := ed.sections[i].Questions
		ed.sections = append(ed.sections[:i], ed.sections[i+1:]...)
		for _, q := range orphans {
			q.SectionID = ""
			ed.questions = append(ed.questions, q)
		}
		ed.reindex()
		return true
	}
	return false
}

func (ed *Editor) MoveSection(from, to int) bool {
	moved, ok := splice(ed.sections, from, to)
	if !ok {
		return false
	}
	ed.sections = moved
	ed.reindex()
	return true
}

// AddQuestion appends a default question to the section matched by
// sectionId, or to the unsectioned list when sectionId is empty, and
// returns the new question's id.
func (ed *Editor) AddQuestion(sectionId string) (string, bool) {
	q := model.Question{
		ID:        tempId(),
		Type:      model.QuestionLikert,
		Required:  true,
		SectionID: sectionId,
	}

	if sectionId == "" {
		q.Order = len(ed.questions)
		ed.questions = append(ed.questions, q)
		return q.ID, true
	}
	for i := range ed.sections {
		if ed.sections[i].ID == sectionId {
			q.Order = len(ed.sections[i].Questions)
			ed.sections[i].Questions = append(ed.sections[i].Questions, q)
			return q.ID, true
		}
	}
	return "", false
}

// UpdateQuestion applies update to the question matched by id, wherever it
// lives. Identity, order and section assignment are preserved.
func (ed *Editor) UpdateQuestion(id string, update func(*model.Question)) bool {
	lists := ed.questionLists()
	for _, list := range lists {
		for i := range list {
			if list[i].ID != id {
				continue
			}
			order, sectionId := list[i].Order, list[i].SectionID
			update(&list[i])
			list[i].ID = id
			list[i].Order = order
			list[i].SectionID = sectionId
			return true
		}
	}
	return false
}

// RemoveQuestion removes exactly the question matched by id and reindexes
// its containing list.
func (ed *Editor) RemoveQuestion(id string) bool {
	for i, q := range ed.questions {
		if q.ID == id {
			ed.questions = append(ed.questions[:i], ed.questions[i+1:]...)
			ed.reindex()
			return true
		}
	}
	for s := range ed.sections {
		for i, q := range ed.sections[s].Questions {
			if q.ID == id {
				ed.sections[s].Questions = append(ed.sections[s].Questions[:i], ed.sections[s].Questions[i+1:]...)
				ed.reindex()
				return true
			}
		}
	}
	return false
}

// MoveQuestion moves the question at index from to index to within one
// list: the section matched by sectionId, or the unsectioned list when
// sectionId is empty.
func (ed *Editor) MoveQuestion(sectionId string, from, to int) bool {
	if sectionId == "" {
		moved, ok := splice(ed.questions, from, to)
		if !ok {
			return false
		}
		ed.questions = moved
		ed.reindex()
		return true
	}
	for i := range ed.sections {
		if ed.sections[i].ID != sectionId {
			continue
		}
		moved, ok := splice(ed.sections[i].Questions, from, to)
		if !ok {
			return false
		}
		ed.sections[i].Questions = moved
		ed.reindex()
		return true
	}
	return false
}

// QuestionCount counts questions across sections and the unsectioned list.
func (ed *Editor) QuestionCount() int {
	n := len(ed.questions)
	for _, sec := range ed.sections {
		n += len(sec.Questions)
	}
	return n
}

// Validate collects every user-facing problem that blocks saving; an empty
// result means the draft may be submitted.
func (ed *Editor) Validate() []string {
	var problems []string

	if strings.TrimSpace(ed.Title) == "" {
		problems = append(problems, "title is required")
	}
	if ed.QuestionCount() == 0 {
		problems = append(problems, "add at least one question")
	}

	emptyQuestion := false
	for _, list := range ed.questionLists() {
		for _, q := range list {
			if strings.TrimSpace(q.Text) == "" {
				emptyQuestion = true
			}
		}
	}
	if emptyQuestion {
		problems = append(problems, "all questions must have text")
	}

	for _, sec := range ed.sections {
		if strings.TrimSpace(sec.Title) == "" {
			problems = append(problems, "all sections must have a title")
			break
		}
	}

	return problems
}

// Payload assembles the create/update request body. Orders are emitted from
// list positions, so they are dense by construction.
func (ed *Editor) Payload() model.Survey {
	survey := model.Survey{
		Title:          ed.Title,
		Description:    ed.Description,
		IsActive:       ed.Active,
		Instructions:   ed.Instructions,
		HeaderImageURL: ed.HeaderImageURL,
		FooterText:     ed.FooterText,
		PDFSettings:    ed.PDFSettings,
		Sections:       []model.Section{},
		Questions:      []model.Question{},
	}

	for i, sec := range ed.sections {
		out := model.Section{
			Title:       sec.Title,
			Description: sec.Description,
			Order:       i,
			Questions:   []model.Question{},
		}
		for j, q := range sec.Questions {
			q.ID = ""
			q.SectionID = ""
			q.Order = j
			out.Questions = append(out.Questions, q)
		}
		survey.Sections = append(survey.Sections, out)
	}
	for i, q := range ed.questions {
		q.ID = ""
		q.Order = i
		survey.Questions = append(survey.Questions, q)
	}
	return survey
}

func (ed *Editor) reindex() {
	for i := range ed.sections {
		ed.sections[i].Order = i
		for j := range ed.sections[i].Questions {
			ed.sections[i].Questions[j].Order = j
		}
	}
	for i := range ed.questions {
		ed.questions[i].Order = i
	}
}

func (ed *Editor) questionLists() [][]model.Question {
	lists := [][]model.Question{ed.questions}
	for i := range ed.sections {
		lists = append(lists, ed.sections[i].Questions)
	}
	return lists
}

// splice extracts the element at from and reinserts it at to, returning the
// new slice. Returns false when either index is out of range.
func splice[T any](list []T, from, to int) ([]T, bool) {
	if from < 0 || from >= len(list) || to < 0 || to >= len(list) {
		return nil, false
	}

	out := append([]T{}, list...)
	item := out[from]
	out = append(out[:from], out[from+1:]...)
	out = append(out, item)
	copy(out[to+1:], out[to:])
	out[to] = item
	return out, true
}

func tempId() string {
	return "new_" + uuid.Must(uuid.NewV4()).String()
}
