package session

import (
	"github.com/abhipsabasu/Image-geoprofiling/internal/services/survey/domain/questionnaire"
	"github.com/abhipsabasu/Image-geoprofiling/internal/services/survey/domain/worklist"
)

// StepView is the read-only projection the presentation layer renders.
type StepView struct {
	Phase Phase
	// Item is the current work item while the session is in progress.
	Item          *worklist.WorkItem
	Index         int
	Total         int
	Answers       questionnaire.Answers
	Definition    questionnaire.Definition
	ParticipantID string
	Persisted     bool
}

// View projects the current step.
func (m *Machine) View() StepView {
	m.mu.RLock()
	defer m.mu.RUnlock()

	view := StepView{
		Phase:         m.state.Phase,
		Index:         m.state.Position,
		Total:         len(m.env.Worklist),
		Answers:       m.state.CurrentAnswers.Clone(),
		Definition:    m.env.Definition,
		ParticipantID: m.state.ParticipantID,
		Persisted:     m.state.Persisted,
	}
	if m.state.Phase == PhaseInProgress && m.state.Position < len(m.env.Worklist) {
		item := m.env.Worklist[m.state.Position]
		view.Item = &item
	}
	return view
}
