package achievements

import "context"

// Definition describes an achievement learners can earn.
type Definition struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	Icon           string `json:"icon"`
	PointsRequired int    `json:"points_required"`
}

const (
	FirstLesson  = "first_lesson"
	QuizMaster   = "quiz_master"
	WeekStreak   = "week_streak"
	MultiSubject = "multi_subject"
)

var catalog = []Definition{
	{ID: FirstLesson, Name: "First Steps", Description: "Complete your first lesson", Icon: "🎯", PointsRequired: 10},
	{ID: QuizMaster, Name: "Quiz Master", Description: "Score 100% on 5 quizzes", Icon: "🏆", PointsRequired: 100},
	{ID: WeekStreak, Name: "Dedicated Learner", Description: "Learn for 7 days in a row", Icon: "🔥", PointsRequired: 35},
	{ID: MultiSubject, Name: "Well Rounded", Description: "Complete lessons in 3 different subjects", Icon: "🌟", PointsRequired: 50},
}

// Catalog returns a copy of the built-in achievements in display order.
func Catalog() []Definition {
	out := make([]Definition, len(catalog))
	copy(out, catalog)
	return out
}

func Lookup(id string) (Definition, bool) {
	for _, def := range catalog {
		if def.ID == id {
			return def, true
		}
	}
	return Definition{}, false
}

// Status is a catalog entry as seen by one learner.
type Status struct {
	Definition
	Earned bool `json:"earned"`
}

// Statuses lists the whole catalog in display order, marking what the user
// has earned. Achievements unlocked outside the catalog are not listed.
func (l *Ledger) Statuses(ctx context.Context, userID uint) ([]Status, error) {
	earned, err := l.ForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	have := make(map[string]bool, len(earned))
	for _, id := range earned {
		have[id] = true
	}
	defs := Catalog()
	out := make([]Status, 0, len(defs))
	for _, def := range defs {
		out = append(out, Status{Definition: def, Earned: have[def.ID]})
	}
	return out, nil
}
