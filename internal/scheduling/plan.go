package scheduling

import "time"

// PlanOptions tunes a planning run.
type PlanOptions struct {
	Now      time.Time
	Policy   LongLessonPolicy
	MaxWeeks int
}

// Result is a full planning outcome shared by previews and generation.
type Result struct {
	Occurrences []Occurrence   `json:"-"`
	Preview     []PreviewEntry `json:"preview"`
	Warnings    []Warning      `json:"warnings"`
	Summary     Summary        `json:"summary"`
}

// Plan validates the slots, projects enough occurrences to hold the lessons
// and packs them. It is the only entry point preview and persistence use.
func Plan(lessons []Lesson, slots []Slot, opts PlanOptions) (*Result, error) {
	if err := ValidateSlots(slots); err != nil {
		return nil, err
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	if !opts.Policy.Valid() {
		opts.Policy = PolicySplit
	}

	occurrences, err := projectOccurrences(slots, planBudget(lessons, slots, opts.Policy), opts.Now, opts.MaxWeeks)
	if err != nil {
		return nil, err
	}
	packed := PackLessons(lessons, occurrences, opts.Policy)
	return &Result{
		Occurrences: occurrences,
		Preview:     packed.Preview,
		Warnings:    packed.Warnings,
		Summary:     packed.Summary,
	}, nil
}

// planBudget returns the minutes of slot time to project. Reducing lessons
// may waste the tail of a partially filled occurrence, so that policy
// reserves one extra full slot per lesson.
func planBudget(lessons []Lesson, slots []Slot, policy LongLessonPolicy) int {
	budget := 0
	for _, lesson := range lessons {
		budget += lesson.RequiredMinutes()
	}
	if policy != PolicyReduceDuration {
		return budget
	}
	longest := 0
	for _, slot := range slots {
		if slot.Hours() > longest {
			longest = slot.Hours()
		}
	}
	return budget + len(lessons)*longest*60
}
