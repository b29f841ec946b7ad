// Package wizard holds the contract wizard as data: a Draft accumulating the
// user's choices and a Reduce function that applies one Event at a time,
// enumerating every downstream invalidation in one place.
package wizard

// Mode says whether the wizard creates a contract or edits a saved one.
type Mode string

const (
	ModeNew  Mode = "new"
	ModeEdit Mode = "edit"
)

// Step is a 1-based wizard step number.
type Step int

const (
	StepProject Step = iota + 1
	StepTrade
	StepBuilding
	StepSubcontractor
	StepDetails
	StepBOQ
	StepReview
	StepPreview
)

var stepTitles = map[Step]string{
	StepProject:       "Project",
	StepTrade:         "Trade",
	StepBuilding:      "Buildings",
	StepSubcontractor: "Subcontractor",
	StepDetails:       "Contract details",
	StepBOQ:           "Bill of quantities",
	StepReview:        "Review",
	StepPreview:       "Preview",
}

// Title is the label shown in the step indicator.
func (s Step) Title() string {
	if t, ok := stepTitles[s]; ok {
		return t
	}
	return "Unknown"
}

// Steps lists the steps of mode in order. Edit drafts are saved from Review
// and have no Preview step.
func Steps(mode Mode) []Step {
	steps := []Step{StepProject, StepTrade, StepBuilding, StepSubcontractor, StepDetails, StepBOQ, StepReview}
	if mode != ModeEdit {
		steps = append(steps, StepPreview)
	}
	return steps
}

// LastStep is the final step of mode.
func LastStep(mode Mode) Step {
	steps := Steps(mode)
	return steps[len(steps)-1]
}
