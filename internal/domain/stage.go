package domain

// Stage is the investor approval stage. The explicit stored value is the
// single source of truth at runtime.
type Stage string

const (
	StageApplied      Stage = "APPLIED"
	StageUnderReview  Stage = "UNDER_REVIEW"
	StageApproved     Stage = "APPROVED"
	StageRejected     Stage = "REJECTED"
	StageCommitted    Stage = "COMMITTED"
	StageDocsApproved Stage = "DOCS_APPROVED"
	StageFunded       Stage = "FUNDED"
)

var stageTransitions = map[Stage][]Stage{
	StageApplied:      {StageUnderReview, StageRejected},
	StageUnderReview:  {StageApproved, StageRejected},
	StageApproved:     {StageCommitted, StageRejected},
	StageRejected:     {StageUnderReview},
	StageCommitted:    {StageDocsApproved, StageFunded, StageRejected},
	StageDocsApproved: {StageFunded},
	StageFunded:       {},
}

// AllStages lists every stage in lifecycle order.
var AllStages = []Stage{
	StageApplied, StageUnderReview, StageApproved, StageRejected,
	StageCommitted, StageDocsApproved, StageFunded,
}

func (s Stage) Valid() bool {
	_, ok := stageTransitions[s]
	return ok
}

// Terminal reports whether no transition leaves s.
func (s Stage) Terminal() bool {
	return s.Valid() && len(stageTransitions[s]) == 0
}

func (s Stage) String() string {
	return string(s)
}

// NextStages returns the stages reachable from s in one transition.
func NextStages(s Stage) []Stage {
	next := stageTransitions[s]
	out := make([]Stage, len(next))
	copy(out, next)
	return out
}

// CanTransition reports whether the fixed transition table allows from -> to.
func CanTransition(from, to Stage) bool {
	for _, s := range stageTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ParseStage returns the stage named by v, or false if v is not a known stage.
func ParseStage(v string) (Stage, bool) {
	s := Stage(v)
	return s, s.Valid()
}

// InferStage derives a stage for legacy investor rows that predate the explicit
// stage column. It is only used by the stage backfill command.
func InferStage(inv *Investor) Stage {
	switch {
	case inv.OnboardingCompletedAt != nil:
		return StageFunded
	case inv.KycStatus != nil && IsKycCleared(*inv.KycStatus) && inv.OnboardingStep >= 4:
		return StageCommitted
	case inv.KycStatus != nil && IsKycCleared(*inv.KycStatus):
		return StageApproved
	case inv.KycStatus != nil && *inv.KycStatus == KycPending:
		return StageUnderReview
	case inv.OnboardingStep >= 2:
		return StageUnderReview
	default:
		return StageApplied
	}
}
