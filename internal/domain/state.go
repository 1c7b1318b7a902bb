package domain

// Action is the explicit next-action signal a pipeline stage returns.
// The state machine driver routes on it and never infers routing from
// data shape.
type Action int

const (
	ActionNone Action = iota
	// ActionParameterPath routes a food question to the structured path.
	ActionParameterPath
	// ActionGeneralPath routes to free-form query generation.
	ActionGeneralPath
	// ActionValidate re-enters query validation.
	ActionValidate
	// ActionCorrect requests a bounded query regeneration.
	ActionCorrect
	// ActionExecute runs the validated query.
	ActionExecute
	// ActionReturn terminates with records available.
	ActionReturn
	// ActionReject terminates with a user-facing message.
	ActionReject
)

func (a Action) String() string {
	switch a {
	case ActionParameterPath:
		return "parameter_path"
	case ActionGeneralPath:
		return "general_path"
	case ActionValidate:
		return "validate"
	case ActionCorrect:
		return "correct"
	case ActionExecute:
		return "execute"
	case ActionReturn:
		return "return"
	case ActionReject:
		return "reject"
	default:
		return "none"
	}
}

// State is the shared pipeline state threaded through the state machine.
// Owned exclusively by the orchestrator; stages read a subset and return
// an Update merged into it.
type State struct {
	RunID            string
	Question         string
	PassingThreshold float64

	Cypher       string
	CypherErrors []string
	Answer       Answer

	// Steps is the append-only trace of stages taken.
	Steps []string
}

// Update is a partial state change plus the stage's next-action signal.
// Nil pointer fields leave the state untouched; Steps always appends.
type Update struct {
	Next Action

	Cypher       *string
	CypherErrors *[]string
	Answer       *Answer
	Steps        []string
}

// Apply merges an update into the state. All fields are last-writer-wins
// except Steps, which appends.
func (s *State) Apply(u Update) {
	if u.Cypher != nil {
		s.Cypher = *u.Cypher
	}
	if u.CypherErrors != nil {
		s.CypherErrors = *u.CypherErrors
	}
	if u.Answer != nil {
		s.Answer = *u.Answer
	}
	s.Steps = append(s.Steps, u.Steps...)
}
