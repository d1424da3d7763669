package model

// ImportCounters tallies the records created by one import run.
type ImportCounters struct {
	Users    int `json:"users"`
	Articles int `json:"articles"`
	Comments int `json:"comments"`
}

// ImportOutcome is the terminal state of one imported entity.
type ImportOutcome int

const (
	OutcomePersisted ImportOutcome = iota + 1
	OutcomeRecovered
	OutcomeSkippedExisting
	OutcomeSkipped
	OutcomeFatal
)

func (o ImportOutcome) String() string {
	switch o {
	case OutcomePersisted:
		return "persisted"
	case OutcomeRecovered:
		return "recovered"
	case OutcomeSkippedExisting:
		return "skipped_existing"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

func (o ImportOutcome) Created() bool {
	return o == OutcomePersisted || o == OutcomeRecovered
}
