package monitor

// outcome is the tagged result of one height's pipeline. The cursor loop
// switches on it; review pipelines only inspect it for reporting.
type outcome int

const (
	outcomeNone outcome = iota

	// outcomeAtHead: no block at the height yet (or a tolerated negative
	// review height). Control passes to the review scheduler.
	outcomeAtHead

	// outcomeAlreadyExists: the stored row already matches the fetch.
	outcomeAlreadyExists

	// outcomeAdvance: the block and its associated rows committed.
	outcomeAdvance

	// outcomeFoundDuringReview: a review pipeline inserted a block the
	// head loop never saw.
	outcomeFoundDuringReview

	// outcomeRetry: a transient node error was handled by cycling
	// endpoints; the caller re-enters the same height.
	outcomeRetry
)

func (o outcome) String() string {
	switch o {
	case outcomeAtHead:
		return "at_head"
	case outcomeAlreadyExists:
		return "already_exists"
	case outcomeAdvance:
		return "advance"
	case outcomeFoundDuringReview:
		return "found_during_review"
	case outcomeRetry:
		return "retry"
	default:
		return "none"
	}
}
