package executor

// Phase is the executor's position in its processing cycle.
type Phase int32

// Executor phases, in cycle order.
const (
	PhaseWaitingForEvent Phase = iota
	PhaseFetchingHeaders
	PhaseApplyingBlocks
	PhaseAggregatingProof
	PhaseSubmittingProof
)

var phaseNames = [...]string{
	PhaseWaitingForEvent:  "waiting_for_event",
	PhaseFetchingHeaders:  "fetching_headers",
	PhaseApplyingBlocks:   "applying_blocks",
	PhaseAggregatingProof: "aggregating_proof",
	PhaseSubmittingProof:  "submitting_proof",
}

// String implements fmt.Stringer.
func (p Phase) String() string {
	if p >= 0 && int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown"
}
