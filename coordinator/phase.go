package coordinator

// Phase is one state of the per-turn game cycle. Transitions are driven only
// by phase-change events off the stream; the coordinator never polls for
// phase.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseSpeaking  Phase = "speaking"
	PhaseClosedBid Phase = "closed_bid"
	PhaseWaiting   Phase = "waiting"
	PhaseServing   Phase = "serving"
	PhaseStopped   Phase = "stopped"
)

// ParsePhase maps a phase name from the wire onto a known Phase. Unknown
// names are not an error for the caller to propagate, just to ignore.
func ParsePhase(name string) (Phase, bool) {
	switch Phase(name) {
	case PhaseIdle, PhaseSpeaking, PhaseClosedBid, PhaseWaiting, PhaseServing, PhaseStopped:
		return Phase(name), true
	default:
		return "", false
	}
}
