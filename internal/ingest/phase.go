package ingest

// Phase is a step of the run state machine.
type Phase int

const (
	PhaseStart Phase = iota
	PhaseWindowPlanned
	PhaseCredentialReady
	PhaseDevicesResolved
	PhaseFetchingDevice
	PhaseWatermarkAdvanced
	PhaseDone
	PhaseAborted
)

var phaseNames = map[Phase]string{
	PhaseStart:             "START",
	PhaseWindowPlanned:     "WINDOW_PLANNED",
	PhaseCredentialReady:   "CREDENTIAL_READY",
	PhaseDevicesResolved:   "DEVICES_RESOLVED",
	PhaseFetchingDevice:    "FETCHING_DEVICE",
	PhaseWatermarkAdvanced: "WATERMARK_ADVANCED",
	PhaseDone:              "DONE",
	PhaseAborted:           "ABORTED",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return "UNKNOWN"
}

// MarshalText encodes the phase by name in JSON summaries.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}
