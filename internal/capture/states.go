package capture

// ConnectionState tracks the link to the capture source.
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateCapturing
	StateCalibrating
	StateError
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateConnecting:
		return "Connecting"
	case StateConnected:
		return "Connected"
	case StateCapturing:
		return "Capturing"
	case StateCalibrating:
		return "Calibrating"
	case StateError:
		return "Error"
	}
	return "Unknown"
}

// CapturePhase tracks progress of an active capture toward a state
// where recording is meaningful. Ready is re-enterable after a failed
// calibration.
type CapturePhase int

const (
	PhaseIdle CapturePhase = iota
	PhaseStabilizing
	PhaseReady
	PhaseCalibrated
)

func (p CapturePhase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhaseStabilizing:
		return "Stabilizing"
	case PhaseReady:
		return "Ready"
	case PhaseCalibrated:
		return "Calibrated"
	}
	return "Unknown"
}

// CalibrationState tracks the source-driven calibration workflow.
type CalibrationState int

const (
	CalibNone CalibrationState = iota
	CalibPreparing
	CalibCountdown
	CalibInProgress
	CalibCompleted
	CalibFailed
)

func (c CalibrationState) String() string {
	switch c {
	case CalibNone:
		return "None"
	case CalibPreparing:
		return "Preparing"
	case CalibCountdown:
		return "Countdown"
	case CalibInProgress:
		return "InProgress"
	case CalibCompleted:
		return "Completed"
	case CalibFailed:
		return "Failed"
	}
	return "Unknown"
}

// Command is a request the connector can issue to the source. At most
// one command is outstanding at a time.
type Command int

const (
	CmdStartCapture Command = iota
	CmdStopCapture
	CmdCalibrate
)

func (c Command) String() string {
	switch c {
	case CmdStartCapture:
		return "start_capture"
	case CmdStopCapture:
		return "stop_capture"
	case CmdCalibrate:
		return "calibrate"
	}
	return "unknown"
}
