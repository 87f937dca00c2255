package judge

// Status is the judge service's execution status enumeration. Codes at or
// above StatusRuntimeError cover the service's runtime/internal error
// variants; they are all terminal and all non-passing.
type Status int

const (
	StatusInQueue           Status = 1
	StatusProcessing        Status = 2
	StatusAccepted          Status = 3
	StatusWrongAnswer       Status = 4
	StatusTimeLimitExceeded Status = 5
	StatusCompilationError  Status = 6
	StatusRuntimeError      Status = 7
)

// Terminal reports whether the service will not change this status on a
// subsequent poll.
func (s Status) Terminal() bool {
	return s >= StatusAccepted
}

// Passed reports whether this status counts as a passing test case.
// Accepted is the only passing code.
func (s Status) Passed() bool {
	return s == StatusAccepted
}

func (s Status) String() string {
	switch s {
	case StatusInQueue:
		return "In Queue"
	case StatusProcessing:
		return "Processing"
	case StatusAccepted:
		return "Accepted"
	case StatusWrongAnswer:
		return "Wrong Answer"
	case StatusTimeLimitExceeded:
		return "Time Limit Exceeded"
	case StatusCompilationError:
		return "Compilation Error"
	default:
		return "Runtime Error"
	}
}
