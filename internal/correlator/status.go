package correlator

// Status is the lifecycle state of a tracked interaction.
type Status int

const (
	StatusActive Status = iota
	StatusCompleted
	StatusRemoved
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusCompleted:
		return "completed"
	case StatusRemoved:
		return "removed"
	default:
		return "unknown"
	}
}
