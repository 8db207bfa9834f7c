package request

// Mode is the operational intent of a request.
type Mode string

// Request mode constants.
const (
	Index    Mode = "index"
	Train    Mode = "train"
	Search   Mode = "search"
	Evaluate Mode = "evaluate"
	// Control carries out-of-band signals such as the training flush marker.
	Control Mode = "control"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == Index || m == Train || m == Search || m == Evaluate || m == Control
}
