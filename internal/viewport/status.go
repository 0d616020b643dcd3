package viewport

// Status is what the host shows next to the viewport: whether a load is in
// flight and the message of the last failed load.
type Status struct {
	Loading bool
	Error   string
}

// StatusFunc receives every status change. It is called on the host loop.
type StatusFunc func(Status)
