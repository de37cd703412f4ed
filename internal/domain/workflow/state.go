package workflow

// State is a status code declared by a workflow pattern.
type State string

// StateError is the implicit compensation sink every machine knows about.
const StateError State = "error"

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is non-empty
func (s State) IsValid() bool {
	return s != ""
}
