package arming

// Actor identifies who changed the panel state.
type Actor struct {
	// Hostname is the machine the request came from.
	Hostname string
	// Username is the system user who sent it.
	Username string
}

// String renders the actor as user@host, or "unknown" when empty.
func (a *Actor) String() string {
	if a == nil || (a.Hostname == "" && a.Username == "") {
		return "unknown"
	}

	return a.Username + "@" + a.Hostname
}
