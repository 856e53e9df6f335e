package cardsdk

// ViewDelegate receives user-facing session events. Implementations render
// them however the host presents NFC interaction; the engine never blocks on
// a delegate call.
type ViewDelegate interface {
	// SessionStarted is called when the reader starts scanning.
	SessionStarted(message string)
	// SessionStopped is called once, when the session reaches its terminal
	// state. err is nil on success.
	SessionStopped(err error)
	// TagConnected / TagLost report field transitions.
	TagConnected()
	TagLost()
	// ShowSecurityDelay reports the remaining card-enforced delay in
	// milliseconds while a protected command waits it out.
	ShowSecurityDelay(remainingMs int)
	// WrongCard is called when the tapped card is not the expected one;
	// the session keeps scanning for the right card afterwards.
	WrongCard(message string)
}

// NoopViewDelegate is the default delegate for headless hosts.
type NoopViewDelegate struct{}

func (NoopViewDelegate) SessionStarted(string) {}
func (NoopViewDelegate) SessionStopped(error)  {}
func (NoopViewDelegate) TagConnected()         {}
func (NoopViewDelegate) TagLost()              {}
func (NoopViewDelegate) ShowSecurityDelay(int) {}
func (NoopViewDelegate) WrongCard(string)      {}
