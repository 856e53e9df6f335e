// Package transport abstracts the contactless reader. A Transport delivers
// tag arrival/loss events and exchanges raw frames; everything above it is
// reader-agnostic.
package transport

import (
	"bytes"
	"context"
	"time"

	"github.com/status-im/cardsdk-go/apdu"
)

// TagType classifies what the reader found in the field.
type TagType int

const (
	// TagTypeNone signals tag loss.
	TagTypeNone TagType = iota
	TagTypeIsoDep
)

// TagEvent is one field transition. UID is set for IsoDep arrivals on
// readers that expose it; it seeds the session-key derivation salt.
type TagEvent struct {
	Type TagType
	UID  []byte
}

func (e TagEvent) Lost() bool {
	return e.Type == TagTypeNone
}

// Transport is the reader contract the session drives.
//
// TagEvents delivers field transitions for the lifetime of the reader
// session; a loss event always precedes the next arrival. Send must only be
// called while a tag is present and must return tagLost (90008) when the
// tag leaves mid-exchange.
type Transport interface {
	TagEvents() <-chan TagEvent
	IsReady() bool
	Send(ctx context.Context, cmd *apdu.Command) (*apdu.Response, error)

	StartSession(message string) error
	StopSession(message string)
	StopSessionWithError(err error)

	// PauseSession keeps the reader session alive but stops the exchange,
	// e.g. while the host performs a network call.
	PauseSession(message string)
	ResumeSession()

	// RestartPolling drops the current tag and scans for a new one. Used
	// after a wrong-card read to invite another tap.
	RestartPolling(silent bool)
}

// Debounce filters flicker out of a tag event stream: a loss immediately
// followed by the same tag re-arriving within the window is swallowed. An
// arrival carrying a different UID is a physical swap, not flicker, so the
// pending loss is flushed before the arrival passes through. The returned
// channel closes when events closes.
func Debounce(events <-chan TagEvent, window time.Duration) <-chan TagEvent {
	out := make(chan TagEvent)
	go func() {
		defer close(out)
		var lastUID []byte
		var pendingLoss *TagEvent
		var timer *time.Timer
		var timerC <-chan time.Time

		flush := func() {
			if pendingLoss != nil {
				out <- *pendingLoss
				pendingLoss = nil
			}
			timerC = nil
		}

		for {
			select {
			case e, ok := <-events:
				if !ok {
					flush()
					return
				}
				if e.Lost() {
					pendingLoss = &e
					timer = time.NewTimer(window)
					timerC = timer.C
					continue
				}
				if pendingLoss != nil {
					if timer != nil {
						timer.Stop()
					}
					if sameTag(lastUID, e.UID) {
						// The same tag re-entered the field within the
						// window; swallow both transitions.
						pendingLoss = nil
						timerC = nil
						continue
					}
					// A different tag: the loss was real.
					flush()
				}
				lastUID = e.UID
				out <- e
			case <-timerC:
				flush()
			}
		}
	}()
	return out
}

// sameTag treats missing UIDs as indistinguishable: a reader that does not
// expose them cannot tell a swap from flicker.
func sameTag(a, b []byte) bool {
	if len(a) == 0 || len(b) == 0 {
		return true
	}
	return bytes.Equal(a, b)
}
