// Package pcsc is a PC/SC reader backend for desktop hosts. It polls the
// first matching reader for card arrival and removal and maps both onto tag
// events.
package pcsc

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ebfe/scard"

	"github.com/status-im/cardsdk-go/apdu"
	"github.com/status-im/cardsdk-go/sdkerrors"
	"github.com/status-im/cardsdk-go/transport"
)

// getUID is the PC/SC pseudo-APDU returning the tag UID.
var getUID = []byte{0xFF, 0xCA, 0x00, 0x00, 0x00}

const pollInterval = 250 * time.Millisecond

// Transport drives a single PC/SC reader. Safe for use by one session at a
// time; the session serializes Send calls itself.
type Transport struct {
	// ReaderPrefix selects the reader when several are attached; empty
	// matches the first one listed.
	ReaderPrefix string

	log *slog.Logger

	mu     sync.Mutex
	sctx   *scard.Context
	card   *scard.Card
	events chan transport.TagEvent
	stop   chan struct{}
	paused bool
}

func New(readerPrefix string) *Transport {
	return &Transport{
		ReaderPrefix: readerPrefix,
		log:          slog.Default().With("component", "pcsc"),
		events:       make(chan transport.TagEvent, 4),
	}
}

func (t *Transport) TagEvents() <-chan transport.TagEvent {
	return t.events
}

func (t *Transport) IsReady() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.card != nil
}

func (t *Transport) StartSession(message string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stop != nil {
		return sdkerrors.New(sdkerrors.CodeBusy)
	}

	sctx, err := scard.EstablishContext()
	if err != nil {
		return sdkerrors.Wrap(sdkerrors.CodeReaderError, err)
	}
	t.sctx = sctx
	t.stop = make(chan struct{})
	if message != "" {
		t.log.Debug("session started", "message", message)
	}
	go t.poll(t.stop)
	return nil
}

func (t *Transport) StopSession(message string) {
	t.stopSession()
	if message != "" {
		t.log.Debug("session stopped", "message", message)
	}
}

func (t *Transport) StopSessionWithError(err error) {
	t.stopSession()
	t.log.Debug("session stopped", "error", err)
}

func (t *Transport) stopSession() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stop == nil {
		return
	}
	close(t.stop)
	t.stop = nil
	t.disconnectLocked()
	if t.sctx != nil {
		t.sctx.Release()
		t.sctx = nil
	}
}

func (t *Transport) PauseSession(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.paused = true
	if message != "" {
		t.log.Debug("session paused", "message", message)
	}
}

func (t *Transport) ResumeSession() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.paused = false
}

// RestartPolling drops the connected card so the poll loop reports the next
// tap as a fresh arrival.
func (t *Transport) RestartPolling(silent bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.card != nil {
		t.disconnectLocked()
		t.emit(transport.TagEvent{Type: transport.TagTypeNone})
	}
	if !silent {
		t.log.Debug("polling restarted")
	}
}

func (t *Transport) Send(ctx context.Context, cmd *apdu.Command) (*apdu.Response, error) {
	t.mu.Lock()
	card := t.card
	t.mu.Unlock()
	if card == nil {
		return nil, sdkerrors.New(sdkerrors.CodeTagNotConnected)
	}
	if err := ctx.Err(); err != nil {
		return nil, sdkerrors.New(sdkerrors.CodeUserCancelled)
	}

	raw, err := card.Transmit(cmd.Serialize())
	if err != nil {
		// Removal mid-exchange surfaces as a transmit failure; the poll
		// loop will follow up with the loss event.
		return nil, sdkerrors.Wrap(sdkerrors.CodeTagLost, err)
	}
	return apdu.ParseResponse(raw)
}

func (t *Transport) poll(stop chan struct{}) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			t.pollOnce()
		}
	}
}

func (t *Transport) pollOnce() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.paused || t.sctx == nil {
		return
	}

	if t.card != nil {
		if _, err := t.card.Status(); err != nil {
			t.disconnectLocked()
			t.emit(transport.TagEvent{Type: transport.TagTypeNone})
		}
		return
	}

	reader, ok := t.findReaderLocked()
	if !ok {
		return
	}
	card, err := t.sctx.Connect(reader, scard.ShareShared, scard.ProtocolAny)
	if err != nil {
		return
	}
	t.card = card
	t.emit(transport.TagEvent{Type: transport.TagTypeIsoDep, UID: t.readUIDLocked()})
}

func (t *Transport) findReaderLocked() (string, bool) {
	readers, err := t.sctx.ListReaders()
	if err != nil || len(readers) == 0 {
		return "", false
	}
	if t.ReaderPrefix == "" {
		return readers[0], true
	}
	for _, r := range readers {
		if strings.HasPrefix(r, t.ReaderPrefix) {
			return r, true
		}
	}
	return "", false
}

func (t *Transport) readUIDLocked() []byte {
	raw, err := t.card.Transmit(getUID)
	if err != nil || len(raw) < 2 {
		return nil
	}
	resp, err := apdu.ParseResponse(raw)
	if err != nil || !resp.Sw().IsSuccess() {
		return nil
	}
	return resp.Data
}

func (t *Transport) disconnectLocked() {
	if t.card != nil {
		t.card.Disconnect(scard.LeaveCard)
		t.card = nil
	}
}

func (t *Transport) emit(e transport.TagEvent) {
	select {
	case t.events <- e:
	default:
		t.log.Debug("dropping tag event, consumer is behind", "lost", e.Lost())
	}
}
