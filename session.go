package cardsdk

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/status-im/cardsdk-go/apdu"
	"github.com/status-im/cardsdk-go/crypto"
	"github.com/status-im/cardsdk-go/sdkerrors"
	"github.com/status-im/cardsdk-go/transport"
	"github.com/status-im/cardsdk-go/types"
)

type sessionState int32

const (
	stateInactive sessionState = iota
	stateActive
	stateStopped
)

// debounceWindow swallows field flicker: a tag loss followed by the same tag
// reappearing within the window is not reported.
const debounceWindow = 200 * time.Millisecond

// SessionOptions configures a CardSession. Reader is required; everything
// else has a usable zero value.
type SessionOptions struct {
	Reader   transport.Transport
	Delegate ViewDelegate
	Config   Config

	// ExpectedCardID pins the session to one card: preflight rejects any
	// other card and keeps scanning.
	ExpectedCardID string
	// InitialMessage is shown by the reader UI while scanning.
	InitialMessage string
}

// CardSession owns one reader session: tag tracking, the preflight read,
// sequential command exchange and link encryption. A session is started once,
// used and stopped; a stopped session is terminal.
type CardSession struct {
	reader   transport.Transport
	delegate ViewDelegate
	log      *slog.Logger

	env            *SessionEnvironment
	expectedCardID string
	initialMessage string

	state    atomic.Int32
	inFlight atomic.Bool

	mu         sync.Mutex
	tagPresent bool

	arrived  chan transport.TagEvent
	wrongTag chan struct{}
	stopLoop chan struct{}
	loopDone chan struct{}
}

func NewCardSession(opts SessionOptions) *CardSession {
	delegate := opts.Delegate
	if delegate == nil {
		delegate = NoopViewDelegate{}
	}
	return &CardSession{
		reader:         opts.Reader,
		delegate:       delegate,
		log:            slog.Default().With("component", "session"),
		env:            NewSessionEnvironment(opts.Config),
		expectedCardID: opts.ExpectedCardID,
		initialMessage: opts.InitialMessage,
		arrived:        make(chan transport.TagEvent, 1),
		wrongTag:       make(chan struct{}, 1),
		stopLoop:       make(chan struct{}),
		loopDone:       make(chan struct{}),
	}
}

// Environment exposes the per-tap state to commands during serialization,
// which runs on the goroutine driving the session. Fields the tag event loop
// also touches (UID, EncryptionKey) go through the guarded accessors below.
func (s *CardSession) Environment() *SessionEnvironment {
	return s.env
}

// Card returns the preflighted card snapshot, nil before preflight and after
// the session stopped.
func (s *CardSession) Card() *types.Card {
	if sessionState(s.state.Load()) == stateStopped {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.env.Card
}

func (s *CardSession) setCard(card *types.Card) {
	s.mu.Lock()
	s.env.Card = card
	s.mu.Unlock()
}

// encryptionState snapshots the link encryption mode and session key. The
// event loop discards the key on tag loss, so commands must read it through
// here rather than off the environment.
func (s *CardSession) encryptionState() (EncryptionMode, []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.env.EncryptionMode, s.env.EncryptionKey
}

func (s *CardSession) setEncryptionState(mode EncryptionMode, key []byte) {
	s.mu.Lock()
	s.env.EncryptionMode = mode
	s.env.EncryptionKey = key
	s.mu.Unlock()
}

func (s *CardSession) currentUID() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.env.UID
}

// Start activates the reader and performs the preflight read. Exactly one
// session can be active per reader; a second Start while the first is active
// fails with busy. A failed start stops the session.
func (s *CardSession) Start(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(stateInactive), int32(stateActive)) {
		if sessionState(s.state.Load()) == stateActive {
			return sdkerrors.New(sdkerrors.CodeBusy)
		}
		return sdkerrors.New(sdkerrors.CodeSessionInactive)
	}

	if err := s.reader.StartSession(s.initialMessage); err != nil {
		s.state.Store(int32(stateStopped))
		s.delegate.SessionStopped(err)
		return err
	}
	go s.eventLoop()
	s.delegate.SessionStarted(s.initialMessage)
	s.log.Debug("session started")

	if err := s.preflight(ctx); err != nil {
		s.stopWith(err)
		return err
	}
	return nil
}

// Stop ends the session cleanly. Safe to call more than once.
func (s *CardSession) Stop() {
	s.stopWith(nil)
}

// StopWithError ends the session and reports err to the reader UI.
func (s *CardSession) StopWithError(err error) {
	s.stopWith(err)
}

func (s *CardSession) stopWith(err error) {
	if !s.state.CompareAndSwap(int32(stateActive), int32(stateStopped)) {
		return
	}
	close(s.stopLoop)

	if err != nil {
		s.reader.StopSessionWithError(err)
		if !sdkerrors.HasCode(err, sdkerrors.CodeUserCancelled) {
			s.log.Debug("session stopped", "error", err)
		}
	} else {
		s.reader.StopSession("")
		s.log.Debug("session stopped")
	}

	// The card snapshot stays readable by an exchange still unwinding; Card
	// reports nil for a stopped session regardless.
	s.mu.Lock()
	s.env.EncryptionKey = nil
	s.env.EncryptionMode = EncryptionModeNone
	s.mu.Unlock()
	s.delegate.SessionStopped(err)
}

// Pause keeps the session alive but releases the field, e.g. during a
// network call mid-workflow.
func (s *CardSession) Pause(message string) {
	s.reader.PauseSession(message)
}

func (s *CardSession) Resume() {
	s.reader.ResumeSession()
}

// RestartPolling invites another tap without tearing the session down.
func (s *CardSession) RestartPolling() {
	s.reader.RestartPolling(false)
}

func (s *CardSession) eventLoop() {
	defer close(s.loopDone)
	events := transport.Debounce(s.reader.TagEvents(), debounceWindow)
	for {
		select {
		case <-s.stopLoop:
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if e.Lost() {
				s.onTagLost()
			} else {
				s.onTagArrived(e)
			}
		}
	}
}

func (s *CardSession) onTagArrived(e transport.TagEvent) {
	s.mu.Lock()
	s.tagPresent = true
	knownUID := s.env.UID
	if len(knownUID) > 0 && len(e.UID) > 0 && string(knownUID) != string(e.UID) && s.inFlight.Load() {
		// A different physical tag entered the field while a command was
		// waiting; the in-flight exchange must not talk to it.
		select {
		case s.wrongTag <- struct{}{}:
		default:
		}
	}
	s.env.UID = e.UID
	s.mu.Unlock()

	s.delegate.TagConnected()
	select {
	case s.arrived <- e:
	default:
	}
}

func (s *CardSession) onTagLost() {
	s.mu.Lock()
	s.tagPresent = false
	// The session key is bound to the physical tap; a new tap negotiates a
	// fresh one.
	s.env.EncryptionKey = nil
	s.mu.Unlock()
	s.delegate.TagLost()
	s.log.Debug("tag lost")
}

// waitForTag blocks until a tag is in the field. Cancellation while waiting
// means the user walked away, which is reported as userCancelled.
func (s *CardSession) waitForTag(ctx context.Context) error {
	s.mu.Lock()
	present := s.tagPresent
	s.mu.Unlock()
	if present {
		return nil
	}

	select {
	case <-s.arrived:
		return nil
	case <-s.stopLoop:
		return sdkerrors.New(sdkerrors.CodeSessionInactive)
	case <-ctx.Done():
		return sdkerrors.New(sdkerrors.CodeUserCancelled)
	}
}

// preflight reads the card and pins the session to it. A card that does not
// match the expected id or the filter triggers another polling round instead
// of failing outright, so the user can tap the right card.
func (s *CardSession) preflight(ctx context.Context) error {
	for {
		if err := s.waitForTag(ctx); err != nil {
			return err
		}

		card, err := Transceive(ctx, s, NewReadCommand())
		if err != nil {
			if sdkerrors.HasCode(err, sdkerrors.CodeTagLost) {
				continue
			}
			return err
		}

		if s.expectedCardID != "" && card.CardID != s.expectedCardID {
			s.log.Debug("wrong card tapped", "cardID", card.CardID)
			s.delegate.WrongCard(fmt.Sprintf("expected card %s", s.expectedCardID))
			s.reader.RestartPolling(false)
			continue
		}
		if err := s.env.Config.Filter.Allow(card); err != nil {
			return err
		}

		s.setCard(card)
		s.log.Debug("preflight complete", "cardID", card.CardID, "firmware", card.FirmwareVersion.StringValue)
		return nil
	}
}

// Send performs one raw exchange. Exchanges are strictly sequential; a
// concurrent Send fails with busy rather than interleaving frames.
func (s *CardSession) Send(ctx context.Context, cmd *apdu.Command) (*apdu.Response, error) {
	if sessionState(s.state.Load()) != stateActive {
		return nil, sdkerrors.New(sdkerrors.CodeSessionInactive)
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, sdkerrors.New(sdkerrors.CodeBusy)
	}
	defer s.inFlight.Store(false)

	if err := s.waitForTag(ctx); err != nil {
		return nil, err
	}

	// Drop a wrong-tag signal left over from a previous exchange.
	select {
	case <-s.wrongTag:
	default:
	}

	type outcome struct {
		resp *apdu.Response
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		resp, err := s.reader.Send(ctx, cmd)
		done <- outcome{resp, err}
	}()

	select {
	case o := <-done:
		return o.resp, o.err
	case <-s.wrongTag:
		return nil, sdkerrors.NewWithMessage(sdkerrors.CodeWrongCardNumber,
			"a different card entered the field during the exchange")
	case <-ctx.Done():
		return nil, sdkerrors.New(sdkerrors.CodeUserCancelled)
	}
}

// establishEncryption negotiates the session key for the current encryption
// mode. Idempotent: an already negotiated key is kept.
func (s *CardSession) establishEncryption(ctx context.Context) error {
	mode, key := s.encryptionState()
	if mode == EncryptionModeNone || key != nil {
		return nil
	}

	helper, err := newEncryptionHelper(mode)
	if err != nil {
		return err
	}
	resp, err := Transceive(ctx, s, &openSessionCommand{sessionKeyA: helper.keyA(), mode: mode})
	if err != nil {
		return sdkerrors.Wrap(sdkerrors.CodeFailedToEstablishEncryption, err)
	}

	uid := resp.uid
	if len(uid) == 0 {
		uid = s.currentUID()
	}
	if len(uid) == 0 {
		return sdkerrors.New(sdkerrors.CodeFailedToEstablishEncryption)
	}

	secret, err := helper.secret(resp.sessionKeyB)
	if err != nil {
		return err
	}
	s.setEncryptionState(mode, crypto.DeriveSessionKey(secret, s.env.AccessCode.Value, uid))
	s.log.Debug("encryption established", "mode", mode)
	return nil
}
