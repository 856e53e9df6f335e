package cardsdk

import (
	"bytes"
	"context"
	"encoding/binary"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/status-im/cardsdk-go/apdu"
	"github.com/status-im/cardsdk-go/attestation"
	"github.com/status-im/cardsdk-go/crypto"
	"github.com/status-im/cardsdk-go/sdkerrors"
	"github.com/status-im/cardsdk-go/tlv"
	"github.com/status-im/cardsdk-go/transport"
	"github.com/status-im/cardsdk-go/types"
)

const testCardID = "AA22000000012345"

// cardEmulator scripts the card side of the exchange: it answers the read,
// open-session and attest-card-key instructions, optionally demands link
// encryption and can interleave security-delay responses.
type cardEmulator struct {
	mu sync.Mutex

	cardID   string
	idQueue  []string
	keyPair  crypto.KeyPair
	firmware string
	uid      []byte

	requireEncryption bool
	sessionKey        []byte

	// pendingDelays holds TagPause tick values answered before the next
	// real response.
	pendingDelays []int

	openSessions int
	frames       [][]byte
}

func newCardEmulator(t *testing.T) *cardEmulator {
	t.Helper()
	pair, err := crypto.GenerateSecp256k1KeyPair()
	require.NoError(t, err)
	return &cardEmulator{
		cardID:   testCardID,
		keyPair:  pair,
		firmware: "4.52r",
		uid:      []byte{0x01, 0x02, 0x03, 0x04},
	}
}

func (e *cardEmulator) frameCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.frames)
}

func (e *cardEmulator) openSessionCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.openSessions
}

// resetLink models the card powering down when it leaves the field: the
// negotiated session key does not survive.
func (e *cardEmulator) resetLink() {
	e.mu.Lock()
	e.sessionKey = nil
	e.mu.Unlock()
}

func (e *cardEmulator) framesSince(n int) [][]byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frames[n:]
}

func (e *cardEmulator) handle(cmd *apdu.Command) (*apdu.Response, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.frames = append(e.frames, cmd.Serialize())

	if cmd.Ins == apdu.InsOpenSession {
		return e.openSessionLocked(cmd)
	}
	if len(e.pendingDelays) > 0 {
		ticks := e.pendingDelays[0]
		e.pendingDelays = e.pendingDelays[1:]
		payload, err := tlv.NewBuilder().Append(tlv.TagPause, ticks).Serialize()
		if err != nil {
			return nil, err
		}
		return emulatorResponse(payload, apdu.SwSecurityDelay), nil
	}
	if e.requireEncryption && e.sessionKey == nil {
		return emulatorResponse(nil, apdu.SwNeedEncryption), nil
	}

	data := cmd.Data
	if e.sessionKey != nil {
		packet, err := crypto.DecryptAES(e.sessionKey, data)
		if err != nil {
			return nil, err
		}
		length := binary.BigEndian.Uint16(packet[0:2])
		data = packet[4 : 4+length]
	}

	payload, err := e.processLocked(cmd.Ins, data)
	if err != nil {
		return nil, err
	}
	if e.sessionKey != nil {
		packet := make([]byte, 4, 4+len(payload))
		binary.BigEndian.PutUint16(packet[0:2], uint16(len(payload)))
		binary.BigEndian.PutUint16(packet[2:4], crypto.Crc16(payload))
		packet = append(packet, payload...)
		if payload, err = crypto.EncryptAES(e.sessionKey, packet); err != nil {
			return nil, err
		}
	}
	return emulatorResponse(payload, apdu.SwProcessCompleted), nil
}

func (e *cardEmulator) openSessionLocked(cmd *apdu.Command) (*apdu.Response, error) {
	items, err := tlv.Decode(cmd.Data)
	if err != nil {
		return nil, err
	}
	keyA, err := tlv.NewDecoder(items).Bytes(tlv.TagSessionKeyA)
	if err != nil {
		return nil, err
	}

	e.openSessions++
	keyB := bytes.Repeat([]byte{0xB7}, 16)
	secret := append(append([]byte{}, keyA...), keyB...)
	e.sessionKey = crypto.DeriveSessionKey(secret, DefaultUserCode(UserCodeAccessCode).Value, e.uid)

	payload, err := tlv.NewBuilder().AppendRaw(tlv.TagSessionKeyB, keyB).Serialize()
	if err != nil {
		return nil, err
	}
	return emulatorResponse(payload, apdu.SwProcessCompleted), nil
}

func (e *cardEmulator) processLocked(ins apdu.Ins, data []byte) ([]byte, error) {
	switch ins {
	case apdu.InsRead:
		if items, err := tlv.Decode(data); err == nil {
			if mode, err := tlv.NewDecoder(items).Byte(tlv.TagInteractionMode); err == nil && readMode(mode) == readModeWalletList {
				return e.walletListLocked()
			}
		}
		id := e.cardID
		if len(e.idQueue) > 0 {
			id = e.idQueue[0]
			e.idQueue = e.idQueue[1:]
		}
		return tlv.NewBuilder().
			Append(tlv.TagCardID, id).
			AppendRaw(tlv.TagCardPublicKey, e.keyPair.PublicKey).
			Append(tlv.TagFirmwareVersion, e.firmware).
			Serialize()

	case apdu.InsAttestCardKey:
		items, err := tlv.Decode(data)
		if err != nil {
			return nil, err
		}
		challenge, err := tlv.NewDecoder(items).Bytes(tlv.TagChallenge)
		if err != nil {
			return nil, err
		}
		salt := bytes.Repeat([]byte{0x5A}, 16)
		message := append(append([]byte{}, challenge...), salt...)
		signature, err := crypto.SignSecp256k1(e.keyPair.PrivateKey, message)
		if err != nil {
			return nil, err
		}
		return tlv.NewBuilder().
			AppendRaw(tlv.TagSalt, salt).
			AppendRaw(tlv.TagCardSignature, signature).
			Serialize()

	default:
		return nil, sdkerrors.New(sdkerrors.CodeInsNotSupported)
	}
}

func (e *cardEmulator) walletListLocked() ([]byte, error) {
	info, err := tlv.NewBuilder().
		Append(tlv.TagWalletIndex, 0).
		Append(tlv.TagStatus, byte(types.WalletStatusLoaded)).
		AppendRaw(tlv.TagWalletPublicKey, e.keyPair.PublicKey).
		Append(tlv.TagCurveID, string(types.CurveSecp256k1)).
		Serialize()
	if err != nil {
		return nil, err
	}
	return tlv.NewBuilder().AppendRaw(tlv.TagWalletInfo, info).Serialize()
}

func emulatorResponse(data []byte, sw apdu.StatusWord) *apdu.Response {
	return &apdu.Response{Data: data, SW1: byte(sw >> 8), SW2: byte(sw)}
}

// mockReader is an in-memory Transport driving the emulator.
type mockReader struct {
	emulator *cardEmulator
	events   chan transport.TagEvent

	mu        sync.Mutex
	blockSend chan struct{}
	starts    int
	pauses    int
	resumes   int
	restarts  int
}

func newMockReader(emulator *cardEmulator) *mockReader {
	return &mockReader{
		emulator: emulator,
		events:   make(chan transport.TagEvent, 8),
	}
}

func (r *mockReader) tap(uid []byte) {
	r.events <- transport.TagEvent{Type: transport.TagTypeIsoDep, UID: uid}
}

func (r *mockReader) removeTag() {
	r.events <- transport.TagEvent{Type: transport.TagTypeNone}
}

func (r *mockReader) TagEvents() <-chan transport.TagEvent { return r.events }

func (r *mockReader) IsReady() bool { return true }

func (r *mockReader) Send(ctx context.Context, cmd *apdu.Command) (*apdu.Response, error) {
	r.mu.Lock()
	block := r.blockSend
	r.blockSend = nil
	r.mu.Unlock()
	if block != nil {
		<-block
	}
	return r.emulator.handle(cmd)
}

func (r *mockReader) StartSession(message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.starts++
	return nil
}

func (r *mockReader) StopSession(message string) {}
func (r *mockReader) StopSessionWithError(error) {}

func (r *mockReader) PauseSession(message string) {
	r.mu.Lock()
	r.pauses++
	r.mu.Unlock()
}

func (r *mockReader) ResumeSession() {
	r.mu.Lock()
	r.resumes++
	r.mu.Unlock()
}

func (r *mockReader) RestartPolling(silent bool) {
	r.mu.Lock()
	r.restarts++
	r.mu.Unlock()
}

func (r *mockReader) restartCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.restarts
}

// recordingDelegate captures the user-facing event stream.
type recordingDelegate struct {
	mu         sync.Mutex
	started    int
	stopped    int
	stopErr    error
	connected  int
	lost       int
	wrongCards []string
	delays     []int
}

func (d *recordingDelegate) SessionStarted(message string) {
	d.mu.Lock()
	d.started++
	d.mu.Unlock()
}

func (d *recordingDelegate) SessionStopped(err error) {
	d.mu.Lock()
	d.stopped++
	d.stopErr = err
	d.mu.Unlock()
}

func (d *recordingDelegate) TagConnected() { d.mu.Lock(); d.connected++; d.mu.Unlock() }
func (d *recordingDelegate) TagLost()      { d.mu.Lock(); d.lost++; d.mu.Unlock() }

func (d *recordingDelegate) ShowSecurityDelay(remainingMs int) {
	d.mu.Lock()
	d.delays = append(d.delays, remainingMs)
	d.mu.Unlock()
}

func (d *recordingDelegate) WrongCard(message string) {
	d.mu.Lock()
	d.wrongCards = append(d.wrongCards, message)
	d.mu.Unlock()
}

func (d *recordingDelegate) lostCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lost
}

func startedSession(t *testing.T, emulator *cardEmulator) (*CardSession, *mockReader, *recordingDelegate) {
	t.Helper()
	reader := newMockReader(emulator)
	delegate := &recordingDelegate{}
	session := NewCardSession(SessionOptions{
		Reader:   reader,
		Delegate: delegate,
		Config:   DefaultConfig(),
	})
	reader.tap(emulator.uid)
	require.NoError(t, session.Start(context.Background()))
	return session, reader, delegate
}

func TestSessionStartAndStop(t *testing.T) {
	emulator := newCardEmulator(t)
	session, _, delegate := startedSession(t, emulator)

	card := session.Card()
	require.NotNil(t, card)
	assert.Equal(t, testCardID, card.CardID)
	assert.Equal(t, emulator.keyPair.PublicKey, card.CardPublicKey)
	assert.Equal(t, types.FirmwareTypeRelease, card.FirmwareVersion.Type)

	session.Stop()
	assert.Nil(t, session.Card())

	delegate.mu.Lock()
	defer delegate.mu.Unlock()
	assert.Equal(t, 1, delegate.started)
	assert.Equal(t, 1, delegate.connected)
	assert.Equal(t, 1, delegate.stopped)
	assert.NoError(t, delegate.stopErr)
}

func TestSessionStartBusy(t *testing.T) {
	emulator := newCardEmulator(t)
	session, _, _ := startedSession(t, emulator)
	defer session.Stop()

	err := session.Start(context.Background())
	assert.True(t, sdkerrors.HasCode(err, sdkerrors.CodeBusy))
}

func TestSessionStoppedIsTerminal(t *testing.T) {
	emulator := newCardEmulator(t)
	session, _, _ := startedSession(t, emulator)
	session.Stop()
	session.Stop() // idempotent

	err := session.Start(context.Background())
	assert.True(t, sdkerrors.HasCode(err, sdkerrors.CodeSessionInactive))

	_, err = session.Send(context.Background(), apdu.NewCommand(apdu.InsRead, nil))
	assert.True(t, sdkerrors.HasCode(err, sdkerrors.CodeSessionInactive))
}

func TestStartCancelledWhileWaitingForTag(t *testing.T) {
	reader := newMockReader(newCardEmulator(t))
	delegate := &recordingDelegate{}
	session := NewCardSession(SessionOptions{Reader: reader, Delegate: delegate})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	err := session.Start(ctx)
	assert.True(t, sdkerrors.HasCode(err, sdkerrors.CodeUserCancelled))

	delegate.mu.Lock()
	defer delegate.mu.Unlock()
	assert.Equal(t, 1, delegate.stopped)
	assert.True(t, sdkerrors.HasCode(delegate.stopErr, sdkerrors.CodeUserCancelled))
}

func TestPreflightRejectsWrongCard(t *testing.T) {
	emulator := newCardEmulator(t)
	// the first tapped card answers with a different id
	emulator.idQueue = []string{"BB22000000098765"}

	reader := newMockReader(emulator)
	delegate := &recordingDelegate{}
	session := NewCardSession(SessionOptions{
		Reader:         reader,
		Delegate:       delegate,
		ExpectedCardID: testCardID,
	})
	reader.tap(emulator.uid)

	require.NoError(t, session.Start(context.Background()))
	defer session.Stop()

	assert.Equal(t, testCardID, session.Card().CardID)
	assert.Equal(t, 1, reader.restartCount())

	delegate.mu.Lock()
	defer delegate.mu.Unlock()
	require.Len(t, delegate.wrongCards, 1)
	assert.Contains(t, delegate.wrongCards[0], testCardID)
}

func TestMissingPreflightRead(t *testing.T) {
	session := NewCardSession(SessionOptions{Reader: newMockReader(newCardEmulator(t))})

	_, err := Transceive(context.Background(), session, NewAttestCardKeyCommand())
	assert.True(t, sdkerrors.HasCode(err, sdkerrors.CodeMissingPreflightRead))
}

func TestWrongTagDuringExchange(t *testing.T) {
	emulator := newCardEmulator(t)
	session, reader, _ := startedSession(t, emulator)
	defer session.Stop()

	block := make(chan struct{})
	defer close(block)
	reader.mu.Lock()
	reader.blockSend = block
	reader.mu.Unlock()

	errc := make(chan error, 1)
	go func() {
		_, err := session.Send(context.Background(), apdu.NewCommand(apdu.InsRead, nil))
		errc <- err
	}()

	// let the exchange reach the reader, then swap the physical card
	time.Sleep(100 * time.Millisecond)
	reader.tap([]byte{0xDE, 0xAD, 0xBE, 0xEF})

	select {
	case err := <-errc:
		assert.True(t, sdkerrors.HasCode(err, sdkerrors.CodeWrongCardNumber))
	case <-time.After(2 * time.Second):
		t.Fatal("send did not observe the wrong tag")
	}
}

func TestEncryptionBootstrap(t *testing.T) {
	emulator := newCardEmulator(t)
	emulator.requireEncryption = true

	session, _, _ := startedSession(t, emulator)
	defer session.Stop()

	// the preflight read triggered exactly one escalation round
	mode, key := session.encryptionState()
	assert.Equal(t, EncryptionModeFast, mode)
	require.NotNil(t, key)
	assert.Equal(t, testCardID, session.Card().CardID)
	assert.Equal(t, 1, emulator.openSessionCount())

	// further commands reuse the negotiated key
	card, err := Transceive(context.Background(), session, NewReadCommand())
	require.NoError(t, err)
	assert.Equal(t, testCardID, card.CardID)
	assert.Equal(t, 1, emulator.openSessionCount())
}

func TestSecurityDelayResendsIdenticalFrame(t *testing.T) {
	emulator := newCardEmulator(t)
	session, _, delegate := startedSession(t, emulator)
	defer session.Stop()

	before := emulator.frameCount()
	emulator.mu.Lock()
	emulator.pendingDelays = []int{30, 20, 10}
	emulator.mu.Unlock()

	card, err := Transceive(context.Background(), session, NewReadCommand())
	require.NoError(t, err)
	assert.Equal(t, testCardID, card.CardID)

	frames := emulator.framesSince(before)
	require.Len(t, frames, 4)
	for i := 1; i < len(frames); i++ {
		assert.Equal(t, frames[0], frames[i], "resend %d differs from the original frame", i)
	}

	delegate.mu.Lock()
	defer delegate.mu.Unlock()
	assert.Equal(t, []int{300, 200, 100}, delegate.delays)
}

func TestTagLossClearsEncryptionKey(t *testing.T) {
	emulator := newCardEmulator(t)
	emulator.requireEncryption = true
	session, reader, delegate := startedSession(t, emulator)
	defer session.Stop()

	_, key := session.encryptionState()
	require.NotNil(t, key)

	reader.removeTag()
	require.Eventually(t, func() bool {
		return delegate.lostCount() == 1
	}, 2*time.Second, 20*time.Millisecond, "tag loss was not delivered")

	_, key = session.encryptionState()
	assert.Nil(t, key)
}

func TestExchangesSurviveTagCycles(t *testing.T) {
	emulator := newCardEmulator(t)
	emulator.requireEncryption = true
	session, reader, _ := startedSession(t, emulator)
	defer session.Stop()

	for i := 0; i < 3; i++ {
		reader.removeTag()
		emulator.resetLink()
		require.Eventually(t, func() bool {
			_, key := session.encryptionState()
			return key == nil
		}, 2*time.Second, 10*time.Millisecond, "loss %d did not discard the session key", i)

		reader.tap(emulator.uid)
		card, err := Transceive(context.Background(), session, NewReadCommand())
		require.NoError(t, err)
		assert.Equal(t, testCardID, card.CardID)
	}

	// one bootstrap at start plus one renegotiation per re-tap
	assert.Equal(t, 4, emulator.openSessionCount())
}

func TestTagSwapWithinDebounceWindow(t *testing.T) {
	emulator := newCardEmulator(t)
	emulator.requireEncryption = true
	session, reader, delegate := startedSession(t, emulator)
	defer session.Stop()

	_, key := session.encryptionState()
	require.NotNil(t, key)

	// a different physical tag replaces the card faster than the debounce
	// window; the loss must still reach the session
	swapped := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	reader.removeTag()
	reader.tap(swapped)

	require.Eventually(t, func() bool {
		return bytes.Equal(session.currentUID(), swapped)
	}, 2*time.Second, 10*time.Millisecond, "swap arrival was not delivered")

	assert.Equal(t, 1, delegate.lostCount())
	_, key = session.encryptionState()
	assert.Nil(t, key)
}

func TestAttestationCachedReportSkipsOnlineRound(t *testing.T) {
	emulator := newCardEmulator(t)
	session, reader, _ := startedSession(t, emulator)
	defer session.Stop()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"results":[{"CID":"` + testCardID + `","passed":true}]}`))
	}))
	defer server.Close()

	repo := attestation.NewTrustedCardsRepo(nil)
	verifier := attestation.NewOnlineVerifier()
	verifier.BaseURL = server.URL

	task := NewAttestationTask(types.AttestationModeNormal, repo, verifier)
	report, err := task.Run(context.Background(), session)
	require.NoError(t, err)
	assert.Equal(t, types.AttestationVerified, report.CardKeyAttestation)
	assert.Equal(t, types.AttestationVerified, report.Status())
	assert.Equal(t, int32(1), calls.Load())

	// the network round pauses the field exactly once
	reader.mu.Lock()
	assert.Equal(t, 1, reader.pauses)
	assert.Equal(t, 1, reader.resumes)
	reader.mu.Unlock()

	// a second run answers from the trust cache
	cached, err := task.Run(context.Background(), session)
	require.NoError(t, err)
	assert.Equal(t, types.AttestationVerified, cached.CardKeyAttestation)
	assert.Equal(t, int32(1), calls.Load())
}

func TestAttestationOnlineFailureDegradesOffline(t *testing.T) {
	emulator := newCardEmulator(t)
	session, _, _ := startedSession(t, emulator)
	defer session.Stop()

	verifier := attestation.NewOnlineVerifier()
	verifier.BaseURL = "http://127.0.0.1:1" // nothing listens here
	verifier.Client = &http.Client{Timeout: 200 * time.Millisecond}

	task := NewAttestationTask(types.AttestationModeNormal, nil, verifier)
	report, err := task.Run(context.Background(), session)
	require.NoError(t, err)
	assert.Equal(t, types.AttestationVerifiedOffline, report.CardKeyAttestation)
	assert.Equal(t, types.AttestationVerifiedOffline, report.Status())
}

func TestAttestationRejectedOnline(t *testing.T) {
	emulator := newCardEmulator(t)
	session, _, _ := startedSession(t, emulator)
	defer session.Stop()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":[{"CID":"` + testCardID + `","passed":false}]}`))
	}))
	defer server.Close()

	verifier := attestation.NewOnlineVerifier()
	verifier.BaseURL = server.URL

	task := NewAttestationTask(types.AttestationModeNormal, nil, verifier)
	report, err := task.Run(context.Background(), session)
	assert.True(t, sdkerrors.HasCode(err, sdkerrors.CodeCardVerificationFailed))
	assert.Equal(t, types.AttestationFailed, report.CardKeyAttestation)
}

func TestScanTaskReplacesWalletSnapshot(t *testing.T) {
	emulator := newCardEmulator(t)
	session, _, _ := startedSession(t, emulator)
	defer session.Stop()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":[{"CID":"` + testCardID + `","passed":true}]}`))
	}))
	defer server.Close()

	verifier := attestation.NewOnlineVerifier()
	verifier.BaseURL = server.URL

	result, err := NewScanTask(attestation.NewTrustedCardsRepo(nil), verifier).Run(context.Background(), session)
	require.NoError(t, err)
	assert.Equal(t, types.AttestationVerified, result.Attestation.Status())

	require.Len(t, result.Card.Wallets, 1)
	wallet := result.Card.Wallets[0]
	assert.Equal(t, types.WalletStatusLoaded, wallet.Status)
	assert.Equal(t, types.CurveSecp256k1, wallet.Curve)
	assert.Equal(t, emulator.keyPair.PublicKey, wallet.PublicKey)

	// the session snapshot is replaced wholesale, with the card id intact
	assert.Same(t, result.Card, session.Card())
	assert.Equal(t, testCardID, session.Card().CardID)
}
