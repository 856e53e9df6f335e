package cardsdk

import (
	"context"
	"log/slog"

	"github.com/status-im/cardsdk-go/apdu"
	"github.com/status-im/cardsdk-go/sdkerrors"
	"github.com/status-im/cardsdk-go/tlv"
	"github.com/status-im/cardsdk-go/types"
)

// Command is one card operation: it serializes itself against the session
// environment and decodes the card's reply into its typed result.
type Command[T any] interface {
	Serialize(env *SessionEnvironment) (*apdu.Command, error)
	Deserialize(env *SessionEnvironment, resp *apdu.Response) (T, error)
}

// PreChecker lets a command reject itself against the preflighted card before
// any frame is sent, e.g. a firmware capability check.
type PreChecker interface {
	PerformPreCheck(card *types.Card) error
}

// ErrorMapper lets a command reinterpret a card status in its own context,
// e.g. invalidParams meaning "write rejected by the replay counter".
type ErrorMapper interface {
	MapError(card *types.Card, err error) error
}

// preflightFree marks the commands that legitimately run before the card
// snapshot exists: the preflight read itself and session negotiation.
type preflightFree interface {
	runsWithoutPreflight()
}

// maxSecurityDelayResends bounds the resend loop so a card stuck reporting a
// security delay cannot spin the session forever.
const maxSecurityDelayResends = 600

// Transceive runs one command through the session: precheck, serialize once,
// exchange with security-delay resends and lazy encryption bootstrap, decode,
// map errors. The serialized frame is reused verbatim for every resend, so a
// card counting delay progress sees an identical request each time.
func Transceive[T any](ctx context.Context, session *CardSession, cmd Command[T]) (T, error) {
	var zero T
	card := session.Card()

	if card == nil {
		if _, ok := cmd.(preflightFree); !ok {
			return zero, sdkerrors.New(sdkerrors.CodeMissingPreflightRead)
		}
	}
	if pc, ok := cmd.(PreChecker); ok && card != nil {
		if err := pc.PerformPreCheck(card); err != nil {
			return zero, err
		}
	}

	result, err := transceive(ctx, session, cmd)
	if err != nil {
		if mapper, ok := cmd.(ErrorMapper); ok {
			err = mapper.MapError(card, err)
		}
		return zero, err
	}
	return result, nil
}

func transceive[T any](ctx context.Context, session *CardSession, cmd Command[T]) (T, error) {
	var zero T
	env := session.Environment()

	plain, err := cmd.Serialize(env)
	if err != nil {
		return zero, err
	}

	// Session negotiation itself always travels in clear. Everything else is
	// encrypted as soon as a mode is active, renegotiating the session key
	// when a tag loss discarded it.
	frame := plain
	encrypted := false
	var key []byte
	if plain.Ins != apdu.InsOpenSession {
		mode, k := session.encryptionState()
		if mode != EncryptionModeNone {
			if k == nil {
				if err := session.establishEncryption(ctx); err != nil {
					return zero, err
				}
				_, k = session.encryptionState()
			}
			if frame, err = plain.Encrypt(k); err != nil {
				return zero, err
			}
			key = k
			encrypted = true
		}
	}

	delays := 0
	for {
		resp, err := session.Send(ctx, frame)
		if err != nil {
			return zero, err
		}

		switch resp.Sw() {
		case apdu.SwSecurityDelay, apdu.SwNeedPause:
			delays++
			if delays > maxSecurityDelayResends {
				return zero, sdkerrors.New(sdkerrors.CodeRetryExceeded)
			}
			session.delegate.ShowSecurityDelay(securityDelayRemaining(resp, key))
			continue

		case apdu.SwNeedEncryption:
			mode, _ := session.encryptionState()
			next, ok := mode.Next()
			if !ok {
				return zero, sdkerrors.New(sdkerrors.CodeFailedToEstablishEncryption)
			}
			slog.Debug("card requires encryption, escalating",
				"from", mode, "to", next)
			session.setEncryptionState(next, nil)
			if err := session.establishEncryption(ctx); err != nil {
				return zero, err
			}
			if _, key = session.encryptionState(); key == nil {
				return zero, sdkerrors.New(sdkerrors.CodeFailedToEstablishEncryption)
			}
			if frame, err = plain.Encrypt(key); err != nil {
				return zero, err
			}
			encrypted = true
			continue
		}

		if encrypted {
			if resp, err = resp.Decrypt(key); err != nil {
				return zero, err
			}
		}
		if err := resp.Sw().ToError(); err != nil {
			return zero, err
		}
		return cmd.Deserialize(env, resp)
	}
}

// securityDelayRemaining extracts the remaining delay in milliseconds from a
// delay response. The value is advisory; a response we cannot decode reports
// zero rather than failing the loop.
func securityDelayRemaining(resp *apdu.Response, key []byte) int {
	data := resp
	if key != nil {
		if decrypted, err := resp.Decrypt(key); err == nil {
			data = decrypted
		}
	}
	items, err := data.Tlv()
	if err != nil {
		return 0
	}
	remaining, _ := tlv.NewDecoder(items).OptionalInt(tlv.TagPause)
	// The card reports the delay in 10ms ticks.
	return remaining * 10
}
