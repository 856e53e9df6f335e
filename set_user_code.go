package cardsdk

import (
	"github.com/status-im/cardsdk-go/apdu"
	"github.com/status-im/cardsdk-go/sdkerrors"
	"github.com/status-im/cardsdk-go/tlv"
	"github.com/status-im/cardsdk-go/types"
)

// SetUserCodeResponse confirms the change; the status word family tells the
// host which codes now differ from their defaults.
type SetUserCodeResponse struct {
	CardID string
}

// SetUserCodeCommand replaces the access code and/or passcode. A code that
// is not being changed is resubmitted unchanged, as the card always expects
// both.
type SetUserCodeCommand struct {
	newAccessCode *UserCode
	newPasscode   *UserCode
}

// NewSetAccessCodeCommand changes the access code only.
func NewSetAccessCodeCommand(accessCode string) *SetUserCodeCommand {
	code := NewUserCode(UserCodeAccessCode, accessCode)
	return &SetUserCodeCommand{newAccessCode: &code}
}

// NewSetPasscodeCommand changes the passcode only.
func NewSetPasscodeCommand(passcode string) *SetUserCodeCommand {
	code := NewUserCode(UserCodePasscode, passcode)
	return &SetUserCodeCommand{newPasscode: &code}
}

func (c *SetUserCodeCommand) PerformPreCheck(card *types.Card) error {
	if c.newAccessCode != nil && !card.Settings.IsSettingAccessCodeAllowed() {
		return sdkerrors.New(sdkerrors.CodeAccessCodeCannotBeChanged)
	}
	if c.newPasscode != nil && !card.Settings.IsSettingPasscodeAllowed() {
		return sdkerrors.New(sdkerrors.CodePasscodeCannotBeChanged)
	}
	if c.newAccessCode != nil &&
		card.Settings.Mask.Contains(types.SettingProhibitDefaultAccessCode) &&
		c.newAccessCode.IsDefault() {
		return sdkerrors.New(sdkerrors.CodeAccessCodeCannotBeDefault)
	}
	return nil
}

func (c *SetUserCodeCommand) MapError(card *types.Card, err error) error {
	if sdkerrors.HasCode(err, sdkerrors.CodeInvalidParams) {
		if card != nil && card.IsPasscodeSet != nil && *card.IsPasscodeSet {
			return sdkerrors.New(sdkerrors.CodeWrongPasscode)
		}
		return sdkerrors.New(sdkerrors.CodeWrongAccessCode)
	}
	return err
}

func (c *SetUserCodeCommand) Serialize(env *SessionEnvironment) (*apdu.Command, error) {
	newAccess := env.AccessCode.Value
	if c.newAccessCode != nil {
		newAccess = c.newAccessCode.Value
	}
	newPasscode := env.Passcode.Value
	if c.newPasscode != nil {
		newPasscode = c.newPasscode.Value
	}

	payload, err := tlv.NewBuilder().
		AppendRaw(tlv.TagPin, env.AccessCode.Value).
		AppendRaw(tlv.TagPin2, env.Passcode.Value).
		Append(tlv.TagCardID, env.Card.CardID).
		AppendRaw(tlv.TagNewPin, newAccess).
		AppendRaw(tlv.TagNewPin2, newPasscode).
		Serialize()
	if err != nil {
		return nil, err
	}
	return apdu.NewCommand(apdu.InsSetUserCode, payload), nil
}

func (c *SetUserCodeCommand) Deserialize(env *SessionEnvironment, resp *apdu.Response) (*SetUserCodeResponse, error) {
	items, err := resp.Tlv()
	if err != nil {
		return nil, err
	}
	d := tlv.NewDecoder(items)

	// The environment keeps the accepted codes so follow-up commands in the
	// same session authenticate with them.
	if c.newAccessCode != nil {
		env.AccessCode = *c.newAccessCode
	}
	if c.newPasscode != nil {
		env.Passcode = *c.newPasscode
		if env.Card != nil {
			isSet := !c.newPasscode.IsDefault()
			env.Card.IsPasscodeSet = &isSet
		}
	}
	return &SetUserCodeResponse{CardID: d.OptionalString(tlv.TagCardID)}, nil
}
