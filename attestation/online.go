package attestation

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/status-im/cardsdk-go/sdkerrors"
)

const defaultBaseURL = "https://api.cards.example.com/"

// OnlineVerifier asks the manufacturer's service whether a card key was
// really produced at the factory. Not usable for development firmware, which
// is absent from the manufacturer database.
type OnlineVerifier struct {
	BaseURL string
	Client  *http.Client
}

func NewOnlineVerifier() *OnlineVerifier {
	return &OnlineVerifier{
		BaseURL: defaultBaseURL,
		Client:  &http.Client{Timeout: 20 * time.Second},
	}
}

type verifyRequestItem struct {
	CardID    string `json:"CID"`
	PublicKey string `json:"publicKey"`
}

type verifyRequest struct {
	Requests []verifyRequestItem `json:"requests"`
}

// CardInfo is one verification result from the manufacturer service.
type CardInfo struct {
	Error   string `json:"error"`
	CardID  string `json:"CID"`
	Passed  bool   `json:"passed"`
	Batch   string `json:"batch"`
	Artwork string `json:"artwork"`
}

type verifyResponse struct {
	Results []CardInfo `json:"results"`
}

// GetCardInfo verifies the card key online. A reachable service that answers
// passed=false means the key is NOT in the manufacturer database and the
// caller must fail attestation; transport failures are returned as-is so the
// caller can degrade to an offline verdict instead.
func (v *OnlineVerifier) GetCardInfo(ctx context.Context, cardID string, cardPublicKey []byte) (*CardInfo, error) {
	reqBody := verifyRequest{Requests: []verifyRequestItem{{
		CardID:    cardID,
		PublicKey: strings.ToUpper(hex.EncodeToString(cardPublicKey)),
	}}}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, sdkerrors.Wrap(sdkerrors.CodeEncodingFailed, err)
	}

	url := strings.TrimSuffix(v.BaseURL, "/") + "/card/verify-and-get-info"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, sdkerrors.Underlying(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.Client.Do(req)
	if err != nil {
		return nil, sdkerrors.Underlying(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, sdkerrors.NewWithMessage(sdkerrors.CodeUnderlying,
			"verification service returned "+resp.Status)
	}

	var parsed verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, sdkerrors.Underlying(err)
	}
	if len(parsed.Results) == 0 {
		return nil, sdkerrors.NewWithMessage(sdkerrors.CodeUnderlying,
			"verification service returned an empty result set")
	}

	result := parsed.Results[0]
	if !result.Passed {
		return nil, sdkerrors.New(sdkerrors.CodeCardVerificationFailed)
	}
	return &result, nil
}
