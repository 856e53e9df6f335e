// Package types holds the value types read from the card: the card snapshot,
// wallets, firmware version, settings masks and the attestation report.
package types

// EllipticCurve identifies a curve family a wallet key lives on. The wire
// form is the curve's name as a zero-terminated UTF-8 string.
type EllipticCurve string

const (
	CurveSecp256k1     EllipticCurve = "secp256k1"
	CurveSecp256r1     EllipticCurve = "secp256r1"
	CurveEd25519       EllipticCurve = "ed25519"
	CurveEd25519Slip10 EllipticCurve = "ed25519_slip0010"
	CurveBls12381G2    EllipticCurve = "bls12381_G2_AUG"
)

func (c EllipticCurve) Valid() bool {
	switch c {
	case CurveSecp256k1, CurveSecp256r1, CurveEd25519, CurveEd25519Slip10, CurveBls12381G2:
		return true
	}
	return false
}
