package token

// Verifier validates inbound bearer credentials. Verification is a pure
// function of the token and the shared secret: no I/O, no state.
type Verifier struct {
	codec *Codec
}

func NewVerifier(codec *Codec) *Verifier {
	return &Verifier{codec: codec}
}

// Verify returns the claims embedded in a valid token.
// An empty token fails with ErrNoCredential, a present but invalid
// token (wrong secret, malformed, expired) with ErrBadCredential.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrNoCredential
	}

	claims, err := v.codec.Decode(tokenString)
	if err != nil {
		return nil, ErrBadCredential
	}
	return claims, nil
}
