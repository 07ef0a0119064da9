package credentials

import (
	"crypto/rand"
	"math/big"
)

// InviteCodeLength is the fixed length of generated family invite codes
const InviteCodeLength = 6

// inviteCodeChars is the invite-code alphabet: uppercase alphanumerics only,
// so codes survive case-insensitive entry
const inviteCodeChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// CodeGenerator produces invite codes. The membership manager takes this as
// an interface so tests can substitute a deterministic source.
type CodeGenerator interface {
	NewCode() (string, error)
}

// CryptoCodeGenerator draws codes from crypto/rand
type CryptoCodeGenerator struct{}

// NewCryptoCodeGenerator creates the production code generator
func NewCryptoCodeGenerator() *CryptoCodeGenerator {
	return &CryptoCodeGenerator{}
}

// NewCode generates a random invite code of InviteCodeLength characters
func (g *CryptoCodeGenerator) NewCode() (string, error) {
	code := make([]byte, InviteCodeLength)
	max := big.NewInt(int64(len(inviteCodeChars)))

	for i := range code {
		num, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		code[i] = inviteCodeChars[num.Int64()]
	}

	return string(code), nil
}
