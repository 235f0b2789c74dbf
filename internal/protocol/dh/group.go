package dh

import "math/big"

const group14Hex = "" +
	"FFFFFFFFFFFFFFFFC90FDAA22168C234C4C6628B80DC1CD1" +
	"29024E088A67CC74020BBEA63B139B22514A08798E3404DD" +
	"EF9519B3CD3A431B302B0A6DF25F14374FE1356D6D51C245" +
	"E485B576625E7EC6F44C42E9A637ED6B0BFF5CB6F406B7ED" +
	"EE386BFB5A899FA5AE9F24117C4B1FE649286651ECE45B3D" +
	"C2007CB8A163BF0598DA48361C55D39A69163FA8FD24CF5F" +
	"83655D23DCA3AD961C62F356208552BB9ED529077096966D" +
	"670C354E4ABC9804F1746C08CA18217C32905E462E36CE3B" +
	"E39E772C180E86039B2783A2EC07A28FB5C55DF06F4C52C9" +
	"DE2BCBF6955817183995497CEA956AE515D2261898FA0510" +
	"15728E5A8AACAA68FFFFFFFFFFFFFFFF"

// Group is an immutable prime/generator pair. Accessors hand out copies.
type Group struct {
	p *big.Int
	g *big.Int
}

// NewGroup copies p and g into a Group.
func NewGroup(p, g *big.Int) Group {
	return Group{p: new(big.Int).Set(p), g: new(big.Int).Set(g)}
}

// RFC3526Group14 returns the 2048-bit MODP group with generator 2.
func RFC3526Group14() Group {
	p, _ := new(big.Int).SetString(group14Hex, 16)
	return Group{p: p, g: big.NewInt(2)}
}

// P returns a copy of the prime.
func (gr Group) P() *big.Int { return new(big.Int).Set(gr.p) }

// G returns a copy of the generator.
func (gr Group) G() *big.Int { return new(big.Int).Set(gr.g) }

// KDFParams holds the fixed HKDF salt and info strings. Both ends must use
// byte-identical values.
type KDFParams struct {
	Salt []byte
	Info []byte
}

// DefaultKDFParams returns the salt and info shared with every chat peer.
func DefaultKDFParams() KDFParams {
	return KDFParams{
		Salt: []byte("woosh-chat-salt"),
		Info: []byte("aes-session-key"),
	}
}
