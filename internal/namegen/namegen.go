// Package namegen produces default court names and opaque court identifiers.
// Both draws are explicit inputs: names come from an injected rand.Source,
// ids from an injected entropy reader, so tests can pin the output.
package namegen

import (
	cryptorand "crypto/rand"
	"encoding/base64"
	"io"
	"math/rand"

	"github.com/google/uuid"
)

var adjectives = []string{
	"Amber", "Blazing", "Bouncing", "Brave", "Breezy", "Bright", "Clever",
	"Cosmic", "Crimson", "Daring", "Dashing", "Dusty", "Electric", "Fearless",
	"Fierce", "Flying", "Golden", "Happy", "Hidden", "Jolly", "Lucky",
	"Mighty", "Nimble", "Rapid", "Roaring", "Rolling", "Rustic", "Silent",
	"Silver", "Sneaky", "Soaring", "Spinning", "Sunny", "Swift", "Thundering",
	"Turbo", "Velvet", "Wild", "Windy", "Zesty",
}

var nouns = []string{
	"Ace", "Badger", "Bear", "Bison", "Comet", "Condor", "Cougar", "Coyote",
	"Dragon", "Eagle", "Falcon", "Fox", "Gator", "Hawk", "Heron", "Hornet",
	"Jaguar", "Kestrel", "Lynx", "Marlin", "Moose", "Mustang", "Osprey",
	"Otter", "Panther", "Phoenix", "Puma", "Raptor", "Raven", "Serve",
	"Smash", "Spike", "Stallion", "Tiger", "Viper", "Volley", "Wolf",
	"Wombat", "Wren", "Yeti",
}

// Generator draws court names and ids.
type Generator struct {
	rng     *rand.Rand
	entropy io.Reader
}

// New creates a Generator using the given source for name picks and
// crypto/rand for court-id entropy.
func New(src rand.Source) *Generator {
	return NewWithEntropy(src, cryptorand.Reader)
}

// NewWithEntropy creates a Generator with an explicit id entropy reader.
func NewWithEntropy(src rand.Source, entropy io.Reader) *Generator {
	return &Generator{rng: rand.New(src), entropy: entropy}
}

// CourtName returns a two-part "Adjective Noun" name picked uniformly from
// the fixed word lists.
func (g *Generator) CourtName() string {
	return adjectives[g.rng.Intn(len(adjectives))] + " " + nouns[g.rng.Intn(len(nouns))]
}

// CourtID returns a 22-character URL-safe token: 128 bits of entropy,
// base64url without padding. The store retries on the rare unique-key
// conflict.
func (g *Generator) CourtID() (string, error) {
	u, err := uuid.NewRandomFromReader(g.entropy)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(u[:]), nil
}
