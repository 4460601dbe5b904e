package deck

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHand(t *testing.T) {
	a := assert.New(t)

	hand := Hand{}
	hand.AddCard(CardFromString("2c"))
	hand.AddCard(CardFromString("14s"))

	a.Equal("2c,14s", hand.String())
}

func TestHand_Clone(t *testing.T) {
	a := assert.New(t)

	hand := Hand(CardsFromString("2c,3c,4c"))
	clone := hand.Clone()

	clone[0] = CardFromString("14s")
	a.Equal("2c,3c,4c", hand.String())
	a.Equal("14s,3c,4c", clone.String())
}
