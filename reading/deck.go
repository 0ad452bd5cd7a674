// Package reading draws tarot spreads and dispatches their
// interpretation. The deck and draw logic live here; interpretation
// and delivery are pluggable through the Generator and Deliverer
// interfaces so the engine stays transport-agnostic.
package reading

import (
	"fmt"
	"math/rand"
)

// Card is a single tarot card with its divinatory keywords.
type Card struct {
	Name     string `json:"name"`
	Keywords string `json:"keywords"`
}

// majorArcana holds the 22 trumps of the Rider-Waite deck.
var majorArcana = []Card{
	{"The Fool", "new beginnings, spontaneity, a leap of faith"},
	{"The Magician", "willpower, skill, making things happen"},
	{"The High Priestess", "intuition, hidden knowledge, stillness"},
	{"The Empress", "abundance, nurture, creativity"},
	{"The Emperor", "structure, authority, stability"},
	{"The Hierophant", "tradition, guidance, shared beliefs"},
	{"The Lovers", "union, choice, alignment of values"},
	{"The Chariot", "determination, control, victory through will"},
	{"Strength", "courage, patience, gentle power"},
	{"The Hermit", "introspection, solitude, inner guidance"},
	{"Wheel of Fortune", "cycles, turning points, fate"},
	{"Justice", "fairness, truth, cause and effect"},
	{"The Hanged Man", "surrender, new perspective, pause"},
	{"Death", "endings, transformation, release"},
	{"Temperance", "balance, moderation, patience"},
	{"The Devil", "attachment, temptation, restriction"},
	{"The Tower", "sudden upheaval, revelation, collapse"},
	{"The Star", "hope, renewal, inspiration"},
	{"The Moon", "illusion, uncertainty, the subconscious"},
	{"The Sun", "joy, success, vitality"},
	{"Judgement", "awakening, reckoning, absolution"},
	{"The World", "completion, wholeness, arrival"},
}

var suits = []struct {
	name  string
	theme string
}{
	{"Wands", "creativity and will"},
	{"Cups", "emotion and relationships"},
	{"Swords", "intellect and conflict"},
	{"Pentacles", "work and material life"},
}

var ranks = []struct {
	name    string
	keyword string
}{
	{"Ace", "a seed"},
	{"Two", "a balance"},
	{"Three", "a growth"},
	{"Four", "a foundation"},
	{"Five", "a struggle"},
	{"Six", "a harmony"},
	{"Seven", "a reassessment"},
	{"Eight", "a movement"},
	{"Nine", "a fruition"},
	{"Ten", "a culmination"},
	{"Page", "a message"},
	{"Knight", "a pursuit"},
	{"Queen", "a mastery"},
	{"King", "an authority"},
}

// deck is the full 78-card Rider-Waite deck, built once at init.
var deck []Card

func init() {
	deck = make([]Card, 0, len(majorArcana)+len(suits)*len(ranks))
	deck = append(deck, majorArcana...)
	for _, s := range suits {
		for _, r := range ranks {
			deck = append(deck, Card{
				Name:     fmt.Sprintf("%s of %s", r.name, s.name),
				Keywords: fmt.Sprintf("%s in %s", r.keyword, s.theme),
			})
		}
	}
}

// DeckSize is the number of cards in a full deck.
const DeckSize = 78

// Deck returns a copy of the full deck in canonical order.
func Deck() []Card {
	out := make([]Card, len(deck))
	copy(out, deck)
	return out
}

// Draw shuffles a fresh deck with rng and returns the top n cards.
// The draw never repeats a card. It panics if n exceeds the deck size
// (catalog validation makes that a programming error).
func Draw(rng *rand.Rand, n int) []Card {
	if n > len(deck) {
		panic(fmt.Sprintf("reading: cannot draw %d cards from a %d-card deck", n, len(deck)))
	}

	shuffled := Deck()
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	return shuffled[:n]
}
