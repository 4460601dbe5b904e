// Package handrank ranks showdown hands. Evaluate picks the best five-card
// hand from two hole cards and five community cards and returns a RankedHand
// with a total order: category first, then the category-specific tiebreak
// ranks, then kickers in descending rank. Suits never break ties.
package handrank

import (
	"errors"
	"fmt"
	"sort"

	"cardroom-server/pkg/deck"
)

// ErrWrongCardCount is an error when Evaluate is not given 2+5 cards
var ErrWrongCardCount = errors.New("evaluate requires two hole cards and five community cards")

// RankedHand is a fully ranked five-card hand
type RankedHand struct {
	Category Category
	// Tiebreaks holds up to five ranks: the category's defining ranks first,
	// then kickers descending
	Tiebreaks []int
	// Best is the winning five-card selection
	Best deck.Hand

	strength int
}

// Evaluate returns the best possible five-card hand from the seven candidates
func Evaluate(hole deck.Hand, community deck.Hand) (*RankedHand, error) {
	if len(hole) != 2 || len(community) != 5 {
		return nil, ErrWrongCardCount
	}

	cards := make(deck.Hand, 0, 7)
	cards = append(cards, hole...)
	cards = append(cards, community...)

	var best *RankedHand

	// 21 five-card subsets of seven cards: drop each pair of indexes
	for skipA := 0; skipA < 7; skipA++ {
		for skipB := skipA + 1; skipB < 7; skipB++ {
			five := make(deck.Hand, 0, 5)
			for i, card := range cards {
				if i == skipA || i == skipB {
					continue
				}

				five = append(five, card)
			}

			ranked := rankFive(five)
			if best == nil || ranked.strength > best.strength {
				best = ranked
			}
		}
	}

	return best, nil
}

// Compare returns < 0 if r is weaker than other, > 0 if stronger, and 0 for
// a tie. Equal category and tiebreak sequences tie regardless of suits.
func (r *RankedHand) Compare(other *RankedHand) int {
	return r.strength - other.strength
}

// Strength returns a comparable strength value; bigger is better
func (r *RankedHand) Strength() int {
	return r.strength
}

func (r *RankedHand) String() string {
	return fmt.Sprintf("%s (%s)", r.Category, r.Best)
}

// rankFive ranks exactly five cards
func rankFive(cards deck.Hand) *RankedHand {
	sorted := cards.Clone()
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Rank > sorted[j].Rank })

	flush := isFlush(sorted)
	straightHigh := straightHighCard(sorted)

	groups := groupRanks(sorted)

	var category Category
	var tiebreaks []int

	switch {
	case flush && straightHigh > 0:
		category = StraightFlush
		tiebreaks = []int{straightHigh}
	case groups[0].count == 4:
		category = FourOfAKind
		tiebreaks = []int{groups[0].rank, groups[1].rank}
	case groups[0].count == 3 && groups[1].count == 2:
		category = FullHouse
		tiebreaks = []int{groups[0].rank, groups[1].rank}
	case flush:
		category = Flush
		tiebreaks = ranksOf(sorted)
	case straightHigh > 0:
		category = Straight
		tiebreaks = []int{straightHigh}
	case groups[0].count == 3:
		category = ThreeOfAKind
		tiebreaks = []int{groups[0].rank, groups[1].rank, groups[2].rank}
	case groups[0].count == 2 && groups[1].count == 2:
		category = TwoPair
		tiebreaks = []int{groups[0].rank, groups[1].rank, groups[2].rank}
	case groups[0].count == 2:
		category = OnePair
		tiebreaks = []int{groups[0].rank, groups[1].rank, groups[2].rank, groups[3].rank}
	default:
		category = HighCard
		tiebreaks = ranksOf(sorted)
	}

	return &RankedHand{
		Category:  category,
		Tiebreaks: tiebreaks,
		Best:      sorted,
		strength:  calculateStrength(category, tiebreaks),
	}
}

// calculateStrength packs the category and tiebreak ranks into a positional
// base-15 value so integer comparison gives the total order
func calculateStrength(category Category, tiebreaks []int) int {
	strength := int(category)
	for i := 0; i < 5; i++ {
		strength *= 15
		if i < len(tiebreaks) {
			strength += tiebreaks[i]
		}
	}

	return strength
}

func isFlush(cards deck.Hand) bool {
	suit := cards[0].Suit
	for _, card := range cards[1:] {
		if card.Suit != suit {
			return false
		}
	}

	return true
}

// straightHighCard returns the high card of a five-card straight, or 0.
// Cards must be sorted descending. The wheel (A-5-4-3-2) returns 5.
func straightHighCard(cards deck.Hand) int {
	run := true
	for i := 1; i < len(cards); i++ {
		if cards[i].Rank != cards[i-1].Rank-1 {
			run = false
			break
		}
	}

	if run {
		return cards[0].Rank
	}

	// ace plays low: A,5,4,3,2
	if cards[0].Rank == deck.Ace {
		low := true
		for i := 1; i < len(cards); i++ {
			if cards[i].Rank != 6-i {
				low = false
				break
			}
		}

		if low {
			return 5
		}
	}

	return 0
}

type rankGroup struct {
	rank  int
	count int
}

// groupRanks returns rank groups ordered by count descending, then rank
// descending. Cards must be sorted descending so singles keep kicker order.
func groupRanks(cards deck.Hand) []rankGroup {
	groups := make([]rankGroup, 0, 5)
	for _, card := range cards {
		if n := len(groups); n > 0 && groups[n-1].rank == card.Rank {
			groups[n-1].count++
			continue
		}

		groups = append(groups, rankGroup{rank: card.Rank, count: 1})
	}

	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].count != groups[j].count {
			return groups[i].count > groups[j].count
		}

		return groups[i].rank > groups[j].rank
	})

	return groups
}

func ranksOf(cards deck.Hand) []int {
	ranks := make([]int, len(cards))
	for i, card := range cards {
		ranks[i] = card.Rank
	}

	return ranks
}
