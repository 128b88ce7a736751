package bisca

import "testing"

func TestBotMustFollowSuitWhenBound(t *testing.T) {
	// Deck empty, lead is 7 of clubs, bot holds 2 of clubs and ace of spades.
	// The only legal card is the club, even though it loses the trick.
	hand := []Card{card(Clubs, Rank2), card(Spades, RankA)}
	table := []TableMove{{Seat: 0, Card: card(Clubs, Rank7)}}

	idx := ChooseMove(hand, table, Diamonds, true)
	if idx != 0 {
		t.Fatalf("bot must follow suit with the club, chose index %d (%s)", idx, hand[idx])
	}
}

func TestBotLeadsWeakestNonTrump(t *testing.T) {
	hand := []Card{card(Hearts, RankA), card(Clubs, Rank3), card(Hearts, Rank2)}
	idx := ChooseMove(hand, nil, Hearts, false)
	if idx != 1 {
		t.Fatalf("bot should lead weakest non-trump, chose %s", hand[idx])
	}

	// All trump: lead the weakest trump instead.
	allTrump := []Card{card(Hearts, RankA), card(Hearts, Rank4)}
	idx = ChooseMove(allTrump, nil, Hearts, false)
	if idx != 1 {
		t.Fatalf("bot should lead weakest trump, chose %s", allTrump[idx])
	}
}

func TestBotWinsTrickCheaply(t *testing.T) {
	// Bot can beat the lead in suit with either K or A; takes the cheaper K.
	hand := []Card{card(Clubs, RankA), card(Clubs, RankK), card(Diamonds, Rank2)}
	table := []TableMove{{Seat: 0, Card: card(Clubs, RankJ)}}

	idx := ChooseMove(hand, table, Hearts, false)
	if idx != 1 {
		t.Fatalf("bot should win with the king, chose %s", hand[idx])
	}
}

func TestBotCutsValuableLeadWithTrump(t *testing.T) {
	// Cannot follow the valuable lead, cuts with the weakest trump.
	hand := []Card{card(Hearts, Rank2), card(Hearts, RankA), card(Diamonds, Rank3)}
	table := []TableMove{{Seat: 0, Card: card(Clubs, Rank7)}}

	idx := ChooseMove(hand, table, Hearts, false)
	if idx != 0 {
		t.Fatalf("bot should cut with weakest trump, chose %s", hand[idx])
	}
}

func TestBotDiscardsNonTrumpWhenTrickWorthless(t *testing.T) {
	// Lead carries no points: not worth a trump, discard the weakest non-trump.
	hand := []Card{card(Hearts, Rank5), card(Diamonds, Rank6), card(Diamonds, Rank2)}
	table := []TableMove{{Seat: 0, Card: card(Clubs, Rank4)}}

	idx := ChooseMove(hand, table, Hearts, false)
	if idx != 2 {
		t.Fatalf("bot should discard weakest non-trump, chose %s", hand[idx])
	}
}

func TestBotDegenerateHands(t *testing.T) {
	if idx := ChooseMove(nil, nil, Hearts, false); idx != -1 {
		t.Fatalf("empty hand expected -1, got %d", idx)
	}
	one := []Card{card(Clubs, Rank2)}
	if idx := ChooseMove(one, nil, Hearts, false); idx != 0 {
		t.Fatalf("single card hand expected 0, got %d", idx)
	}
}
