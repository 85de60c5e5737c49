package dealer

import (
	"errors"
	"testing"

	"blackjack-server/cards"
	"blackjack-server/gameerrors"
)

func hand(ranks ...cards.Rank) cards.Hand {
	h := make(cards.Hand, len(ranks))
	for i, r := range ranks {
		h[i] = cards.New(r, cards.Clubs)
	}
	return h
}

func TestDecide_BaselineHitsSixteenThenStands(t *testing.T) {
	h := hand(cards.Six, cards.Ten)
	if got := Decide(h, Medium, nil); got != Hit {
		t.Fatalf("expected hit on 16, got %v", got)
	}
	h = append(h, cards.New(cards.Five, cards.Hearts))
	if got := Decide(h, Medium, nil); got != Stand {
		t.Fatalf("expected stand on 21, got %v", got)
	}
}

func TestDecide_Table(t *testing.T) {
	cases := []struct {
		name    string
		hand    cards.Hand
		d       Difficulty
		visible []cards.Hand
		want    Decision
	}{
		{"easy stands on 16", hand(cards.Six, cards.King), Easy, nil, Stand},
		{"easy hits 15", hand(cards.Five, cards.King), Easy, nil, Hit},
		{"medium stands on soft 17", hand(cards.Ace, cards.Six), Medium, nil, Stand},
		{"hard hits soft 17", hand(cards.Ace, cards.Six), Hard, nil, Hit},
		{"hard stands on hard 17", hand(cards.Ten, cards.Seven), Hard, nil, Stand},
		{"hard stands on soft 18", hand(cards.Ace, cards.Seven), Hard, nil, Stand},
		{"expert hits hard 17 when beaten", hand(cards.Ten, cards.Seven), Expert,
			[]cards.Hand{hand(cards.Ten, cards.Nine), hand(cards.Ten, cards.Eight)}, Hit},
		{"expert stands on hard 17 when one hand does not beat it", hand(cards.Ten, cards.Seven), Expert,
			[]cards.Hand{hand(cards.Ten, cards.Nine), hand(cards.Ten, cards.Six)}, Stand},
		{"expert ignores busted and natural hands", hand(cards.Ten, cards.Seven), Expert,
			[]cards.Hand{hand(cards.Ten, cards.Nine, cards.Five), hand(cards.Ace, cards.King), hand(cards.Ten, cards.Eight)}, Hit},
		{"expert stands with no contenders", hand(cards.Ten, cards.Seven), Expert,
			[]cards.Hand{hand(cards.Ten, cards.Nine, cards.Five)}, Stand},
		{"bust always stands", hand(cards.Ten, cards.Six, cards.Nine), Expert, nil, Stand},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := Decide(c.hand, c.d, c.visible); got != c.want {
				t.Errorf("Decide(%s, %s) = %v, want %v", c.hand, c.d, got, c.want)
			}
		})
	}
}

func TestDecide_Deterministic(t *testing.T) {
	h := hand(cards.Ace, cards.Six)
	first := Decide(h, Hard, nil)
	for i := 0; i < 100; i++ {
		if got := Decide(h, Hard, nil); got != first {
			t.Fatalf("decision changed on call %d", i)
		}
	}
}

func TestParseDifficulty(t *testing.T) {
	cases := map[string]Difficulty{
		"":       Medium,
		"easy":   Easy,
		"Medium": Medium,
		" hard ": Hard,
		"EXPERT": Expert,
	}
	for in, want := range cases {
		got, err := ParseDifficulty(in)
		if err != nil {
			t.Errorf("ParseDifficulty(%q): unexpected error %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseDifficulty(%q) = %v, want %v", in, got, want)
		}
	}

	_, err := ParseDifficulty("impossible")
	if !errors.Is(err, gameerrors.ErrValidation) {
		t.Errorf("expected validation error for unknown difficulty, got %v", err)
	}
}
