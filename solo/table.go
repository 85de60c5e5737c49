// Package solo is the single-player mode: one visitor against the dealer,
// driven by request/response calls. It shares the card and dealer rules with
// rooms but has no turn order, so it also supports splitting a pair.
package solo

import (
	"fmt"
	"strings"

	"blackjack-server/cards"
	"blackjack-server/dealer"
	"blackjack-server/gameerrors"
)

// State is the single-player table's phase.
type State int

const (
	Betting State = iota
	PlayerTurn
	SplitFirstHand
	SplitSecondHand
	DealerTurn
	GameOver
)

func (s State) String() string {
	switch s {
	case Betting:
		return "betting"
	case PlayerTurn:
		return "player_turn"
	case SplitFirstHand:
		return "split_first_hand"
	case SplitSecondHand:
		return "split_second_hand"
	case DealerTurn:
		return "dealer_turn"
	case GameOver:
		return "game_over"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// acting reports whether the player still has a hand in play.
func (s State) acting() bool {
	return s == PlayerTurn || s == SplitFirstHand || s == SplitSecondHand
}

// Options are the table rules.
type Options struct {
	StartingBalance int
	MinBet          int
	FiveCardPayout  int
	NewDeck         func() (*cards.Deck, error)
}

// Settlement is what a finished round contributes to the player's stats.
type Settlement struct {
	Net       int
	Blackjack bool
	Busted    bool
	Balance   int
}

// Table is one visitor's game. It is not safe for concurrent use; the
// Manager serializes calls per visitor.
type Table struct {
	phase      State
	balance    int
	bet        int
	secondBet  int
	hand       cards.Hand
	second     cards.Hand
	house      cards.Hand
	difficulty dealer.Difficulty
	message    string
	results    []string

	opts    Options
	deck    *cards.Deck
	settled *Settlement
}

// NewTable returns a table in the betting state with the starting balance.
func NewTable(opts Options) *Table {
	if opts.MinBet <= 0 {
		opts.MinBet = 1
	}
	if opts.FiveCardPayout <= 0 {
		opts.FiveCardPayout = 2
	}
	if opts.NewDeck == nil {
		opts.NewDeck = func() (*cards.Deck, error) { return cards.NewDeck(1) }
	}
	return &Table{
		phase:      Betting,
		balance:    opts.StartingBalance,
		difficulty: dealer.Medium,
		message:    "Place your bet",
		opts:       opts,
	}
}

// PlaceBet sets the wager for the next round. Betting again before the round
// starts replaces the previous bet. After a finished round it clears the
// table first. An empty difficulty keeps the current one.
func (t *Table) PlaceBet(amount int, difficulty string) error {
	if t.phase == GameOver {
		t.clearRound()
	}
	if t.phase != Betting {
		return gameerrors.State("Bets can only be placed before the round starts")
	}
	d := t.difficulty
	if difficulty != "" {
		var err error
		if d, err = dealer.ParseDifficulty(difficulty); err != nil {
			return err
		}
	}
	available := t.balance + t.bet
	switch {
	case amount <= 0:
		return gameerrors.ErrBetNotPositive
	case amount < t.opts.MinBet:
		return gameerrors.Validation("Minimum bet is %d", t.opts.MinBet)
	case amount > available:
		return gameerrors.ErrInsufficientBalance
	}
	t.balance = available - amount
	t.bet = amount
	t.difficulty = d
	t.message = fmt.Sprintf("Bet %d placed, start the round", amount)
	return nil
}

// Start deals the opening cards. A natural ends the round at once.
func (t *Table) Start() error {
	if t.phase != Betting {
		return gameerrors.State("The round has already started")
	}
	if t.bet == 0 {
		return gameerrors.State("Place a bet first")
	}
	deck, err := t.opts.NewDeck()
	if err != nil {
		return err
	}
	if deck.Remaining() < 4 {
		return gameerrors.ErrDeckExhausted
	}
	t.deck = deck
	for range 2 {
		t.hand = append(t.hand, t.mustDraw())
		t.house = append(t.house, t.mustDraw())
	}
	t.phase = PlayerTurn
	t.message = "Your turn"
	if t.hand.IsBlackjack() {
		t.finish()
	}
	return nil
}

// Hit draws a card into the unsplit hand.
func (t *Table) Hit() error {
	if t.phase != PlayerTurn {
		return t.notActing()
	}
	if err := t.draw(&t.hand); err != nil {
		return err
	}
	if handDone(t.hand) {
		t.finish()
	}
	return nil
}

// Stand ends the unsplit hand.
func (t *Table) Stand() error {
	if t.phase != PlayerTurn {
		return t.notActing()
	}
	t.finish()
	return nil
}

// DoubleDown doubles the bet, draws exactly one card and ends the hand.
func (t *Table) DoubleDown() error {
	if t.phase != PlayerTurn {
		return t.notActing()
	}
	if len(t.hand) != 2 {
		return gameerrors.State("You can only double down on your first two cards")
	}
	if t.balance < t.bet {
		return gameerrors.ErrInsufficientBalance
	}
	if err := t.draw(&t.hand); err != nil {
		return err
	}
	t.balance -= t.bet
	t.bet *= 2
	t.finish()
	return nil
}

// Split divides a starting pair into two hands with equal bets and deals a
// second card to each.
func (t *Table) Split() error {
	if t.phase != PlayerTurn {
		return t.notActing()
	}
	if !t.hand.CanSplit() {
		return gameerrors.State("Only a starting pair can be split")
	}
	if t.balance < t.bet {
		return gameerrors.ErrInsufficientBalance
	}
	if t.deck.Remaining() < 2 {
		return gameerrors.ErrDeckExhausted
	}
	t.second = cards.Hand{t.hand[1]}
	t.hand = cards.Hand{t.hand[0]}
	t.balance -= t.bet
	t.secondBet = t.bet
	t.hand = append(t.hand, t.mustDraw())
	t.second = append(t.second, t.mustDraw())
	t.phase = SplitFirstHand
	t.message = "Playing first hand"
	if handDone(t.hand) {
		t.advanceSplit()
	}
	return nil
}

// SplitHit draws into split hand 1 or 2.
func (t *Table) SplitHit(hand int) error {
	h, err := t.splitHand(hand)
	if err != nil {
		return err
	}
	if err := t.draw(h); err != nil {
		return err
	}
	if handDone(*h) {
		t.advanceSplit()
	}
	return nil
}

// SplitStand ends split hand 1 or 2.
func (t *Table) SplitStand(hand int) error {
	if _, err := t.splitHand(hand); err != nil {
		return err
	}
	t.advanceSplit()
	return nil
}

// Reset restores the starting balance and clears the table. The chosen
// difficulty is kept.
func (t *Table) Reset() {
	t.clearRound()
	t.balance = t.opts.StartingBalance
	t.message = "Game reset, place your bet"
}

func (t *Table) splitHand(hand int) (*cards.Hand, error) {
	switch {
	case hand == 1 && t.phase == SplitFirstHand:
		return &t.hand, nil
	case hand == 2 && t.phase == SplitSecondHand:
		return &t.second, nil
	case hand != 1 && hand != 2:
		return nil, gameerrors.Validation("Hand must be 1 or 2")
	default:
		return nil, gameerrors.State("That hand is not in play")
	}
}

func (t *Table) advanceSplit() {
	if t.phase == SplitFirstHand {
		t.phase = SplitSecondHand
		t.message = "Playing second hand"
		if !handDone(t.second) {
			return
		}
	}
	t.finish()
}

func (t *Table) notActing() error {
	if t.phase == SplitFirstHand || t.phase == SplitSecondHand {
		return gameerrors.State("Play your split hands with the split actions")
	}
	return gameerrors.State("No hand is in play")
}

// handDone reports a hand that can take no more cards.
func handDone(h cards.Hand) bool {
	return h.IsBust() || h.IsFiveCardWin() || h.Score() == cards.Blackjack
}

func (t *Table) draw(h *cards.Hand) error {
	c, err := t.deck.Draw()
	if err != nil {
		return err
	}
	*h = append(*h, c)
	return nil
}

// mustDraw is used only after Remaining has been checked.
func (t *Table) mustDraw() cards.Card {
	c, _ := t.deck.Draw()
	return c
}

func (t *Table) hands() []cards.Hand {
	if t.second != nil {
		return []cards.Hand{t.hand, t.second}
	}
	return []cards.Hand{t.hand}
}

// finish plays the dealer and settles every hand.
func (t *Table) finish() {
	t.phase = DealerTurn
	split := t.second != nil

	var visible []cards.Hand
	for _, h := range t.hands() {
		if h.IsBust() || h.IsFiveCardWin() || (!split && h.IsBlackjack()) {
			continue
		}
		visible = append(visible, h)
	}
	if len(visible) > 0 {
		for dealer.Decide(t.house, t.difficulty, visible) == dealer.Hit {
			if err := t.draw(&t.house); err != nil {
				break
			}
		}
	}

	bets := []int{t.bet, t.secondBet}
	staked, credit := 0, 0
	s := &Settlement{}
	t.results = t.results[:0]
	for i, h := range t.hands() {
		outcome, paid := t.settleHand(h, bets[i], split)
		t.results = append(t.results, outcome)
		staked += bets[i]
		credit += paid
		s.Busted = s.Busted || h.IsBust()
		s.Blackjack = s.Blackjack || (!split && h.IsBlackjack())
	}
	t.balance += credit
	s.Net = credit - staked
	s.Balance = t.balance
	t.settled = s
	t.phase = GameOver
	t.message = t.resultMessage(s.Net)
}

func (t *Table) settleHand(h cards.Hand, bet int, split bool) (string, int) {
	natural := !split && h.IsBlackjack()
	dealerScore := t.house.Score()
	switch {
	case h.IsBust():
		return "lose", 0
	case t.house.IsBlackjack():
		if natural {
			return "push", bet
		}
		return "lose", 0
	case natural:
		return "blackjack", bet + bet*3/2
	case h.IsFiveCardWin():
		return "five_card_win", bet * (1 + t.opts.FiveCardPayout)
	case t.house.IsBust() || h.Score() > dealerScore:
		return "win", 2 * bet
	case h.Score() == dealerScore:
		return "push", bet
	default:
		return "lose", 0
	}
}

func (t *Table) resultMessage(net int) string {
	var head string
	switch {
	case t.house.IsBlackjack():
		head = "Dealer has blackjack"
	case t.house.IsBust():
		head = "Dealer busts"
	default:
		head = fmt.Sprintf("Dealer has %d", t.house.Score())
	}
	var tail string
	switch {
	case net > 0:
		tail = fmt.Sprintf("you win %d", net)
	case net < 0:
		tail = fmt.Sprintf("you lose %d", -net)
	default:
		tail = "push"
	}
	msg := head + ", " + tail + " (" + strings.Join(t.results, ", ") + ")"
	if t.balance < t.opts.MinBet {
		msg += ". Out of money, reset to play again"
	}
	return msg
}

func (t *Table) clearRound() {
	t.phase = Betting
	t.bet = 0
	t.secondBet = 0
	t.hand = nil
	t.second = nil
	t.house = nil
	t.results = nil
	t.deck = nil
	t.settled = nil
	t.message = "Place your bet"
}

// takeSettlement returns the settlement of a round that just finished, once.
func (t *Table) takeSettlement() *Settlement {
	s := t.settled
	t.settled = nil
	return s
}
