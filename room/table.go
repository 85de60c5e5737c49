package room

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"blackjack-server/cards"
	"blackjack-server/dealer"
	"blackjack-server/gameerrors"
)

// Scheduler delivers a after d unless the returned cancel func is called first.
type Scheduler func(d time.Duration, a Action) (cancel func())

// delivery is one encoded message bound for one participant's send channel.
type delivery struct {
	playerID string
	send     chan []byte
	data     []byte
}

// Table is the synchronous state machine behind a Room. It is not safe for
// concurrent use; the Room actor is its only caller.
type Table struct {
	ID    string
	Name  string
	State State
	// Order is the roster in join order; it defines turn order.
	Order   []string
	Dealer  cards.Hand
	Current int
	Round   int
	Message string

	players  map[string]*Participant
	deck     *cards.Deck
	opts     Options
	schedule Scheduler
	log      *slog.Logger

	outbox []delivery
	dirty  bool

	turnEpoch       int
	cancelTurn      func()
	nextRoundEpoch  int
	cancelNextRound func()
}

func newTable(id, name string, opts Options, schedule Scheduler) *Table {
	opts = opts.withDefaults()
	return &Table{
		ID:       id,
		Name:     name,
		State:    Waiting,
		Round:    1,
		Message:  "Waiting for players to get ready",
		players:  make(map[string]*Participant),
		opts:     opts,
		schedule: schedule,
		log:      opts.Logger.With("tag", "room", "room", id),
	}
}

// Participant returns the participant with the given id.
func (t *Table) Participant(id string) (*Participant, bool) {
	p, ok := t.players[id]
	return p, ok
}

// Apply validates and applies one action. A rejected action leaves the table
// unchanged. Every accepted mutation queues a game_update for all occupants.
func (t *Table) Apply(a Action) error {
	t.dirty = false
	err := t.apply(a)
	if err == nil && t.dirty {
		t.emitSnapshot("game_update", "")
	}
	return err
}

func (t *Table) apply(a Action) error {
	switch a.Type {
	case ActionJoin:
		return t.join(JoinRequest{PlayerID: a.PlayerID, Name: a.Name, Send: a.Send, IsAI: a.IsAI, Difficulty: a.Difficulty})
	case ActionLeave:
		return t.leave(a.PlayerID)
	case ActionReady:
		return t.ready(a.PlayerID)
	case ActionBet:
		return t.bet(a.PlayerID, a.Amount)
	case ActionHit:
		return t.hit(a.PlayerID)
	case ActionStand:
		return t.stand(a.PlayerID)
	case ActionDoubleDown:
		return t.doubleDown(a.PlayerID)
	case ActionNextRound:
		if _, ok := t.players[a.PlayerID]; !ok {
			return gameerrors.ErrPlayerNotInRoom
		}
		if t.State != GameOver {
			return gameerrors.ErrGameNotOver
		}
		return t.startNextRound()
	case ActionDisconnected:
		return t.disconnect(a.PlayerID, a.Send)
	case ActionReconnected:
		return t.reconnect(a.PlayerID, a.Send)
	case ActionReconnectTimeout:
		return t.reconnectTimeout(a.PlayerID, a.Epoch)
	case ActionTurnTimeout:
		return t.turnTimeout(a.Epoch)
	case ActionAutoNextRound:
		if a.Epoch != t.nextRoundEpoch || t.State != GameOver {
			return nil
		}
		return t.startNextRound()
	case ActionView:
		return nil
	default:
		return gameerrors.State("Unknown action")
	}
}

// --- roster ---

func (t *Table) join(req JoinRequest) error {
	if _, ok := t.players[req.PlayerID]; ok {
		return t.reconnect(req.PlayerID, req.Send)
	}
	name, err := CleanName(req.Name, t.opts.MaxNameLength)
	if err != nil {
		return err
	}
	if req.PlayerID == "" {
		return gameerrors.Validation("Player id is required")
	}
	if len(t.Order) >= t.opts.MaxPlayers {
		return gameerrors.ErrRoomFull
	}
	req.Name = name
	p := newParticipant(req, t.opts.StartingBalance)
	if t.State != Waiting {
		p.State = PSpectating
	}
	t.players[p.ID] = p
	t.Order = append(t.Order, p.ID)
	t.dirty = true
	t.Message = fmt.Sprintf("%s joined the room", p.Name)

	t.emitSnapshot("room_data", p.ID)
	t.notifyExcept(p.ID, PlayerJoinedMsg{Type: "player_joined", Player: participantView(p)})
	t.log.Info("participant joined", "player", p.ID, "name", p.Name, "ai", p.IsAI, "state", p.State)
	return nil
}

func (t *Table) leave(id string) error {
	p, ok := t.players[id]
	if !ok {
		return gameerrors.ErrPlayerNotInRoom
	}
	idx := slices.Index(t.Order, id)
	p.stopGraceTimer()

	// The leaver hears about it too, on its last known channel.
	left := PlayerLeftMsg{Type: "player_left", PlayerID: p.ID, PlayerName: p.Name}
	t.notifyExcept("", left)

	delete(t.players, id)
	t.Order = slices.Delete(t.Order, idx, idx+1)
	t.dirty = true
	t.Message = fmt.Sprintf("%s left the room", p.Name)
	t.log.Info("participant left", "player", id, "state", t.State)

	wasTurn := false
	if t.State == Playing {
		switch {
		case idx < t.Current:
			t.Current--
		case idx == t.Current:
			wasTurn = true
		}
	}
	t.reconcile(wasTurn)
	return nil
}

// reconcile re-evaluates phase transitions after the roster shrank.
func (t *Table) reconcile(wasTurn bool) {
	switch t.State {
	case Waiting:
		t.maybeStartBetting()
	case Betting:
		if !t.anyInRound() {
			t.resetToWaiting()
			return
		}
		if err := t.maybeDeal(); err != nil {
			t.log.Warn("deal after departure failed", "err", err)
		}
	case Playing:
		if !t.anyInRound() {
			t.resetToWaiting()
			return
		}
		if wasTurn {
			t.advanceFrom(t.Current)
		}
	}
}

func (t *Table) anyInRound() bool {
	for _, p := range t.players {
		switch p.State {
		case PBetting, PPlaying, PStand, PBusted, PBlackjack, PFiveCardWin:
			return true
		}
	}
	return false
}

func (t *Table) resetToWaiting() {
	t.cancelTurnTimer()
	t.State = Waiting
	t.Dealer = nil
	t.deck = nil
	t.Current = 0
	for _, id := range t.Order {
		t.players[id].resetRound(t.opts.MinBet)
	}
	t.Message = "Waiting for players to get ready"
}

// --- connection ---

// disconnect starts the reconnection window. A non-nil send names the
// connection that dropped; it is ignored once the participant has been
// rebound to a newer one.
func (t *Table) disconnect(id string, send chan []byte) error {
	p, ok := t.players[id]
	if !ok {
		return gameerrors.ErrPlayerNotInRoom
	}
	if !p.Connected || (send != nil && p.Send != send) {
		return nil
	}
	if t.opts.ReconnectGrace <= 0 {
		return t.leave(id)
	}
	p.Connected = false
	p.Send = nil
	p.stopGraceTimer()
	p.graceEpoch++
	if t.schedule != nil {
		p.cancelGrace = t.schedule(t.opts.ReconnectGrace, Action{Type: ActionReconnectTimeout, PlayerID: id, Epoch: p.graceEpoch})
	}
	t.dirty = true
	t.notifyExcept(id, StatusUpdateMsg{Type: "player_status_update", PlayerID: id, PlayerState: "disconnected"})
	t.log.Info("participant disconnected", "player", id, "grace", t.opts.ReconnectGrace)
	return nil
}

func (t *Table) reconnect(id string, send chan []byte) error {
	p, ok := t.players[id]
	if !ok {
		return gameerrors.ErrPlayerNotInRoom
	}
	p.stopGraceTimer()
	p.graceEpoch++
	wasConnected := p.Connected
	p.Connected = true
	if send != nil {
		p.Send = send
	}
	t.dirty = true
	t.emitSnapshot("room_data", id)
	if !wasConnected {
		t.notifyExcept(id, StatusUpdateMsg{Type: "player_status_update", PlayerID: id, PlayerState: "connected"})
		t.log.Info("participant reconnected", "player", id)
	}
	return nil
}

func (t *Table) reconnectTimeout(id string, epoch int) error {
	p, ok := t.players[id]
	if !ok || p.Connected || p.graceEpoch != epoch {
		return nil
	}
	p.cancelGrace = nil
	t.log.Info("reconnection window expired", "player", id)
	return t.leave(id)
}

// --- waiting / betting ---

func (t *Table) ready(id string) error {
	p, ok := t.players[id]
	if !ok {
		return gameerrors.ErrPlayerNotInRoom
	}
	// A ready that arrives after betting opened for this participant is a repeat.
	if t.State == Betting && (p.State == PBetting || p.State == PPlaying) {
		return nil
	}
	if t.State != Waiting {
		return gameerrors.State("Cannot get ready while the room is %s", t.State)
	}
	switch p.State {
	case PReady:
		return nil
	case PWaiting:
	case PSpectating:
		if p.Balance < t.opts.MinBet {
			return gameerrors.ErrInsufficientBalance
		}
	default:
		return gameerrors.State("Cannot get ready while %s", p.State)
	}
	p.State = PReady
	t.dirty = true
	t.Message = fmt.Sprintf("%s is ready", p.Name)
	t.notifyExcept("", StatusUpdateMsg{Type: "player_status_update", PlayerID: id, PlayerState: p.State.String()})
	t.maybeStartBetting()
	return nil
}

func (t *Table) maybeStartBetting() {
	if t.State != Waiting {
		return
	}
	ready := 0
	for _, id := range t.Order {
		p := t.players[id]
		if p.State == PSpectating {
			continue
		}
		if p.State != PReady {
			return
		}
		ready++
	}
	if ready == 0 {
		return
	}
	t.State = Betting
	for _, id := range t.Order {
		p := t.players[id]
		if p.State != PReady {
			continue
		}
		if p.Balance < t.opts.MinBet {
			p.State = PSpectating
			continue
		}
		p.State = PBetting
	}
	t.Message = "Place your bets"
	t.log.Info("betting started", "round", t.Round, "players", ready)
}

func (t *Table) bet(id string, amount int) error {
	p, ok := t.players[id]
	if !ok {
		return gameerrors.ErrPlayerNotInRoom
	}
	if t.State != Betting {
		return gameerrors.State("Bets are closed")
	}
	switch p.State {
	case PBetting:
	case PPlaying:
		return gameerrors.State("You have already placed a bet")
	default:
		return gameerrors.State("You are not in this round")
	}
	switch {
	case amount <= 0:
		return gameerrors.ErrBetNotPositive
	case amount < t.opts.MinBet:
		return gameerrors.Validation("Minimum bet is %d", t.opts.MinBet)
	case amount > p.Balance:
		return gameerrors.ErrInsufficientBalance
	}
	if t.count(PBetting) == 1 {
		// Last bet closes the betting phase; make sure the deal cannot fail.
		if err := t.ensureDeck(2 * (t.count(PPlaying) + 2)); err != nil {
			return err
		}
	}
	p.Balance -= amount
	p.Bet = amount
	p.State = PPlaying
	t.dirty = true
	t.Message = fmt.Sprintf("%s bet %d", p.Name, amount)
	return t.maybeDeal()
}

func (t *Table) count(s ParticipantState) int {
	n := 0
	for _, p := range t.players {
		if p.State == s {
			n++
		}
	}
	return n
}

func (t *Table) ensureDeck(need int) error {
	if t.deck == nil {
		d, err := t.opts.NewDeck()
		if err != nil {
			return err
		}
		t.deck = d
	}
	if t.deck.Remaining() < need {
		return gameerrors.ErrDeckExhausted
	}
	return nil
}

func (t *Table) maybeDeal() error {
	if t.State != Betting || t.count(PBetting) > 0 {
		return nil
	}
	var seated []*Participant
	for _, id := range t.Order {
		if p := t.players[id]; p.State == PPlaying {
			seated = append(seated, p)
		}
	}
	if err := t.ensureDeck(2 * (len(seated) + 1)); err != nil {
		return err
	}
	for range 2 {
		for _, p := range seated {
			c, _ := t.deck.Draw()
			p.Hand = append(p.Hand, c)
		}
		c, _ := t.deck.Draw()
		t.Dealer = append(t.Dealer, c)
	}
	for _, p := range seated {
		if p.Hand.IsBlackjack() {
			p.State = PBlackjack
		}
	}
	t.State = Playing
	t.dirty = true
	t.log.Info("cards dealt", "round", t.Round, "players", len(seated))
	t.advanceFrom(0)
	return nil
}

// --- playing ---

// advanceFrom gives turn focus to the first roster index >= i that is still
// playing, or hands over to the dealer when none remain.
func (t *Table) advanceFrom(i int) {
	t.cancelTurnTimer()
	for j := i; j < len(t.Order); j++ {
		p := t.players[t.Order[j]]
		if p.State == PPlaying {
			t.Current = j
			t.Message = fmt.Sprintf("%s's turn to act", p.Name)
			t.startTurnTimer()
			return
		}
	}
	t.dealerTurn()
}

func (t *Table) requireTurn(id string) (*Participant, error) {
	p, ok := t.players[id]
	if !ok {
		return nil, gameerrors.ErrPlayerNotInRoom
	}
	if t.State != Playing {
		return nil, gameerrors.State("No hand is in play")
	}
	if t.Current >= len(t.Order) || t.Order[t.Current] != id || p.State != PPlaying {
		return nil, gameerrors.ErrNotYourTurn
	}
	return p, nil
}

func (t *Table) hit(id string) error {
	p, err := t.requireTurn(id)
	if err != nil {
		return err
	}
	c, err := t.deck.Draw()
	if err != nil {
		return err
	}
	p.Hand = append(p.Hand, c)
	t.dirty = true
	switch {
	case p.Hand.IsBust():
		p.State = PBusted
		t.Message = fmt.Sprintf("%s busted with %d", p.Name, p.Hand.Score())
	case p.Hand.IsFiveCardWin():
		p.State = PFiveCardWin
		t.Message = fmt.Sprintf("%s made five cards!", p.Name)
	case p.Hand.Score() == cards.Blackjack:
		p.State = PStand
		t.Message = fmt.Sprintf("%s reached 21", p.Name)
	default:
		t.Message = fmt.Sprintf("%s hits, now at %d", p.Name, p.Hand.Score())
		return nil
	}
	t.advanceFrom(t.Current + 1)
	return nil
}

func (t *Table) stand(id string) error {
	p, err := t.requireTurn(id)
	if err != nil {
		return err
	}
	p.State = PStand
	t.dirty = true
	t.Message = fmt.Sprintf("%s stands on %d", p.Name, p.Hand.Score())
	t.advanceFrom(t.Current + 1)
	return nil
}

func (t *Table) doubleDown(id string) error {
	p, err := t.requireTurn(id)
	if err != nil {
		return err
	}
	if len(p.Hand) != 2 {
		return gameerrors.State("Double down is only allowed on the first two cards")
	}
	if p.Balance < p.Bet {
		return gameerrors.ErrInsufficientBalance
	}
	c, err := t.deck.Draw()
	if err != nil {
		return err
	}
	p.Balance -= p.Bet
	p.Bet *= 2
	p.Hand = append(p.Hand, c)
	t.dirty = true
	if p.Hand.IsBust() {
		p.State = PBusted
		t.Message = fmt.Sprintf("%s doubled down and busted", p.Name)
	} else {
		p.State = PStand
		t.Message = fmt.Sprintf("%s doubled down and stands on %d", p.Name, p.Hand.Score())
	}
	t.advanceFrom(t.Current + 1)
	return nil
}

func (t *Table) turnTimeout(epoch int) error {
	if epoch != t.turnEpoch || t.State != Playing || t.Current >= len(t.Order) {
		return nil
	}
	p := t.players[t.Order[t.Current]]
	if p.State != PPlaying {
		return nil
	}
	p.State = PStand
	t.dirty = true
	t.Message = fmt.Sprintf("%s ran out of time and stands", p.Name)
	t.log.Info("turn timed out", "player", p.ID)
	t.advanceFrom(t.Current + 1)
	return nil
}

func (t *Table) startTurnTimer() {
	if t.opts.TurnTimeout <= 0 || t.schedule == nil {
		return
	}
	t.turnEpoch++
	t.cancelTurn = t.schedule(t.opts.TurnTimeout, Action{Type: ActionTurnTimeout, Epoch: t.turnEpoch})
}

func (t *Table) cancelTurnTimer() {
	if t.cancelTurn != nil {
		t.cancelTurn()
		t.cancelTurn = nil
	}
	t.turnEpoch++
}

// --- dealer and settlement ---

func (t *Table) dealerTurn() {
	t.State = DealerTurn
	t.Message = "Dealer's turn"
	t.dirty = true
	t.emitSnapshot("game_update", "")

	var visible []cards.Hand
	for _, id := range t.Order {
		if p := t.players[id]; p.State == PStand {
			visible = append(visible, p.Hand)
		}
	}
	// With no standing hand the dealer's total cannot change any outcome.
	if len(visible) > 0 {
		for dealer.Decide(t.Dealer, t.opts.Difficulty, visible) == dealer.Hit {
			c, err := t.deck.Draw()
			if err != nil {
				t.log.Warn("dealer could not draw", "err", err)
				break
			}
			t.Dealer = append(t.Dealer, c)
		}
	}
	t.settle()
}

func (t *Table) settle() {
	dealerScore := t.Dealer.Score()
	dealerBJ := t.Dealer.IsBlackjack()
	dealerBust := t.Dealer.IsBust()

	record := RoundRecord{
		RoomID:      t.ID,
		RoomName:    t.Name,
		Round:       t.Round,
		SettledAt:   time.Now(),
		DealerHand:  t.Dealer.Clone(),
		DealerScore: dealerScore,
	}
	var parts []string
	for _, id := range t.Order {
		p := t.players[id]
		if p.Bet == 0 || !p.State.Terminal() {
			continue
		}
		score := p.Hand.Score()
		var credit int
		switch {
		case p.State == PBusted:
			p.Outcome = Lose
		case dealerBJ:
			if p.State == PBlackjack {
				p.Outcome, credit = Push, p.Bet
			} else {
				p.Outcome = Lose
			}
		case p.State == PBlackjack:
			p.Outcome, credit = BlackjackWin, p.Bet+p.Bet*3/2
		case p.State == PFiveCardWin:
			p.Outcome, credit = FiveCardWin, p.Bet*(1+t.opts.FiveCardPayout)
		case dealerBust || score > dealerScore:
			p.Outcome, credit = Win, 2*p.Bet
		case score == dealerScore:
			p.Outcome, credit = Push, p.Bet
		default:
			p.Outcome = Lose
		}
		p.Balance += credit
		p.Net = credit - p.Bet
		parts = append(parts, outcomePhrase(p))
		record.Results = append(record.Results, RoundResult{
			PlayerID: p.ID,
			Name:     p.Name,
			IsAI:     p.IsAI,
			Bet:      p.Bet,
			Hand:     p.Hand.Clone(),
			Score:    score,
			Outcome:  p.Outcome,
			Net:      p.Net,
			Balance:  p.Balance,
		})
	}

	var head string
	switch {
	case dealerBJ:
		head = "Dealer has blackjack"
	case dealerBust:
		head = fmt.Sprintf("Dealer busted with %d", dealerScore)
	default:
		head = fmt.Sprintf("Dealer stands on %d", dealerScore)
	}
	t.Message = head
	if len(parts) > 0 {
		t.Message = head + ". " + strings.Join(parts, ", ")
	}
	record.Message = t.Message
	t.State = GameOver
	t.dirty = true
	t.log.Info("round settled", "round", t.Round, "dealer", dealerScore, "results", len(record.Results))

	if t.opts.OnRoundSettled != nil && len(record.Results) > 0 {
		t.opts.OnRoundSettled(record)
	}
	if t.opts.AutoNextRound > 0 && t.schedule != nil {
		t.nextRoundEpoch++
		t.cancelNextRound = t.schedule(t.opts.AutoNextRound, Action{Type: ActionAutoNextRound, Epoch: t.nextRoundEpoch})
	}
}

func outcomePhrase(p *Participant) string {
	switch p.Outcome {
	case Win:
		return p.Name + " wins"
	case BlackjackWin:
		return p.Name + " wins with blackjack"
	case FiveCardWin:
		return p.Name + " wins with five cards"
	case Push:
		return p.Name + " pushes"
	default:
		return p.Name + " loses"
	}
}

func (t *Table) startNextRound() error {
	d, err := t.opts.NewDeck()
	if err != nil {
		return err
	}
	if t.cancelNextRound != nil {
		t.cancelNextRound()
		t.cancelNextRound = nil
	}
	t.nextRoundEpoch++
	t.cancelTurnTimer()
	t.deck = d
	t.Round++
	t.State = Waiting
	t.Dealer = nil
	t.Current = 0
	for _, id := range t.Order {
		t.players[id].resetRound(t.opts.MinBet)
	}
	t.dirty = true
	t.Message = "Waiting for players to get ready"
	t.notifyExcept("", NotificationMsg{Type: "notification", Message: fmt.Sprintf("Round %d is starting, get ready!", t.Round)})
	t.log.Info("next round", "round", t.Round)
	return nil
}

// stopTimers cancels every pending timer. Called when the room shuts down.
func (t *Table) stopTimers() {
	t.cancelTurnTimer()
	if t.cancelNextRound != nil {
		t.cancelNextRound()
		t.cancelNextRound = nil
	}
	for _, p := range t.players {
		p.stopGraceTimer()
	}
}

// --- views and fan-out ---

// Snapshot builds the room state as seen by viewerID.
func (t *Table) Snapshot(kind, viewerID string) Snapshot {
	s := Snapshot{
		Type:               kind,
		RoomID:             t.ID,
		RoomName:           t.Name,
		GameState:          t.State,
		Message:            t.Message,
		Round:              t.Round,
		CurrentPlayerIndex: t.Current,
		PlayerOrder:        slices.Clone(t.Order),
		Players:            make([]ParticipantView, 0, len(t.Order)),
		Dealer:             dealerView(t.Dealer, t.State),
		You:                viewerID,
	}
	if s.PlayerOrder == nil {
		s.PlayerOrder = []string{}
	}
	if t.State == Playing && t.Current < len(t.Order) {
		s.CurrentPlayerID = t.Order[t.Current]
	}
	for _, id := range t.Order {
		s.Players = append(s.Players, participantView(t.players[id]))
	}
	return s
}

// Summary describes the table for the room registry.
func (t *Table) Summary() Summary {
	s := Summary{
		RoomID:      t.ID,
		RoomName:    t.Name,
		PlayerCount: len(t.Order),
		MaxPlayers:  t.opts.MaxPlayers,
		GameState:   t.State,
	}
	for _, p := range t.players {
		if !p.IsAI {
			s.Humans++
		}
	}
	return s
}

// emitSnapshot queues a per-viewer snapshot. An empty to means every
// connected participant. Snapshots are rendered now so later mutations in
// the same action cannot leak into them.
func (t *Table) emitSnapshot(kind, to string) {
	for _, id := range t.Order {
		if to != "" && id != to {
			continue
		}
		p := t.players[id]
		if p.Send == nil {
			continue
		}
		data, err := json.Marshal(t.Snapshot(kind, id))
		if err != nil {
			t.log.Error("marshaling room state", "err", err)
			continue
		}
		t.outbox = append(t.outbox, delivery{playerID: id, send: p.Send, data: data})
	}
}

// notifyExcept queues msg for every connected participant except skip.
func (t *Table) notifyExcept(skip string, msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		t.log.Error("marshaling notice", "err", err)
		return
	}
	for _, id := range t.Order {
		if id == skip {
			continue
		}
		if p := t.players[id]; p.Send != nil {
			t.outbox = append(t.outbox, delivery{playerID: id, send: p.Send, data: data})
		}
	}
}

// drain returns and clears the queued deliveries.
func (t *Table) drain() []delivery {
	out := t.outbox
	t.outbox = nil
	return out
}

// CleanName trims a display name and checks its length in runes.
func CleanName(name string, limit int) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", gameerrors.Validation("Name is required")
	}
	if limit > 0 && utf8.RuneCountInString(name) > limit {
		return "", gameerrors.Validation("Name must be at most %d characters", limit)
	}
	return name, nil
}
