package game

import (
	"github.com/rs/zerolog/log"

	"gamehall.com/server/deck"
	"gamehall.com/server/timer"
)

var blackjackLogger = log.With().Str("logger_name", "game::blackjack").Logger()

const (
	BlackjackBetting    = "BETTING"
	BlackjackPlaying    = "PLAYING"
	BlackjackDealerTurn = "DEALER_TURN"
	BlackjackSettled    = "SETTLED"
)

const (
	tagBetting   = "betting"
	tagTurn      = "turn"
	tagNextRound = "nextround"
)

const dealerStandsAt = 17

// BlackjackEngine runs the house-edge machine: players bet against a
// scripted dealer, looped round after round in the same room.
type BlackjackEngine struct {
	host    Host
	players []*Player
	waiting []*Player

	phase    string
	shoe     *deck.Deck
	dealer   []deck.Card
	turnIdx  int
	round    int
	doubled  map[string]bool
	natural  map[string]bool
	busted   map[string]bool
	resolved map[string]bool

	pendingSettlement []SettlementRecord
}

func NewBlackjackEngine(host Host, players []*Player) *BlackjackEngine {
	return &BlackjackEngine{
		host:    host,
		players: append([]*Player(nil), players...),
	}
}

func (e *BlackjackEngine) Start() error {
	e.beginBetting()
	return nil
}

func (e *BlackjackEngine) beginBetting() {
	e.round++
	e.phase = BlackjackBetting
	e.dealer = nil
	e.doubled = make(map[string]bool)
	e.natural = make(map[string]bool)
	e.busted = make(map[string]bool)
	e.resolved = make(map[string]bool)
	for _, p := range e.players {
		p.Bet = 0
		p.Hand = nil
		p.Finished = false
	}
	e.host.ResetTimer("", e.host.Settings().BetTimeSec, tagBetting)
}

// handValue counts aces as 11 while that does not bust the hand.
func handValue(cards []deck.Card) int {
	value := 0
	aces := 0
	for _, c := range cards {
		switch {
		case c.Rank >= 10 && c.Rank <= deck.King:
			value += 10
		case c.Rank == deck.Ace:
			value += 11
			aces++
		default:
			value += c.Rank
		}
	}
	for value > 21 && aces > 0 {
		value -= 10
		aces--
	}
	return value
}

func (e *BlackjackEngine) bettors() []*Player {
	out := make([]*Player, 0, len(e.players))
	for _, p := range e.players {
		if p.Bet > 0 && !p.Waiting {
			out = append(out, p)
		}
	}
	return out
}

func (e *BlackjackEngine) HandleAction(playerID string, action Action) error {
	p := e.seatedPlayer(playerID)
	if p == nil {
		return rejectf("player %s is not seated this round", playerID)
	}

	switch action.Verb {
	case VerbBet:
		return e.handleBet(p, action.Amount)
	case VerbHit:
		return e.handleHit(p)
	case VerbStand:
		return e.handleStand(p)
	case VerbDoubleDown:
		return e.handleDoubleDown(p)
	default:
		return rejectf("verb %s is not valid in blackjack", action.Verb)
	}
}

func (e *BlackjackEngine) seatedPlayer(playerID string) *Player {
	for _, p := range e.players {
		if p.ID == playerID && !p.Waiting {
			return p
		}
	}
	return nil
}

func (e *BlackjackEngine) handleBet(p *Player, amount int64) error {
	if e.phase != BlackjackBetting {
		return rejectf("bets are only accepted during betting")
	}
	if p.Bet > 0 {
		return rejectf("bet already placed")
	}
	if amount <= 0 {
		return rejectf("bet must be positive")
	}
	if !e.host.Ledger().Deduct(p.ID, amount) {
		return InsufficientFundsError{PlayerID: p.ID, Amount: amount}
	}
	p.Bet = amount
	e.maybeDealEarly()
	return nil
}

// maybeDealEarly deals as soon as every connected seat has bet.
func (e *BlackjackEngine) maybeDealEarly() {
	for _, p := range e.players {
		if p.Waiting || !p.Connected {
			continue
		}
		if p.Bet == 0 {
			return
		}
	}
	e.deal()
}

func (e *BlackjackEngine) deal() {
	bettors := e.bettors()
	if len(bettors) == 0 {
		// nobody bet this round; run the clock again
		e.host.ResetTimer("", e.host.Settings().BetTimeSec, tagBetting)
		return
	}

	e.shoe = deck.NewStandard(nil).Shuffle()
	for _, p := range bettors {
		p.Hand = e.shoe.Draw(2)
		if handValue(p.Hand) == 21 {
			// natural two-card 21, skipped in the decision iteration
			e.natural[p.ID] = true
		}
	}
	e.dealer = e.shoe.Draw(2)

	e.phase = BlackjackPlaying
	e.turnIdx = -1
	e.advanceTurn()
}

// advanceTurn walks seated bettors in seat order looking for the next one
// who still owes a decision, auto-standing anyone who is disconnected.
func (e *BlackjackEngine) advanceTurn() {
	bettors := e.bettors()
	for i := e.turnIdx + 1; i < len(bettors); i++ {
		p := bettors[i]
		if e.natural[p.ID] || e.busted[p.ID] || e.resolved[p.ID] {
			continue
		}
		if !p.Connected {
			e.resolved[p.ID] = true
			continue
		}
		e.turnIdx = i
		e.host.ResetTimer(p.ID, e.host.Settings().TurnTimeSec, tagTurn)
		return
	}
	e.dealerTurn()
}

func (e *BlackjackEngine) currentPlayer() *Player {
	bettors := e.bettors()
	if e.phase != BlackjackPlaying || e.turnIdx < 0 || e.turnIdx >= len(bettors) {
		return nil
	}
	return bettors[e.turnIdx]
}

func (e *BlackjackEngine) handleHit(p *Player) error {
	if e.phase != BlackjackPlaying {
		return rejectf("cannot hit outside the play phase")
	}
	if current := e.currentPlayer(); current == nil || current.ID != p.ID {
		return rejectf("not your turn")
	}

	card, ok := e.shoe.DrawOne()
	if !ok {
		// exhausted shoe forces a stand
		e.resolved[p.ID] = true
		e.advanceTurn()
		return nil
	}
	p.Hand = append(p.Hand, card)
	value := handValue(p.Hand)
	if value > 21 {
		e.busted[p.ID] = true
		e.resolved[p.ID] = true
		e.advanceTurn()
		return nil
	}
	if value == 21 {
		e.resolved[p.ID] = true
		e.advanceTurn()
		return nil
	}
	e.host.ResetTimer(p.ID, e.host.Settings().TurnTimeSec, tagTurn)
	return nil
}

func (e *BlackjackEngine) handleStand(p *Player) error {
	if e.phase != BlackjackPlaying {
		return rejectf("cannot stand outside the play phase")
	}
	if current := e.currentPlayer(); current == nil || current.ID != p.ID {
		return rejectf("not your turn")
	}
	e.resolved[p.ID] = true
	e.advanceTurn()
	return nil
}

func (e *BlackjackEngine) handleDoubleDown(p *Player) error {
	if e.phase != BlackjackPlaying {
		return rejectf("cannot double down outside the play phase")
	}
	if current := e.currentPlayer(); current == nil || current.ID != p.ID {
		return rejectf("not your turn")
	}
	if len(p.Hand) != 2 || e.doubled[p.ID] {
		return rejectf("double down is only allowed as the first decision")
	}
	if e.shoe.Empty() {
		return rejectf("the shoe is exhausted")
	}
	if !e.host.Ledger().Deduct(p.ID, p.Bet) {
		return InsufficientFundsError{PlayerID: p.ID, Amount: p.Bet}
	}
	e.doubled[p.ID] = true
	p.Bet *= 2

	// exactly one card, then a forced stand
	if card, ok := e.shoe.DrawOne(); ok {
		p.Hand = append(p.Hand, card)
		if handValue(p.Hand) > 21 {
			e.busted[p.ID] = true
		}
	}
	e.resolved[p.ID] = true
	e.advanceTurn()
	return nil
}

func (e *BlackjackEngine) dealerTurn() {
	e.phase = BlackjackDealerTurn
	e.host.CancelTimer()

	anyStanding := false
	for _, p := range e.bettors() {
		if !e.busted[p.ID] {
			anyStanding = true
			break
		}
	}
	if anyStanding {
		for handValue(e.dealer) < dealerStandsAt {
			card, ok := e.shoe.DrawOne()
			if !ok {
				break
			}
			e.dealer = append(e.dealer, card)
		}
	}
	e.settle()
}

// settle computes the authoritative payouts: blackjack 2.5x, win 2x, push
// returns the bet, loss forfeits it. Records are the single source for
// ledger deltas.
func (e *BlackjackEngine) settle() {
	e.phase = BlackjackSettled
	dealerValue := handValue(e.dealer)
	dealerBust := dealerValue > 21

	records := make([]SettlementRecord, 0, len(e.players))
	for _, p := range e.bettors() {
		value := handValue(p.Hand)
		var payout int64
		var outcome string
		switch {
		case e.busted[p.ID]:
			payout = 0
			outcome = OutcomeBust
		case e.natural[p.ID]:
			payout = p.Bet * 5 / 2
			outcome = OutcomeBlackjack
		case dealerBust || value > dealerValue:
			payout = p.Bet * 2
			outcome = OutcomeWin
		case value == dealerValue:
			payout = p.Bet
			outcome = OutcomePush
		default:
			payout = 0
			outcome = OutcomeLose
		}
		records = append(records, SettlementRecord{
			PlayerID: p.ID,
			Wagered:  p.Bet,
			Payout:   payout,
			Outcome:  outcome,
		})
		p.Finished = true
	}
	e.pendingSettlement = records

	blackjackLogger.Info().
		Str("room", e.host.RoomID()).
		Msgf("Round %d settled, dealer %s (%d)", e.round, deck.CardsToString(e.dealer), dealerValue)

	// the table deals again on its own
	e.host.ResetTimer("", 5, tagNextRound)
}

func (e *BlackjackEngine) SetConnectionStatus(playerID string, connected bool) {
	if connected {
		return
	}
	if e.phase == BlackjackBetting {
		// a seat that drops without betting no longer holds up the deal
		e.maybeDealEarly()
		return
	}
	if current := e.currentPlayer(); current != nil && current.ID == playerID {
		// forced default: stand
		e.resolved[playerID] = true
		e.advanceTurn()
	}
}

func (e *BlackjackEngine) TimerFired(msg timer.Msg) {
	switch msg.Tag {
	case tagBetting:
		if e.phase != BlackjackBetting {
			return
		}
		// non-bettors sit the round out
		e.deal()
	case tagTurn:
		if e.phase != BlackjackPlaying {
			return
		}
		current := e.currentPlayer()
		if current == nil || current.ID != msg.PlayerID {
			return
		}
		// forced default: stand
		e.resolved[current.ID] = true
		e.advanceTurn()
	case tagNextRound:
		if e.phase != BlackjackSettled {
			return
		}
		e.NextRound()
	}
}

func (e *BlackjackEngine) Serialize(viewerID string) *Snapshot {
	snapshot := &Snapshot{
		Phase: e.phase,
	}
	if current := e.currentPlayer(); current != nil {
		snapshot.TurnPlayerID = current.ID
	}

	// dealer hole card stays hidden until the dealer plays
	if len(e.dealer) > 0 {
		if e.phase == BlackjackDealerTurn || e.phase == BlackjackSettled {
			snapshot.DealerCards = e.dealer
			snapshot.DealerValue = handValue(e.dealer)
		} else {
			snapshot.DealerCards = e.dealer[:1]
		}
	}

	for _, p := range e.players {
		v := p.view(p.ID == viewerID)
		v.Blackjack = e.natural[p.ID]
		v.Busted = e.busted[p.ID]
		if p.ID == viewerID {
			v.HandValue = handValue(p.Hand)
		}
		snapshot.Players = append(snapshot.Players, v)
	}
	for _, p := range e.waiting {
		snapshot.Players = append(snapshot.Players, p.view(p.ID == viewerID))
	}
	return snapshot
}

func (e *BlackjackEngine) TakeSettlement() []SettlementRecord {
	records := e.pendingSettlement
	e.pendingSettlement = nil
	return records
}

func (e *BlackjackEngine) Finished() bool {
	return e.phase == BlackjackSettled
}

func (e *BlackjackEngine) NextRound() error {
	if e.phase != BlackjackSettled {
		return ErrRoundNotFinished
	}
	for _, p := range e.waiting {
		p.Waiting = false
		e.players = append(e.players, p)
	}
	e.waiting = nil
	e.beginBetting()
	return nil
}

func (e *BlackjackEngine) JoinWaiting(p *Player) error {
	e.waiting = append(e.waiting, p)
	return nil
}
