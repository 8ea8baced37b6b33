package game

import (
	"math/rand"

	"github.com/rs/zerolog/log"

	"gamehall.com/server/deck"
	"gamehall.com/server/timer"
	"gamehall.com/server/util"
)

var onecardLogger = log.With().Str("logger_name", "game::onecard").Logger()

const (
	OneCardPlaying    = "PLAYING"
	OneCardChooseSuit = "CHOOSE_SUIT"
	OneCardFinished   = "FINISHED"
)

const tagChooseSuit = "choose_suit"

const onecardHandSize = 5

// Attack tiers. Tiers are mutually exclusive defenses: a pending attack can
// only be escalated by the same tier or wiped by a draw; only the lowest
// tier has a designated block rank.
const (
	attackNone = iota
	attackTwo
	attackAce
	attackJoker
)

const blockRank = 3

func attackTier(c deck.Card) int {
	switch {
	case c.IsJoker():
		return attackJoker
	case c.Rank == deck.Ace:
		return attackAce
	case c.Rank == 2:
		return attackTwo
	}
	return attackNone
}

func attackValue(tier int) int {
	switch tier {
	case attackTwo:
		return 2
	case attackAce:
		return 3
	case attackJoker:
		return 5
	}
	return 0
}

// OneCardEngine is the shedding machine: match suit or rank, stack attacks
// of the same tier, draw your way out, first to empty wins.
type OneCardEngine struct {
	host    Host
	players []*Player
	waiting []*Player
	pot     int64

	// seats whose stake funded the current pot
	escrowed map[string]bool

	phase    string
	drawPile *deck.Deck
	discard  []deck.Card

	currentSuit   deck.Suit
	pendingAttack int
	pendingTier   int
	direction     int
	turnIdx       int
	pendingSkips  int

	finishOrder []string
	settled     bool

	pendingSettlement []SettlementRecord
}

func NewOneCardEngine(host Host, players []*Player, pot int64) *OneCardEngine {
	escrowed := make(map[string]bool, len(players))
	for _, p := range players {
		escrowed[p.ID] = true
	}
	return &OneCardEngine{
		host:     host,
		players:  append([]*Player(nil), players...),
		pot:      pot,
		escrowed: escrowed,
	}
}

func (e *OneCardEngine) Start() error {
	e.beginRound()
	return nil
}

func (e *OneCardEngine) beginRound() {
	e.phase = OneCardPlaying
	e.direction = 1
	e.pendingAttack = 0
	e.pendingTier = attackNone
	e.pendingSkips = 0
	e.finishOrder = nil
	e.settled = false
	for _, p := range e.players {
		p.Finished = false
		p.Hand = nil
	}

	e.drawPile = deck.NewStandardWithJokers(2, nil).Shuffle()
	for _, p := range e.players {
		p.Hand = e.drawPile.Draw(onecardHandSize)
	}

	// flip a starter card; jokers go back under so the opening suit is real
	starter, _ := e.drawPile.DrawOne()
	for starter.IsJoker() {
		e.drawPile.Refill([]deck.Card{starter})
		starter, _ = e.drawPile.DrawOne()
	}
	e.discard = []deck.Card{starter}
	e.currentSuit = starter.Suit

	e.turnIdx = 0
	if !e.eligible(e.players[e.turnIdx]) {
		e.advanceTurn(1)
	} else {
		e.armTurnTimer()
	}
}

func (e *OneCardEngine) topDiscard() deck.Card {
	return e.discard[len(e.discard)-1]
}

func (e *OneCardEngine) eligible(p *Player) bool {
	return p.Connected && !p.Finished
}

func (e *OneCardEngine) activeCount() int {
	count := 0
	for _, p := range e.players {
		if e.eligible(p) {
			count++
		}
	}
	return count
}

func (e *OneCardEngine) armTurnTimer() {
	e.host.ResetTimer(e.players[e.turnIdx].ID, e.host.Settings().TurnTimeSec, tagTurn)
}

// advanceTurn walks the directional ring, skipping finished and
// disconnected seats.
func (e *OneCardEngine) advanceTurn(steps int) {
	if e.maybeFinish() {
		return
	}
	n := len(e.players)
	for step := 0; step < steps; step++ {
		for i := 0; i < n; i++ {
			e.turnIdx = (e.turnIdx + e.direction + n) % n
			if e.eligible(e.players[e.turnIdx]) {
				break
			}
		}
	}
	e.armTurnTimer()
}

func (e *OneCardEngine) currentPlayer() *Player {
	return e.players[e.turnIdx]
}

func (e *OneCardEngine) HandleAction(playerID string, action Action) error {
	switch action.Verb {
	case VerbPlay:
		return e.handlePlay(playerID, action.CardIDs)
	case VerbDraw:
		return e.handleDraw(playerID)
	case VerbChooseSuit:
		return e.handleChooseSuit(playerID, action.Suit)
	default:
		return rejectf("verb %s is not valid in onecard", action.Verb)
	}
}

func (e *OneCardEngine) requireTurn(playerID string, phase string) (*Player, error) {
	if e.phase != phase {
		return nil, rejectf("wrong phase %s", e.phase)
	}
	p := e.currentPlayer()
	if p.ID != playerID {
		return nil, rejectf("not your turn")
	}
	return p, nil
}

// playLegal validates the whole batch without mutating anything.
func (e *OneCardEngine) playLegal(p *Player, cards []deck.Card) error {
	first := cards[0]
	for _, c := range cards[1:] {
		if c.Rank != first.Rank {
			return rejectf("all cards in one play must share a rank")
		}
	}

	if e.pendingAttack > 0 {
		// under an attack, legality narrows to same-tier stacking or the
		// single designated block card
		if len(cards) == 1 && cards[0].Rank == blockRank {
			if e.pendingTier != attackTwo {
				return rejectf("that card cannot block this attack")
			}
			return nil
		}
		tier := attackTier(first)
		if tier == attackNone {
			return rejectf("must answer the attack or draw")
		}
		if tier != e.pendingTier {
			return rejectf("attack tiers cannot be mixed")
		}
		return nil
	}

	top := e.topDiscard()
	switch {
	case first.IsJoker():
		return nil
	case first.Rank == 7:
		// suit changer plays on anything
		return nil
	case first.Suit == e.currentSuit:
		return nil
	case first.Rank == top.Rank:
		return nil
	}
	return rejectf("card %s does not match suit %s or rank %d", first.String(), e.currentSuit, top.Rank)
}

func (e *OneCardEngine) handlePlay(playerID string, cardIDs []uint32) error {
	p, err := e.requireTurn(playerID, OneCardPlaying)
	if err != nil {
		return err
	}
	if len(cardIDs) == 0 {
		return rejectf("play requires at least one card")
	}
	// ownership check without mutation
	cards := make([]deck.Card, 0, len(cardIDs))
	for _, id := range cardIDs {
		idx := deck.FindByID(p.Hand, id)
		if idx < 0 {
			return rejectf("card %d is not in your hand", id)
		}
		cards = append(cards, p.Hand[idx])
	}
	if err := e.playLegal(p, cards); err != nil {
		return err
	}

	removed, ok := p.removeFromHand(cardIDs)
	if !ok {
		return rejectf("play names the same card more than once")
	}
	e.discard = append(e.discard, removed...)

	isBlock := e.pendingAttack > 0 && len(removed) == 1 && removed[0].Rank == blockRank
	if isBlock {
		// nullifies the whole accumulated amount
		e.pendingAttack = 0
		e.pendingTier = attackNone
	} else {
		for _, c := range removed {
			if tier := attackTier(c); tier != attackNone {
				e.pendingTier = tier
				e.pendingAttack += attackValue(tier)
			}
		}
	}

	// batch resolution of skips, reverses, suit changes
	skips := 0
	reverses := 0
	needSuit := false
	for _, c := range removed {
		switch {
		case c.Rank == deck.Jack:
			skips++
		case c.Rank == deck.Queen:
			reverses++
		case c.Rank == 7 || c.IsJoker():
			needSuit = true
		}
	}
	if reverses%2 == 1 && e.activeCount() > 2 {
		e.direction = -e.direction
	}
	if !needSuit {
		top := e.topDiscard()
		if !top.IsJoker() {
			e.currentSuit = top.Suit
		}
	}

	if len(p.Hand) == 0 {
		p.Finished = true
		e.finishOrder = append(e.finishOrder, p.ID)
	}

	if needSuit && !p.Finished {
		e.pendingSkips = skips
		e.phase = OneCardChooseSuit
		e.host.ResetTimer(p.ID, e.host.Settings().TurnTimeSec, tagChooseSuit)
		return nil
	}
	if needSuit && p.Finished {
		// finisher cannot choose; keep the previous suit
		e.pendingSkips = 0
	}

	e.advanceTurn(1 + skips)
	return nil
}

func (e *OneCardEngine) handleChooseSuit(playerID string, suit deck.Suit) error {
	p, err := e.requireTurn(playerID, OneCardChooseSuit)
	if err != nil {
		return err
	}
	switch suit {
	case deck.Hearts, deck.Diamonds, deck.Clubs, deck.Spades:
	default:
		return rejectf("invalid suit")
	}
	_ = p
	e.applySuitChoice(suit)
	return nil
}

func (e *OneCardEngine) applySuitChoice(suit deck.Suit) {
	e.currentSuit = suit
	e.phase = OneCardPlaying
	skips := e.pendingSkips
	e.pendingSkips = 0
	e.advanceTurn(1 + skips)
}

// handleDraw collects one card, or the full accumulated attack, and always
// clears the accumulator.
func (e *OneCardEngine) handleDraw(playerID string) error {
	p, err := e.requireTurn(playerID, OneCardPlaying)
	if err != nil {
		return err
	}

	count := 1
	if e.pendingAttack > 0 {
		count = e.pendingAttack
	}
	e.drawInto(p, count)
	e.pendingAttack = 0
	e.pendingTier = attackNone
	e.advanceTurn(1)
	return nil
}

func (e *OneCardEngine) drawInto(p *Player, count int) {
	for i := 0; i < count; i++ {
		if e.drawPile.Empty() {
			e.recycleDiscard()
			if e.drawPile.Empty() {
				break
			}
		}
		card, _ := e.drawPile.DrawOne()
		p.Hand = append(p.Hand, card)
	}
}

func (e *OneCardEngine) recycleDiscard() {
	if len(e.discard) <= 1 {
		return
	}
	top := e.topDiscard()
	recycled := e.discard[:len(e.discard)-1]
	e.discard = []deck.Card{top}
	e.drawPile.Refill(recycled)
}

func (e *OneCardEngine) maybeFinish() bool {
	if e.phase == OneCardFinished {
		return true
	}
	holders := 0
	for _, p := range e.players {
		if len(p.Hand) > 0 {
			holders++
		}
	}
	if holders > 1 {
		return false
	}
	e.finish()
	return true
}

func (e *OneCardEngine) finish() {
	e.phase = OneCardFinished
	e.host.CancelTimer()

	// everyone still holding cards forfeits the stake; finishers split the
	// pot with the remainder to the first out
	records := make([]SettlementRecord, 0, len(e.players))
	if len(e.finishOrder) > 0 {
		// only seats that funded the pot share it; a seat that missed the
		// re-escrow plays for rank only
		paid := make([]string, 0, len(e.finishOrder))
		for _, id := range e.finishOrder {
			if e.escrowed[id] {
				paid = append(paid, id)
			}
		}
		shares := make(map[string]int64, len(paid))
		if len(paid) > 0 {
			split := make([]int64, len(paid))
			util.SplitChips(e.pot, len(paid), split)
			for i, id := range paid {
				shares[id] = split[i]
			}
		}
		for i, id := range e.finishOrder {
			outcome := OutcomeWin
			if i == 0 {
				outcome = OutcomeRank1
			}
			record := SettlementRecord{
				PlayerID: id,
				Payout:   shares[id],
				Outcome:  outcome,
			}
			if e.escrowed[id] {
				record.Wagered = e.host.Stake()
			}
			records = append(records, record)
		}
	}
	for _, p := range e.players {
		if !p.Finished && !p.Waiting {
			record := SettlementRecord{
				PlayerID: p.ID,
				Payout:   0,
				Outcome:  OutcomeLose,
			}
			if e.escrowed[p.ID] {
				record.Wagered = e.host.Stake()
			}
			records = append(records, record)
		}
	}
	e.pendingSettlement = records
	e.settled = true

	onecardLogger.Info().
		Str("room", e.host.RoomID()).
		Msgf("Round finished, winners %v", e.finishOrder)
}

func (e *OneCardEngine) SetConnectionStatus(playerID string, connected bool) {
	if connected {
		return
	}
	if e.phase == OneCardChooseSuit && e.currentPlayer().ID == playerID {
		// forced default: random suit
		e.applySuitChoice(randomSuit())
		return
	}
	if e.phase == OneCardPlaying && e.currentPlayer().ID == playerID {
		// forced default: draw
		e.handleDraw(playerID)
		return
	}
	// off-turn disconnects just fall out of the ring
	e.maybeFinish()
}

func randomSuit() deck.Suit {
	suits := []deck.Suit{deck.Hearts, deck.Diamonds, deck.Clubs, deck.Spades}
	return suits[rand.Intn(len(suits))]
}

func (e *OneCardEngine) TimerFired(msg timer.Msg) {
	switch msg.Tag {
	case tagTurn:
		if e.phase != OneCardPlaying || e.currentPlayer().ID != msg.PlayerID {
			return
		}
		e.handleDraw(msg.PlayerID)
	case tagChooseSuit:
		if e.phase != OneCardChooseSuit || e.currentPlayer().ID != msg.PlayerID {
			return
		}
		e.applySuitChoice(randomSuit())
	}
}

func (e *OneCardEngine) Serialize(viewerID string) *Snapshot {
	snapshot := &Snapshot{
		Phase:         e.phase,
		CurrentSuit:   e.currentSuit,
		PendingAttack: e.pendingAttack,
		Direction:     e.direction,
		FinishOrder:   e.finishOrder,
	}
	if e.drawPile != nil {
		snapshot.DrawPileCount = e.drawPile.Size()
	}
	if len(e.discard) > 0 {
		top := e.topDiscard()
		snapshot.DiscardTop = &top
	}
	if e.phase == OneCardPlaying || e.phase == OneCardChooseSuit {
		snapshot.TurnPlayerID = e.currentPlayer().ID
	}
	for _, p := range e.players {
		snapshot.Players = append(snapshot.Players, p.view(p.ID == viewerID))
	}
	for _, p := range e.waiting {
		snapshot.Players = append(snapshot.Players, p.view(p.ID == viewerID))
	}
	return snapshot
}

func (e *OneCardEngine) TakeSettlement() []SettlementRecord {
	records := e.pendingSettlement
	e.pendingSettlement = nil
	return records
}

func (e *OneCardEngine) Finished() bool {
	return e.phase == OneCardFinished
}

func (e *OneCardEngine) NextRound() error {
	if e.phase != OneCardFinished {
		return ErrRoundNotFinished
	}
	for _, p := range e.waiting {
		p.Waiting = false
		e.players = append(e.players, p)
	}
	e.waiting = nil
	// only connected players were re-escrowed
	e.escrowed = make(map[string]bool)
	for _, p := range e.players {
		if p.Connected {
			e.escrowed[p.ID] = true
		}
	}
	e.pot = e.host.Stake() * int64(len(e.escrowed))
	e.beginRound()
	return nil
}

func (e *OneCardEngine) JoinWaiting(p *Player) error {
	e.waiting = append(e.waiting, p)
	return nil
}
