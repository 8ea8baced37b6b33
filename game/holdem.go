package game

import (
	"sort"

	"github.com/rs/zerolog/log"

	"gamehall.com/server/deck"
	"gamehall.com/server/poker"
	"gamehall.com/server/timer"
	"gamehall.com/server/util"
)

var holdemLogger = log.With().Str("logger_name", "game::holdem").Logger()

const (
	HoldemPreflop  = "PREFLOP"
	HoldemFlop     = "FLOP"
	HoldemTurn     = "TURN"
	HoldemRiver    = "RIVER"
	HoldemShowdown = "SHOWDOWN"
)

// HoldemEngine runs no-limit Texas Hold'em. The room stake is the big
// blind; chips come off the ledger at action time, never escrowed up
// front.
type HoldemEngine struct {
	host    Host
	players []*Player
	waiting []*Player

	phase     string
	handNum   int
	buttonIdx int
	deck      *deck.Deck
	community []deck.Card

	turnIdx     int
	currentBet  int64
	lastRaise   int64
	folded      map[string]bool
	allIn       map[string]bool
	sittingOut  map[string]bool
	acted       map[string]bool
	contributed map[string]int64

	pendingSettlement []SettlementRecord
	settled           bool
}

func NewHoldemEngine(host Host, players []*Player) *HoldemEngine {
	return &HoldemEngine{
		host:      host,
		players:   append([]*Player(nil), players...),
		buttonIdx: -1,
	}
}

func (e *HoldemEngine) bigBlind() int64 {
	return e.host.Stake()
}

func (e *HoldemEngine) smallBlind() int64 {
	return e.bigBlind() / 2
}

func (e *HoldemEngine) Start() error {
	e.beginHand()
	return nil
}

// balance treats a ledger read failure as an empty stack; the seat simply
// sits the hand out rather than stalling the table.
func (e *HoldemEngine) balance(playerID string) int64 {
	balance, err := e.host.Ledger().GetBalance(playerID)
	if err != nil {
		holdemLogger.Error().
			Str("player", playerID).
			Msgf("Balance lookup failed: %v", err)
		return 0
	}
	return balance
}

func (e *HoldemEngine) beginHand() {
	e.handNum++
	e.phase = HoldemPreflop
	e.community = nil
	e.currentBet = 0
	e.lastRaise = e.bigBlind()
	e.folded = make(map[string]bool)
	e.allIn = make(map[string]bool)
	e.sittingOut = make(map[string]bool)
	e.acted = make(map[string]bool)
	e.contributed = make(map[string]int64)
	e.settled = false
	for _, p := range e.players {
		p.Hand = nil
		p.Bet = 0
		p.Finished = false
	}

	// seats that cannot cover the big blind sit the hand out
	for _, p := range e.players {
		if e.balance(p.ID) < e.bigBlind() {
			e.sittingOut[p.ID] = true
		}
	}
	seated := e.seated()
	if len(seated) < 2 {
		// not enough funded seats; settle an empty hand so the room can
		// be restarted once balances change
		e.phase = HoldemShowdown
		e.settled = true
		e.host.CancelTimer()
		return
	}

	e.buttonIdx = e.nextSeatedIdx(e.buttonIdx)
	e.deck = deck.NewStandard(nil).Shuffle()
	for _, p := range seated {
		p.Hand = e.deck.Draw(2)
	}

	sbIdx, bbIdx := e.blindSeats()
	e.postBlind(e.players[sbIdx], e.smallBlind())
	e.postBlind(e.players[bbIdx], e.bigBlind())
	e.currentBet = e.bigBlind()

	if len(seated) == 2 {
		// heads up the button posts the small blind and opens preflop
		e.turnIdx = e.buttonIdx
	} else {
		e.turnIdx = e.nextSeatedIdx(bbIdx)
	}
	e.armOrAdvance()
}

// seated returns the players dealt into the current hand, in seat order.
func (e *HoldemEngine) seated() []*Player {
	out := make([]*Player, 0, len(e.players))
	for _, p := range e.players {
		if !p.Waiting && !e.sittingOut[p.ID] {
			out = append(out, p)
		}
	}
	return out
}

func (e *HoldemEngine) isSeated(p *Player) bool {
	return !p.Waiting && !e.sittingOut[p.ID]
}

func (e *HoldemEngine) nextSeatedIdx(from int) int {
	n := len(e.players)
	for i := 1; i <= n; i++ {
		idx := (from + i + n) % n
		if e.isSeated(e.players[idx]) {
			return idx
		}
	}
	return from
}

func (e *HoldemEngine) blindSeats() (int, int) {
	if len(e.seated()) == 2 {
		sb := e.buttonIdx
		return sb, e.nextSeatedIdx(sb)
	}
	sb := e.nextSeatedIdx(e.buttonIdx)
	return sb, e.nextSeatedIdx(sb)
}

// postBlind deducts the blind, or puts the player all-in for less.
// beginHand has already verified the big blind is covered, so the short
// case only applies to the small blind.
func (e *HoldemEngine) postBlind(p *Player, amount int64) {
	if !e.host.Ledger().Deduct(p.ID, amount) {
		balance := e.balance(p.ID)
		if balance <= 0 || !e.host.Ledger().Deduct(p.ID, balance) {
			e.folded[p.ID] = true
			return
		}
		amount = balance
		e.allIn[p.ID] = true
	}
	p.Bet += amount
	e.contributed[p.ID] += amount
}

// contenders are seated players still in the hand.
func (e *HoldemEngine) contenders() []*Player {
	out := make([]*Player, 0, len(e.players))
	for _, p := range e.seated() {
		if !e.folded[p.ID] {
			out = append(out, p)
		}
	}
	return out
}

// actors are contenders who still have chips behind.
func (e *HoldemEngine) actors() []*Player {
	out := make([]*Player, 0, len(e.players))
	for _, p := range e.contenders() {
		if !e.allIn[p.ID] {
			out = append(out, p)
		}
	}
	return out
}

func (e *HoldemEngine) pot() int64 {
	var total int64
	for _, amount := range e.contributed {
		total += amount
	}
	return total
}

func (e *HoldemEngine) HandleAction(playerID string, action Action) error {
	if e.phase == HoldemShowdown {
		return rejectf("hand is over")
	}
	p := e.players[e.turnIdx]
	if p.ID != playerID {
		return rejectf("not your turn")
	}

	switch action.Verb {
	case VerbFold:
		return e.handleFold(p)
	case VerbCheck:
		return e.handleCheck(p)
	case VerbCall:
		return e.handleCall(p)
	case VerbRaise:
		return e.handleRaise(p, action.Amount)
	case VerbAllIn:
		return e.handleAllIn(p)
	default:
		return rejectf("verb %s is not valid in holdem", action.Verb)
	}
}

func (e *HoldemEngine) handleFold(p *Player) error {
	e.folded[p.ID] = true
	e.acted[p.ID] = true
	e.afterAction()
	return nil
}

func (e *HoldemEngine) handleCheck(p *Player) error {
	if p.Bet != e.currentBet {
		return rejectf("cannot check facing a bet of %d", e.currentBet)
	}
	e.acted[p.ID] = true
	e.afterAction()
	return nil
}

func (e *HoldemEngine) handleCall(p *Player) error {
	owed := e.currentBet - p.Bet
	if owed <= 0 {
		return rejectf("nothing to call")
	}
	balance := e.balance(p.ID)
	if balance <= owed {
		// calling for less is an all-in call
		return e.handleAllIn(p)
	}
	if !e.host.Ledger().Deduct(p.ID, owed) {
		return InsufficientFundsError{PlayerID: p.ID, Amount: owed}
	}
	p.Bet += owed
	e.contributed[p.ID] += owed
	e.acted[p.ID] = true
	e.afterAction()
	return nil
}

// handleRaise raises to the given total street bet. The minimum raise is
// the last raise increment; a raise reopens the action for everyone else.
func (e *HoldemEngine) handleRaise(p *Player, raiseTo int64) error {
	if raiseTo < e.currentBet+e.lastRaise {
		return rejectf("raise must be to at least %d", e.currentBet+e.lastRaise)
	}
	owed := raiseTo - p.Bet
	if owed <= 0 {
		return rejectf("raise must add chips")
	}
	if e.balance(p.ID) <= owed {
		return e.handleAllIn(p)
	}
	if !e.host.Ledger().Deduct(p.ID, owed) {
		return InsufficientFundsError{PlayerID: p.ID, Amount: owed}
	}
	p.Bet += owed
	e.contributed[p.ID] += owed
	e.lastRaise = raiseTo - e.currentBet
	e.currentBet = raiseTo
	e.acted = map[string]bool{p.ID: true}
	e.afterAction()
	return nil
}

func (e *HoldemEngine) handleAllIn(p *Player) error {
	balance := e.balance(p.ID)
	if balance <= 0 {
		return rejectf("no chips behind")
	}
	if !e.host.Ledger().Deduct(p.ID, balance) {
		return InsufficientFundsError{PlayerID: p.ID, Amount: balance}
	}
	p.Bet += balance
	e.contributed[p.ID] += balance
	e.allIn[p.ID] = true

	if p.Bet > e.currentBet {
		increment := p.Bet - e.currentBet
		if increment >= e.lastRaise {
			// a covering all-in is a full raise and reopens the action
			e.lastRaise = increment
			e.acted = map[string]bool{p.ID: true}
		}
		e.currentBet = p.Bet
	}
	e.acted[p.ID] = true
	e.afterAction()
	return nil
}

// afterAction decides between awarding a fold-out, closing the street, or
// passing the turn along.
func (e *HoldemEngine) afterAction() {
	contenders := e.contenders()
	if len(contenders) == 1 {
		e.settleFoldOut(contenders[0])
		return
	}
	if e.streetClosed() {
		e.advanceStreet()
		return
	}
	e.turnIdx = e.nextActorIdx(e.turnIdx)
	e.armOrAdvance()
}

func (e *HoldemEngine) streetClosed() bool {
	for _, p := range e.actors() {
		if !e.acted[p.ID] || p.Bet != e.currentBet {
			return false
		}
	}
	return true
}

func (e *HoldemEngine) nextActorIdx(from int) int {
	n := len(e.players)
	for i := 1; i <= n; i++ {
		idx := (from + i + n) % n
		p := e.players[idx]
		if e.isSeated(p) && !e.folded[p.ID] && !e.allIn[p.ID] {
			return idx
		}
	}
	return from
}

// armOrAdvance starts the turn clock for the acting player, forcing the
// default decision immediately for a disconnected seat.
func (e *HoldemEngine) armOrAdvance() {
	p := e.players[e.turnIdx]
	if !p.Connected {
		e.forceDefault(p)
		return
	}
	e.host.ResetTimer(p.ID, e.host.Settings().TurnTimeSec, tagTurn)
}

// forceDefault is the single forced decision shared by timeout and
// disconnect: check when possible, otherwise fold.
func (e *HoldemEngine) forceDefault(p *Player) {
	if p.Bet == e.currentBet {
		e.handleCheck(p)
		return
	}
	e.handleFold(p)
}

func (e *HoldemEngine) advanceStreet() {
	for _, p := range e.players {
		p.Bet = 0
	}
	e.currentBet = 0
	e.lastRaise = e.bigBlind()
	e.acted = make(map[string]bool)

	switch e.phase {
	case HoldemPreflop:
		e.phase = HoldemFlop
		e.community = append(e.community, e.deck.Draw(3)...)
	case HoldemFlop:
		e.phase = HoldemTurn
		e.community = append(e.community, e.deck.Draw(1)...)
	case HoldemTurn:
		e.phase = HoldemRiver
		e.community = append(e.community, e.deck.Draw(1)...)
	case HoldemRiver:
		e.settleShowdown()
		return
	}

	if len(e.actors()) <= 1 {
		// everyone else is all-in; run out the remaining streets
		e.advanceStreet()
		return
	}
	e.turnIdx = e.nextActorIdx(e.buttonIdx)
	e.armOrAdvance()
}

func (e *HoldemEngine) settleFoldOut(winner *Player) {
	e.phase = HoldemShowdown
	e.host.CancelTimer()

	records := make([]SettlementRecord, 0, len(e.players))
	for _, p := range e.seated() {
		wagered := e.contributed[p.ID]
		if p.ID == winner.ID {
			records = append(records, SettlementRecord{
				PlayerID: p.ID, Wagered: wagered, Payout: e.pot(), Outcome: OutcomeWin,
			})
		} else {
			records = append(records, SettlementRecord{
				PlayerID: p.ID, Wagered: wagered, Payout: 0, Outcome: OutcomeFold,
			})
		}
		p.Finished = true
	}
	e.finishHand(records)
}

// settleShowdown evaluates the contenders and distributes the pot in
// side-pot layers bounded by each distinct contribution level. The integer
// remainder of a chopped layer goes to the single best-placed winner,
// earliest seat after the button on exact ties.
func (e *HoldemEngine) settleShowdown() {
	e.phase = HoldemShowdown
	e.host.CancelTimer()

	contenders := e.contenders()
	ranks := make(map[string]poker.HandRank, len(contenders))
	for _, p := range contenders {
		ranks[p.ID] = poker.Evaluate(append(append([]deck.Card(nil), p.Hand...), e.community...))
	}

	payouts := make(map[string]int64)
	levels := contributionLevels(e.contributed)
	var prev int64
	for _, level := range levels {
		var layer int64
		for _, amount := range e.contributed {
			layer += util.MinInt64(amount, level) - util.MinInt64(amount, prev)
		}
		prev = level

		eligible := make([]*Player, 0, len(contenders))
		for _, p := range contenders {
			if e.contributed[p.ID] >= level {
				eligible = append(eligible, p)
			}
		}
		if len(eligible) == 0 || layer == 0 {
			continue
		}
		winners := e.bestOf(eligible, ranks)
		shares := make([]int64, len(winners))
		util.SplitChips(layer, len(winners), shares)
		for i, w := range winners {
			payouts[w.ID] += shares[i]
		}
	}

	records := make([]SettlementRecord, 0, len(e.players))
	for _, p := range e.seated() {
		outcome := OutcomeLose
		if e.folded[p.ID] {
			outcome = OutcomeFold
		} else if payouts[p.ID] > 0 {
			outcome = OutcomeWin
		}
		records = append(records, SettlementRecord{
			PlayerID: p.ID,
			Wagered:  e.contributed[p.ID],
			Payout:   payouts[p.ID],
			Outcome:  outcome,
		})
		p.Finished = true
	}
	e.finishHand(records)
}

func contributionLevels(contributed map[string]int64) []int64 {
	seen := make(map[int64]bool)
	levels := make([]int64, 0, len(contributed))
	for _, amount := range contributed {
		if amount > 0 && !seen[amount] {
			seen[amount] = true
			levels = append(levels, amount)
		}
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })
	return levels
}

// bestOf returns the tied-best contenders ordered earliest-after-button
// first, so the chop remainder lands on a deterministic seat.
func (e *HoldemEngine) bestOf(eligible []*Player, ranks map[string]poker.HandRank) []*Player {
	ordered := make([]*Player, 0, len(eligible))
	n := len(e.players)
	for i := 1; i <= n; i++ {
		p := e.players[(e.buttonIdx+i)%n]
		for _, c := range eligible {
			if c.ID == p.ID {
				ordered = append(ordered, p)
				break
			}
		}
	}

	var winners []*Player
	for _, p := range ordered {
		if len(winners) == 0 {
			winners = []*Player{p}
			continue
		}
		switch cmp := poker.Compare(ranks[p.ID], ranks[winners[0].ID]); {
		case cmp > 0:
			winners = []*Player{p}
		case cmp == 0:
			winners = append(winners, p)
		}
	}
	return winners
}

func (e *HoldemEngine) finishHand(records []SettlementRecord) {
	e.pendingSettlement = records
	e.settled = true

	holdemLogger.Info().
		Str("room", e.host.RoomID()).
		Msgf("Hand %d settled, pot %d, board %s", e.handNum, e.pot(), deck.CardsToString(e.community))

	// the table deals the next hand on its own
	e.host.ResetTimer("", 5, tagNextRound)
}

func (e *HoldemEngine) SetConnectionStatus(playerID string, connected bool) {
	if connected || e.phase == HoldemShowdown {
		return
	}
	if p := e.players[e.turnIdx]; p.ID == playerID {
		e.forceDefault(p)
	}
}

func (e *HoldemEngine) TimerFired(msg timer.Msg) {
	switch msg.Tag {
	case tagTurn:
		if e.phase == HoldemShowdown {
			return
		}
		p := e.players[e.turnIdx]
		if p.ID != msg.PlayerID {
			return
		}
		e.forceDefault(p)
	case tagNextRound:
		if e.phase != HoldemShowdown {
			return
		}
		e.NextRound()
	}
}

func (e *HoldemEngine) Serialize(viewerID string) *Snapshot {
	snapshot := &Snapshot{
		Phase:      e.phase,
		Community:  e.community,
		Pot:        e.pot(),
		CurrentBet: e.currentBet,
	}
	if e.phase != HoldemShowdown && len(e.players) > 0 {
		snapshot.TurnPlayerID = e.players[e.turnIdx].ID
	}
	showdown := e.phase == HoldemShowdown
	for _, p := range e.players {
		v := p.view(p.ID == viewerID)
		v.Folded = e.folded[p.ID]
		v.AllIn = e.allIn[p.ID]
		if showdown && !e.folded[p.ID] && e.isSeated(p) {
			// contenders table their cards
			v.Hand = p.Hand
		}
		snapshot.Players = append(snapshot.Players, v)
	}
	for _, p := range e.waiting {
		snapshot.Players = append(snapshot.Players, p.view(p.ID == viewerID))
	}
	return snapshot
}

func (e *HoldemEngine) TakeSettlement() []SettlementRecord {
	records := e.pendingSettlement
	e.pendingSettlement = nil
	return records
}

func (e *HoldemEngine) Finished() bool {
	return e.phase == HoldemShowdown && e.settled
}

func (e *HoldemEngine) NextRound() error {
	if !e.Finished() {
		return ErrRoundNotFinished
	}
	for _, p := range e.waiting {
		p.Waiting = false
		e.players = append(e.players, p)
	}
	e.waiting = nil
	e.beginHand()
	return nil
}

func (e *HoldemEngine) JoinWaiting(p *Player) error {
	e.waiting = append(e.waiting, p)
	return nil
}
