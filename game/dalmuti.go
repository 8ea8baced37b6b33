package game

import (
	"math/rand"
	"sort"

	"github.com/rs/zerolog/log"

	"gamehall.com/server/deck"
	"gamehall.com/server/timer"
)

var dalmutiLogger = log.With().Str("logger_name", "game::dalmuti").Logger()

const (
	DalmutiSeatSelection    = "SEAT_SELECTION"
	DalmutiRevolutionChoice = "REVOLUTION_CHOICE"
	DalmutiTaxation         = "TAXATION"
	DalmutiMarket           = "MARKET"
	DalmutiModeReveal       = "MODE_REVEAL"
	DalmutiPlaying          = "PLAYING"
	DalmutiFinished         = "FINISHED"
)

const (
	tagSeatPick   = "seatpick"
	tagRevolution = "revolution"
	tagTaxation   = "taxation"
	tagMarket     = "market"
	tagReveal     = "reveal"
)

// Per-round modifiers revealed after the market closes.
const (
	ModeNone       = "NONE"
	ModeHandSwap   = "HAND_SWAP"
	ModeMidShuffle = "MID_SHUFFLE"
	ModeInverted   = "INVERTED"
	ModeAnarchy    = "ANARCHY"
	ModeExtraWild  = "EXTRA_WILD"
	ModeHidden     = "HIDDEN"
)

const taxCardCount = 2

// DalmutiEngine is the rank-trading climbing machine. A round walks
// SEAT_SELECTION, REVOLUTION_CHOICE or TAXATION, MARKET, MODE_REVEAL,
// PLAYING, FINISHED; the next round reuses the finishing order as the new
// rank order, reseating only when spectators are queued.
type DalmutiEngine struct {
	host    Host
	players []*Player
	waiting []*Player
	pot     int64

	// seats whose stake funded the current pot
	escrowed map[string]bool

	phase string
	round int

	// seat selection
	seatCards   []deck.Card
	seatTaken   []bool
	seatPickers []*Player
	seatPicks   map[string]int
	rankBase    int

	// taxation, two staged legs so an abandon never half-trades
	taxGiven    []deck.Card
	suppressTax bool
	anarchyNext bool

	// market
	marketSubmitted map[string][]deck.Card

	// per-round modifier
	mode          string
	wildRank      int
	inverted      bool
	hiddenHands   bool
	shuffleAtPlay int
	playCount     int

	// trick state
	turnIdx       int
	lastPlay      []deck.Card
	lastPlayValue int
	lastPlayerIdx int
	passStreak    int

	finishOrder       []string
	pendingSettlement []SettlementRecord
}

func NewDalmutiEngine(host Host, players []*Player, pot int64) *DalmutiEngine {
	escrowed := make(map[string]bool, len(players))
	for _, p := range players {
		escrowed[p.ID] = true
	}
	return &DalmutiEngine{
		host:     host,
		players:  append([]*Player(nil), players...),
		pot:      pot,
		escrowed: escrowed,
	}
}

func (e *DalmutiEngine) Start() error {
	e.round = 1
	e.beginSeatSelection(e.players, 0)
	return nil
}

// beginSeatSelection runs a blind pick over a rank deck sized to the
// participant set. rankBase is the count of incumbents keeping their
// ranks; participants receive rankBase+1 onward by ascending picked card.
func (e *DalmutiEngine) beginSeatSelection(participants []*Player, rankBase int) {
	e.phase = DalmutiSeatSelection
	e.seatPickers = participants
	e.rankBase = rankBase
	e.seatPicks = make(map[string]int)

	seatDeck := deck.NewSeatPick(len(participants), nil).Shuffle()
	e.seatCards = seatDeck.Draw(len(participants))
	e.seatTaken = make([]bool, len(e.seatCards))

	e.host.ResetTimer("", e.host.Settings().TurnTimeSec, tagSeatPick)

	// disconnected participants never pick; force them now
	for _, p := range participants {
		if !p.Connected {
			e.forceSeatPick(p.ID)
		}
	}
}

func (e *DalmutiEngine) handlePickSeat(playerID string, index int) error {
	if e.phase != DalmutiSeatSelection {
		return rejectf("seats are not being picked")
	}
	picker := e.seatPicker(playerID)
	if picker == nil {
		return rejectf("you are not picking a seat this round")
	}
	if _, done := e.seatPicks[playerID]; done {
		return rejectf("seat already picked")
	}
	if index < 0 || index >= len(e.seatCards) || e.seatTaken[index] {
		return rejectf("seat card %d is not available", index)
	}
	e.seatTaken[index] = true
	e.seatPicks[playerID] = e.seatCards[index].Rank
	e.maybeFinishSeatSelection()
	return nil
}

func (e *DalmutiEngine) seatPicker(playerID string) *Player {
	for _, p := range e.seatPickers {
		if p.ID == playerID {
			return p
		}
	}
	return nil
}

func (e *DalmutiEngine) forceSeatPick(playerID string) {
	if _, done := e.seatPicks[playerID]; done {
		return
	}
	free := make([]int, 0, len(e.seatCards))
	for i, taken := range e.seatTaken {
		if !taken {
			free = append(free, i)
		}
	}
	if len(free) == 0 {
		return
	}
	idx := free[rand.Intn(len(free))]
	e.seatTaken[idx] = true
	e.seatPicks[playerID] = e.seatCards[idx].Rank
	e.maybeFinishSeatSelection()
}

func (e *DalmutiEngine) maybeFinishSeatSelection() {
	if e.phase != DalmutiSeatSelection || len(e.seatPicks) < len(e.seatPickers) {
		return
	}

	// ascending picked card value, rank 1 is best
	picked := append([]*Player(nil), e.seatPickers...)
	sort.SliceStable(picked, func(i, j int) bool {
		return e.seatPicks[picked[i].ID] < e.seatPicks[picked[j].ID]
	})
	for i, p := range picked {
		p.Rank = e.rankBase + i + 1
	}
	sort.SliceStable(e.players, func(i, j int) bool {
		return e.players[i].Rank < e.players[j].Rank
	})

	dalmutiLogger.Info().
		Str("room", e.host.RoomID()).
		Msgf("Seats picked, order %v", e.rankOrder())
	e.dealAndContinue()
}

func (e *DalmutiEngine) rankOrder() []string {
	order := make([]string, len(e.players))
	for i, p := range e.players {
		order[i] = p.ID
	}
	return order
}

// dealAndContinue deals the full deck round robin from rank 1 down, then
// routes to REVOLUTION_CHOICE or TAXATION.
func (e *DalmutiEngine) dealAndContinue() {
	d := deck.NewDalmuti(nil).Shuffle()
	for _, p := range e.players {
		p.Hand = nil
		p.Finished = false
	}
	for i := 0; !d.Empty(); i++ {
		card, _ := d.DrawOne()
		p := e.players[i%len(e.players)]
		p.Hand = append(p.Hand, card)
	}

	e.suppressTax = e.anarchyNext
	e.anarchyNext = false

	if holder := e.soleJesterHolder(); holder != nil {
		e.phase = DalmutiRevolutionChoice
		if !holder.Connected {
			e.resolveRevolution(holder, false)
			return
		}
		e.host.ResetTimer(holder.ID, e.host.Settings().TurnTimeSec, tagRevolution)
		return
	}
	e.beginTaxation()
}

// soleJesterHolder returns the player holding both jesters, if exactly one
// player does.
func (e *DalmutiEngine) soleJesterHolder() *Player {
	for _, p := range e.players {
		jesters := 0
		for _, c := range p.Hand {
			if c.Rank == deck.DalmutiJester {
				jesters++
			}
		}
		if jesters == 2 {
			return p
		}
	}
	return nil
}

func (e *DalmutiEngine) handleDeclareRevolution(playerID string, accept bool) error {
	if e.phase != DalmutiRevolutionChoice {
		return rejectf("revolution is not being offered")
	}
	holder := e.soleJesterHolder()
	if holder == nil || holder.ID != playerID {
		return rejectf("only the jester holder may declare")
	}
	e.resolveRevolution(holder, accept)
	return nil
}

// resolveRevolution discards the holder's jesters, swaps the best and
// worst ranks and suppresses this round's taxation. Declining falls
// through to taxation.
func (e *DalmutiEngine) resolveRevolution(holder *Player, accept bool) {
	if !accept {
		e.beginTaxation()
		return
	}
	kept := make([]deck.Card, 0, len(holder.Hand))
	for _, c := range holder.Hand {
		if c.Rank != deck.DalmutiJester {
			kept = append(kept, c)
		}
	}
	holder.Hand = kept

	best := e.players[0]
	worst := e.players[len(e.players)-1]
	best.Rank, worst.Rank = worst.Rank, best.Rank
	sort.SliceStable(e.players, func(i, j int) bool {
		return e.players[i].Rank < e.players[j].Rank
	})
	e.suppressTax = true

	dalmutiLogger.Info().
		Str("room", e.host.RoomID()).
		Msgf("Revolution declared by %s", holder.ID)
	e.beginMarket()
}

func (e *DalmutiEngine) beginTaxation() {
	if e.suppressTax {
		e.beginMarket()
		return
	}
	e.phase = DalmutiTaxation
	e.taxGiven = nil

	giver := e.players[len(e.players)-1]
	taker := e.players[0]
	if !giver.Connected || !taker.Connected {
		e.abandonTaxation()
		return
	}
	e.host.ResetTimer(giver.ID, e.host.Settings().TurnTimeSec, tagTaxation)
}

// abandonTaxation unwinds any surrendered cards so the exchange is never
// half applied, then advances.
func (e *DalmutiEngine) abandonTaxation() {
	if len(e.taxGiven) > 0 {
		giver := e.players[len(e.players)-1]
		giver.Hand = append(giver.Hand, e.taxGiven...)
		e.taxGiven = nil
	}
	e.beginMarket()
}

func (e *DalmutiEngine) handleGiveTax(playerID string, cardIDs []uint32) error {
	if e.phase != DalmutiTaxation || len(e.taxGiven) > 0 {
		return rejectf("not awaiting surrendered cards")
	}
	giver := e.players[len(e.players)-1]
	if giver.ID != playerID {
		return rejectf("only the lowest rank surrenders cards")
	}
	if len(cardIDs) != taxCardCount {
		return rejectf("must surrender exactly %d cards", taxCardCount)
	}
	removed, ok := giver.removeFromHand(cardIDs)
	if !ok {
		return rejectf("invalid card ids")
	}
	e.taxGiven = removed

	taker := e.players[0]
	e.host.ResetTimer(taker.ID, e.host.Settings().TurnTimeSec, tagTaxation)
	return nil
}

func (e *DalmutiEngine) handleReturnTax(playerID string, cardIDs []uint32) error {
	if e.phase != DalmutiTaxation || len(e.taxGiven) == 0 {
		return rejectf("not awaiting returned cards")
	}
	taker := e.players[0]
	if taker.ID != playerID {
		return rejectf("only rank 1 returns cards")
	}
	if len(cardIDs) != taxCardCount {
		return rejectf("must return exactly %d cards", taxCardCount)
	}

	// the surrendered cards join the taker's hand first, so returning the
	// same two is legal
	taker.Hand = append(taker.Hand, e.taxGiven...)
	e.taxGiven = nil
	returned, ok := taker.removeFromHand(cardIDs)
	if !ok {
		return rejectf("invalid card ids")
	}
	giver := e.players[len(e.players)-1]
	giver.Hand = append(giver.Hand, returned...)
	e.beginMarket()
	return nil
}

func (e *DalmutiEngine) beginMarket() {
	e.phase = DalmutiMarket
	e.marketSubmitted = make(map[string][]deck.Card)
	e.host.ResetTimer("", e.host.Settings().MarketTimeSec, tagMarket)

	for _, p := range e.players {
		if !p.Connected {
			e.marketSubmitted[p.ID] = nil
		}
	}
	e.maybeResolveMarket()
}

// handleMarketSubmit takes 0..N cards into the pool; an empty submission
// is a pass. The market closes only on unanimous submission.
func (e *DalmutiEngine) handleMarketSubmit(playerID string, cardIDs []uint32) error {
	if e.phase != DalmutiMarket {
		return rejectf("the market is closed")
	}
	p := e.rankedPlayer(playerID)
	if p == nil {
		return rejectf("player %s is not in this round", playerID)
	}
	if _, done := e.marketSubmitted[playerID]; done {
		return rejectf("market submission already made")
	}
	removed, ok := p.removeFromHand(cardIDs)
	if !ok {
		return rejectf("invalid card ids")
	}
	e.marketSubmitted[playerID] = removed
	e.maybeResolveMarket()
	return nil
}

func (e *DalmutiEngine) rankedPlayer(playerID string) *Player {
	for _, p := range e.players {
		if p.ID == playerID {
			return p
		}
	}
	return nil
}

// maybeResolveMarket shuffles the pool once everyone has submitted and
// hands each contributor back the same quantity they put in.
func (e *DalmutiEngine) maybeResolveMarket() {
	if e.phase != DalmutiMarket || len(e.marketSubmitted) < len(e.players) {
		return
	}

	pool := make([]deck.Card, 0)
	for _, cards := range e.marketSubmitted {
		pool = append(pool, cards...)
	}
	deck.ShuffleCards(pool)
	for _, p := range e.players {
		count := len(e.marketSubmitted[p.ID])
		if count == 0 {
			continue
		}
		p.Hand = append(p.Hand, pool[:count]...)
		pool = pool[count:]
	}
	e.marketSubmitted = nil
	e.beginModeReveal()
}

func (e *DalmutiEngine) beginModeReveal() {
	e.phase = DalmutiModeReveal
	e.mode = ModeNone
	e.wildRank = 0
	e.inverted = false
	e.hiddenHands = false
	e.shuffleAtPlay = 0
	e.playCount = 0

	if e.host.Settings().DalmutiMode == "random" && rand.Intn(100) < 30 {
		e.applyMode(randomMode())
	}

	dalmutiLogger.Info().
		Str("room", e.host.RoomID()).
		Msgf("Round %d mode %s", e.round, e.mode)
	e.host.ResetTimer("", e.host.Settings().RevealDelaySec, tagReveal)
}

func randomMode() string {
	modes := []string{ModeHandSwap, ModeMidShuffle, ModeInverted, ModeAnarchy, ModeExtraWild, ModeHidden}
	return modes[rand.Intn(len(modes))]
}

func (e *DalmutiEngine) applyMode(mode string) {
	e.mode = mode
	switch mode {
	case ModeHandSwap:
		best := e.players[0]
		worst := e.players[len(e.players)-1]
		best.Hand, worst.Hand = worst.Hand, best.Hand
	case ModeMidShuffle:
		// total plays in a round is bounded by cards dealt
		e.shuffleAtPlay = 5 + rand.Intn(20)
	case ModeInverted:
		e.inverted = true
	case ModeAnarchy:
		e.anarchyNext = true
	case ModeExtraWild:
		e.wildRank = 1 + rand.Intn(deck.DalmutiLowestRank)
	case ModeHidden:
		e.hiddenHands = true
	}
}

func (e *DalmutiEngine) beginPlaying() {
	e.phase = DalmutiPlaying
	e.lastPlay = nil
	e.lastPlayValue = 0
	e.lastPlayerIdx = -1
	e.passStreak = 0
	e.finishOrder = nil
	e.turnIdx = 0
	e.armTurn()
}

func (e *DalmutiEngine) armTurn() {
	p := e.players[e.turnIdx]
	if !p.Connected {
		e.forcePlayDefault(p)
		return
	}
	e.host.ResetTimer(p.ID, e.host.Settings().TurnTimeSec, tagTurn)
}

// forcePlayDefault is the timeout/disconnect decision: pass, except a
// trick leader cannot pass and sheds their worst single card instead.
func (e *DalmutiEngine) forcePlayDefault(p *Player) {
	if e.lastPlay != nil {
		e.handlePass(p.ID)
		return
	}
	worst := p.Hand[0]
	for _, c := range p.Hand[1:] {
		if e.worseThan(c, worst) {
			worst = c
		}
	}
	e.handlePlay(p.ID, []uint32{worst.ID})
}

func (e *DalmutiEngine) worseThan(a deck.Card, b deck.Card) bool {
	if e.inverted {
		return e.cardValue(a) < e.cardValue(b)
	}
	return e.cardValue(a) > e.cardValue(b)
}

func (e *DalmutiEngine) isWild(c deck.Card) bool {
	return c.Rank == deck.DalmutiJester || (e.wildRank > 0 && c.Rank == e.wildRank)
}

func (e *DalmutiEngine) cardValue(c deck.Card) int {
	if e.isWild(c) {
		if e.inverted {
			return deck.DalmutiLowestRank + 1
		}
		return 0
	}
	return c.Rank
}

// playValue scores one play: the shared non-wild rank, or the unbeatable
// best for an all-wild play. Returns false when the cards mix ranks.
func (e *DalmutiEngine) playValue(cards []deck.Card) (int, bool) {
	value := 0
	for _, c := range cards {
		if e.isWild(c) {
			continue
		}
		if value == 0 {
			value = c.Rank
		} else if value != c.Rank {
			return 0, false
		}
	}
	if value == 0 {
		// all wild ranks as best
		if e.inverted {
			return deck.DalmutiLowestRank + 1, true
		}
		return 0, true
	}
	return value, true
}

func (e *DalmutiEngine) beats(value int) bool {
	if e.inverted {
		return value > e.lastPlayValue
	}
	return value < e.lastPlayValue
}

func (e *DalmutiEngine) handlePlay(playerID string, cardIDs []uint32) error {
	if e.phase != DalmutiPlaying {
		return rejectf("wrong phase %s", e.phase)
	}
	p := e.players[e.turnIdx]
	if p.ID != playerID {
		return rejectf("not your turn")
	}
	if len(cardIDs) == 0 {
		return rejectf("play requires at least one card")
	}

	cards := make([]deck.Card, 0, len(cardIDs))
	for _, id := range cardIDs {
		idx := deck.FindByID(p.Hand, id)
		if idx < 0 {
			return rejectf("card %d is not in your hand", id)
		}
		cards = append(cards, p.Hand[idx])
	}
	value, ok := e.playValue(cards)
	if !ok {
		return rejectf("all cards in one play must share a rank")
	}
	if e.lastPlay != nil {
		if len(cards) != len(e.lastPlay) {
			return rejectf("play must match the count of %d cards", len(e.lastPlay))
		}
		if !e.beats(value) {
			return rejectf("play must beat rank %d", e.lastPlayValue)
		}
	}

	removed, ok := p.removeFromHand(cardIDs)
	if !ok {
		return rejectf("play names the same card more than once")
	}
	e.lastPlay = removed
	e.lastPlayValue = value
	e.lastPlayerIdx = e.turnIdx
	e.passStreak = 0
	e.playCount++

	if len(p.Hand) == 0 {
		p.Finished = true
		e.finishOrder = append(e.finishOrder, p.ID)
	}
	if e.maybeFinish() {
		return nil
	}
	e.maybeMidShuffle()
	e.advanceTurn()
	return nil
}

func (e *DalmutiEngine) handlePass(playerID string) error {
	if e.phase != DalmutiPlaying {
		return rejectf("wrong phase %s", e.phase)
	}
	p := e.players[e.turnIdx]
	if p.ID != playerID {
		return rejectf("not your turn")
	}
	if e.lastPlay == nil {
		return rejectf("the trick leader must play")
	}
	e.passStreak++

	// leader-finished tricks close on a full pass cycle
	leader := e.players[e.lastPlayerIdx]
	if leader.Finished && e.passStreak >= e.activeCount() {
		e.closeTrick(e.nextActiveIdx(e.lastPlayerIdx))
		return nil
	}
	e.advanceTurn()
	return nil
}

func (e *DalmutiEngine) activeCount() int {
	count := 0
	for _, p := range e.players {
		if !p.Finished {
			count++
		}
	}
	return count
}

func (e *DalmutiEngine) nextActiveIdx(from int) int {
	n := len(e.players)
	for i := 1; i <= n; i++ {
		idx := (from + i) % n
		if !e.players[idx].Finished {
			return idx
		}
	}
	return from
}

// advanceTurn passes the token, closing the trick when it comes back to a
// still-active leader.
func (e *DalmutiEngine) advanceTurn() {
	e.turnIdx = e.nextActiveIdx(e.turnIdx)
	if e.lastPlay != nil && e.turnIdx == e.lastPlayerIdx && !e.players[e.turnIdx].Finished {
		e.closeTrick(e.turnIdx)
		return
	}
	e.armTurn()
}

func (e *DalmutiEngine) closeTrick(leaderIdx int) {
	e.lastPlay = nil
	e.lastPlayValue = 0
	e.lastPlayerIdx = -1
	e.passStreak = 0
	e.turnIdx = leaderIdx
	e.armTurn()
}

// maybeMidShuffle pools every active hand at the trigger play and deals
// each player back the same count of shuffled cards.
func (e *DalmutiEngine) maybeMidShuffle() {
	if e.shuffleAtPlay == 0 || e.playCount != e.shuffleAtPlay {
		return
	}
	pool := make([]deck.Card, 0)
	counts := make([]int, len(e.players))
	for i, p := range e.players {
		counts[i] = len(p.Hand)
		pool = append(pool, p.Hand...)
	}
	deck.ShuffleCards(pool)
	for i, p := range e.players {
		p.Hand = append([]deck.Card(nil), pool[:counts[i]]...)
		pool = pool[counts[i]:]
	}
	dalmutiLogger.Info().
		Str("room", e.host.RoomID()).
		Msgf("Mid-round shuffle at play %d", e.playCount)
}

func (e *DalmutiEngine) maybeFinish() bool {
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

// finish fixes the final order, with the last holder in last place, and
// awards the pot to the round's Great Dalmuti.
func (e *DalmutiEngine) finish() {
	e.phase = DalmutiFinished
	e.host.CancelTimer()

	for _, p := range e.players {
		if len(p.Hand) > 0 {
			p.Finished = true
			e.finishOrder = append(e.finishOrder, p.ID)
		}
	}

	// the pot goes to the best-placed seat that funded it; a seat that
	// missed the re-escrow plays for rank only
	winner := ""
	for _, id := range e.finishOrder {
		if e.escrowed[id] {
			winner = id
			break
		}
	}
	records := make([]SettlementRecord, 0, len(e.players))
	for _, id := range e.finishOrder {
		record := SettlementRecord{
			PlayerID: id,
			Payout:   0,
			Outcome:  OutcomeLose,
		}
		if e.escrowed[id] {
			record.Wagered = e.host.Stake()
		}
		if id == winner {
			record.Payout = e.pot
			record.Outcome = OutcomeRank1
		}
		records = append(records, record)
	}
	e.pendingSettlement = records

	dalmutiLogger.Info().
		Str("room", e.host.RoomID()).
		Msgf("Round %d finished, order %v", e.round, e.finishOrder)
}

func (e *DalmutiEngine) HandleAction(playerID string, action Action) error {
	switch action.Verb {
	case VerbPickSeat:
		return e.handlePickSeat(playerID, action.Index)
	case VerbDeclareRevolution:
		return e.handleDeclareRevolution(playerID, action.Accept)
	case VerbGiveTax:
		return e.handleGiveTax(playerID, action.CardIDs)
	case VerbReturnTax:
		return e.handleReturnTax(playerID, action.CardIDs)
	case VerbMarketSubmit:
		return e.handleMarketSubmit(playerID, action.CardIDs)
	case VerbPlay:
		return e.handlePlay(playerID, action.CardIDs)
	case VerbPass:
		return e.handlePass(playerID)
	default:
		return rejectf("verb %s is not valid in dalmuti", action.Verb)
	}
}

func (e *DalmutiEngine) SetConnectionStatus(playerID string, connected bool) {
	if connected {
		return
	}
	switch e.phase {
	case DalmutiSeatSelection:
		e.forceSeatPick(playerID)
	case DalmutiRevolutionChoice:
		if holder := e.soleJesterHolder(); holder != nil && holder.ID == playerID {
			e.resolveRevolution(holder, false)
		}
	case DalmutiTaxation:
		giver := e.players[len(e.players)-1]
		taker := e.players[0]
		if playerID == giver.ID || playerID == taker.ID {
			e.abandonTaxation()
		}
	case DalmutiMarket:
		if _, done := e.marketSubmitted[playerID]; !done {
			e.marketSubmitted[playerID] = nil
			e.maybeResolveMarket()
		}
	case DalmutiPlaying:
		if p := e.players[e.turnIdx]; p.ID == playerID && !p.Finished {
			e.forcePlayDefault(p)
		}
	}
}

func (e *DalmutiEngine) TimerFired(msg timer.Msg) {
	switch msg.Tag {
	case tagSeatPick:
		if e.phase != DalmutiSeatSelection {
			return
		}
		for _, p := range e.seatPickers {
			e.forceSeatPick(p.ID)
		}
	case tagRevolution:
		if e.phase != DalmutiRevolutionChoice {
			return
		}
		if holder := e.soleJesterHolder(); holder != nil {
			e.resolveRevolution(holder, false)
		}
	case tagTaxation:
		if e.phase != DalmutiTaxation {
			return
		}
		e.abandonTaxation()
	case tagMarket:
		if e.phase != DalmutiMarket {
			return
		}
		// unsubmitted players pass
		for _, p := range e.players {
			if _, done := e.marketSubmitted[p.ID]; !done {
				e.marketSubmitted[p.ID] = nil
			}
		}
		e.maybeResolveMarket()
	case tagReveal:
		if e.phase != DalmutiModeReveal {
			return
		}
		e.beginPlaying()
	case tagTurn:
		if e.phase != DalmutiPlaying {
			return
		}
		p := e.players[e.turnIdx]
		if p.ID != msg.PlayerID {
			return
		}
		e.forcePlayDefault(p)
	}
}

func (e *DalmutiEngine) Serialize(viewerID string) *Snapshot {
	snapshot := &Snapshot{
		Phase:       e.phase,
		Mode:        e.mode,
		Inverted:    e.inverted,
		LastPlay:    e.lastPlay,
		FinishOrder: e.finishOrder,
	}
	switch e.phase {
	case DalmutiRevolutionChoice:
		if holder := e.soleJesterHolder(); holder != nil {
			snapshot.TurnPlayerID = holder.ID
		}
	case DalmutiTaxation:
		if len(e.taxGiven) == 0 {
			snapshot.TurnPlayerID = e.players[len(e.players)-1].ID
		} else {
			snapshot.TurnPlayerID = e.players[0].ID
		}
	case DalmutiMarket:
		for _, cards := range e.marketSubmitted {
			snapshot.MarketPoolCount += len(cards)
		}
	case DalmutiPlaying:
		snapshot.TurnPlayerID = e.players[e.turnIdx].ID
	}
	for _, p := range e.players {
		v := p.view(p.ID == viewerID)
		if e.hiddenHands && p.ID != viewerID {
			v.HandCount = 0
		}
		snapshot.Players = append(snapshot.Players, v)
	}
	for _, p := range e.waiting {
		snapshot.Players = append(snapshot.Players, p.view(p.ID == viewerID))
	}
	return snapshot
}

func (e *DalmutiEngine) TakeSettlement() []SettlementRecord {
	records := e.pendingSettlement
	e.pendingSettlement = nil
	return records
}

func (e *DalmutiEngine) Finished() bool {
	return e.phase == DalmutiFinished
}

// NextRound reuses the finishing order as the new rank order. Queued
// spectators trigger a partial reseat: they contest the tail ranks with
// the incumbent last place while everyone else keeps their seat.
func (e *DalmutiEngine) NextRound() error {
	if e.phase != DalmutiFinished {
		return ErrRoundNotFinished
	}
	e.round++

	for i, id := range e.finishOrder {
		if p := e.rankedPlayer(id); p != nil {
			p.Rank = i + 1
		}
	}
	sort.SliceStable(e.players, func(i, j int) bool {
		return e.players[i].Rank < e.players[j].Rank
	})
	// only connected players were re-escrowed
	e.escrowed = make(map[string]bool)
	for _, p := range e.players {
		if p.Connected {
			e.escrowed[p.ID] = true
		}
	}
	for _, p := range e.waiting {
		if p.Connected {
			e.escrowed[p.ID] = true
		}
	}
	e.pot = e.host.Stake() * int64(len(e.escrowed))

	if len(e.waiting) > 0 {
		reseat := append([]*Player(nil), e.waiting...)
		reseat = append(reseat, e.players[len(e.players)-1])
		for _, p := range e.waiting {
			p.Waiting = false
			e.players = append(e.players, p)
		}
		e.waiting = nil
		e.beginSeatSelection(reseat, len(e.players)-len(reseat))
		return nil
	}
	e.dealAndContinue()
	return nil
}

func (e *DalmutiEngine) JoinWaiting(p *Player) error {
	e.waiting = append(e.waiting, p)
	return nil
}
