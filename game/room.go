package game

import (
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"gamehall.com/server/ledger"
	"gamehall.com/server/timer"
)

var roomLogger = log.With().Str("logger_name", "game::room").Logger()

const maxRoomPlayers = 8

type requestKind int

const (
	reqAction requestKind = iota
	reqJoin
	reqLeave
	reqStart
	reqRestart
	reqConnStatus
	reqSnapshot
	reqSummary
)

type roomRequest struct {
	kind       requestKind
	playerID   string
	playerName string
	connected  bool
	action     Action
	viewerID   string
	resp       chan roomResponse
}

type roomResponse struct {
	err      error
	snapshot *Snapshot
	summary  RoomSummary
}

// Room owns one table: its roster, its engine, and its timer. All state is
// mutated exclusively from the run loop, so actions, timeouts, and
// management calls share one serialization point.
type Room struct {
	id       string
	name     string
	ownerID  string
	status   RoomStatus
	gameType GameType
	stake    int64
	settings Settings

	players []*Player
	engine  Engine

	manager     *Manager
	timerDriver *timer.Driver
	timerSeq    uint32

	lastActivity int64 // unix seconds, read by the reaper

	chRequest chan roomRequest
	chTimeout chan timer.Msg
	chEnd     chan bool
	chDone    chan struct{}
}

func newRoom(manager *Manager, ownerID string, ownerName string, name string,
	gameType GameType, stake int64, settings Settings) *Room {

	settings.fillDefaults()
	r := &Room{
		id:        uuid.New().String(),
		name:      name,
		ownerID:   ownerID,
		status:    RoomStatusLobby,
		gameType:  gameType,
		stake:     stake,
		settings:  settings,
		manager:   manager,
		chRequest: make(chan roomRequest),
		chTimeout: make(chan timer.Msg, 8),
		chEnd:     make(chan bool, 1),
		chDone:    make(chan struct{}),
	}
	r.players = append(r.players, NewPlayer(ownerID, ownerName))
	r.touch()

	r.timerDriver = timer.NewDriver(r.id, r.queueTimeout, func() {
		go manager.DestroyRoom(r.id)
	})
	r.timerDriver.Run()
	go r.run()
	return r
}

// Host implementation

func (r *Room) RoomID() string {
	return r.id
}

func (r *Room) Stake() int64 {
	return r.stake
}

func (r *Room) Settings() *Settings {
	return &r.settings
}

func (r *Room) Ledger() ledger.Ledger {
	return r.manager.ledger
}

// ResetTimer arms the room countdown for playerID. Bumping the sequence
// here is what invalidates any deadline armed for a previous phase.
func (r *Room) ResetTimer(playerID string, seconds int, tag string) {
	r.timerSeq++
	err := r.timerDriver.Reset(timer.Msg{
		RoomID:   r.id,
		PlayerID: playerID,
		Seq:      r.timerSeq,
		Tag:      tag,
		ExpireAt: time.Now().Add(time.Duration(seconds) * time.Second),
	})
	if err != nil {
		roomLogger.Error().Str("room", r.id).Msgf("Failed to reset timer: %v", err)
	}
}

func (r *Room) CancelTimer() {
	r.timerSeq++
	r.timerDriver.Cancel()
}

func (r *Room) queueTimeout(msg timer.Msg) {
	select {
	case r.chTimeout <- msg:
	case <-r.chDone:
	}
}

// do routes a management or action request into the run loop and waits for
// the verdict.
func (r *Room) do(req roomRequest) roomResponse {
	req.resp = make(chan roomResponse, 1)
	select {
	case r.chRequest <- req:
	case <-r.chDone:
		return roomResponse{err: ErrRoomNotFound}
	}
	select {
	case resp := <-req.resp:
		return resp
	case <-r.chDone:
		return roomResponse{err: ErrRoomNotFound}
	}
}

func (r *Room) run() {
	defer close(r.chDone)
	defer func() {
		if err := recover(); err != nil {
			debug.PrintStack()
			roomLogger.Error().
				Str("room", r.id).
				Msgf("Room loop returning due to panic: %s\nStack Trace:\n%s", err, string(debug.Stack()))
			go r.manager.DestroyRoom(r.id)
		}
	}()

	for {
		select {
		case req := <-r.chRequest:
			req.resp <- r.handleRequest(req)
		case msg := <-r.chTimeout:
			r.handleTimerFired(msg)
		case <-r.chEnd:
			// cancel all timers before freeing engine state
			r.timerDriver.Destroy()
			r.manager.receiver.BroadcastRoomMessage(r.id, &RoomMessage{
				Type:   RoomMessageClosed,
				RoomID: r.id,
			})
			return
		}
	}
}

func (r *Room) handleRequest(req roomRequest) roomResponse {
	switch req.kind {
	case reqSnapshot:
		return roomResponse{snapshot: r.buildSnapshot(req.viewerID)}
	case reqSummary:
		return roomResponse{summary: r.summary()}
	case reqJoin:
		return roomResponse{err: r.handleJoin(req.playerID, req.playerName)}
	case reqLeave:
		return roomResponse{err: r.handleLeave(req.playerID)}
	case reqStart:
		return roomResponse{err: r.handleStart(req.playerID)}
	case reqRestart:
		return roomResponse{err: r.handleRestart(req.playerID)}
	case reqConnStatus:
		return roomResponse{err: r.handleConnStatus(req.playerID, req.connected)}
	case reqAction:
		return roomResponse{err: r.handleAction(req.playerID, req.action)}
	}
	return roomResponse{}
}

func (r *Room) findPlayer(playerID string) *Player {
	for _, p := range r.players {
		if p.ID == playerID {
			return p
		}
	}
	return nil
}

func (r *Room) handleJoin(playerID string, playerName string) error {
	if existing := r.findPlayer(playerID); existing != nil {
		if !existing.Connected {
			// reconnect
			existing.Connected = true
			if r.engine != nil {
				r.engine.SetConnectionStatus(playerID, true)
			}
			r.afterMutation(true)
			return nil
		}
		return ErrAlreadyJoined
	}

	if len(r.players) >= maxRoomPlayers {
		return ErrRoomFull
	}

	p := NewPlayer(playerID, playerName)
	if r.status == RoomStatusPlaying {
		// forwarded to the live engine as a waiting player
		p.Waiting = true
		if err := r.engine.JoinWaiting(p); err != nil {
			return err
		}
	}
	r.players = append(r.players, p)
	r.afterMutation(true)
	return nil
}

func (r *Room) handleLeave(playerID string) error {
	p := r.findPlayer(playerID)
	if p == nil {
		return ErrPlayerNotInRoom
	}

	if r.status == RoomStatusLobby {
		// removed outright while in the lobby
		for i, other := range r.players {
			if other.ID == playerID {
				r.players = append(r.players[:i], r.players[i+1:]...)
				break
			}
		}
		if len(r.players) == 0 {
			go r.manager.DestroyRoom(r.id)
			return nil
		}
		if r.ownerID == playerID {
			r.ownerID = r.players[0].ID
		}
		r.afterMutation(true)
		return nil
	}

	// never removed mid-game, only marked disconnected
	return r.handleConnStatus(playerID, false)
}

func (r *Room) handleStart(callerID string) error {
	if callerID != r.ownerID {
		return ErrNotOwner
	}
	if r.status != RoomStatusLobby {
		return ErrAlreadyPlaying
	}
	if len(r.players) < minPlayers(r.gameType) {
		return ErrNotEnoughPlayers
	}

	var pot int64
	if stakeEscrowed(r.gameType) && r.stake > 0 {
		escrowed, err := r.escrowStakes(r.players)
		if err != nil {
			return err
		}
		pot = escrowed
	}

	r.engine = newEngine(r, r.gameType, r.players, pot)
	if err := r.engine.Start(); err != nil {
		r.refundStakes(r.players, pot)
		r.engine = nil
		return err
	}
	r.status = RoomStatusPlaying
	r.afterMutation(true)
	return nil
}

// escrowStakes deducts the stake from every listed player, refunding all
// of them when any single deduction fails so the start aborts atomically.
func (r *Room) escrowStakes(players []*Player) (int64, error) {
	l := r.manager.ledger
	var collected int64
	var charged []*Player
	for _, p := range players {
		if !l.Deduct(p.ID, r.stake) {
			for _, c := range charged {
				l.Credit(c.ID, r.stake)
			}
			return 0, InsufficientFundsError{PlayerID: p.ID, Amount: r.stake}
		}
		charged = append(charged, p)
		collected += r.stake
	}
	return collected, nil
}

func (r *Room) refundStakes(players []*Player, pot int64) {
	if pot == 0 {
		return
	}
	l := r.manager.ledger
	for _, p := range players {
		l.Credit(p.ID, r.stake)
	}
}

func (r *Room) handleRestart(callerID string) error {
	if callerID != r.ownerID {
		return ErrNotOwner
	}
	if r.engine == nil {
		return ErrEngineNotStarted
	}
	if !r.engine.Finished() {
		return ErrRoundNotFinished
	}

	// settlement must have been posted before the next deal
	r.postSettlement()

	if stakeEscrowed(r.gameType) && r.stake > 0 {
		var active []*Player
		for _, p := range r.players {
			if p.Connected {
				active = append(active, p)
			}
		}
		if len(active) < minPlayers(r.gameType) {
			return ErrNotEnoughPlayers
		}
		if _, err := r.escrowStakes(active); err != nil {
			return err
		}
	}

	if err := r.engine.NextRound(); err != nil {
		return err
	}
	r.afterMutation(false)
	return nil
}

func (r *Room) handleConnStatus(playerID string, connected bool) error {
	p := r.findPlayer(playerID)
	if p == nil {
		return ErrPlayerNotInRoom
	}
	p.Connected = connected
	if r.status == RoomStatusPlaying && r.engine != nil {
		r.engine.SetConnectionStatus(playerID, connected)
	}

	if !connected {
		allGone := true
		for _, other := range r.players {
			if other.Connected {
				allGone = false
				break
			}
		}
		if allGone {
			go r.manager.DestroyRoom(r.id)
			return nil
		}
	}
	r.afterMutation(true)
	return nil
}

func (r *Room) handleAction(playerID string, action Action) error {
	if r.status != RoomStatusPlaying || r.engine == nil {
		return ErrEngineNotStarted
	}
	if r.findPlayer(playerID) == nil {
		return ErrPlayerNotInRoom
	}

	err := r.engine.HandleAction(playerID, action)
	if err != nil {
		// rejection notice goes to the caller only, nothing is broadcast
		r.manager.receiver.SendPlayerMessage(r.id, playerID, &RoomMessage{
			Type:   RoomMessageRejected,
			RoomID: r.id,
			Error:  err.Error(),
		})
		return err
	}
	r.afterMutation(false)
	return nil
}

func (r *Room) handleTimerFired(msg timer.Msg) {
	if msg.Seq != r.timerSeq {
		// a cancelled deadline's callback still ran; the phase it was
		// armed against is gone
		roomLogger.Debug().
			Str("room", r.id).
			Msgf("Dropping stale timer (seq %d, current %d, tag %s)", msg.Seq, r.timerSeq, msg.Tag)
		return
	}
	if r.engine == nil {
		return
	}
	r.engine.TimerFired(msg)
	r.afterMutation(false)
}

// afterMutation runs the invariant steps behind every accepted mutation:
// settlement posting, broadcast, persistence, and activity tracking.
func (r *Room) afterMutation(rosterChanged bool) {
	r.touch()
	r.postSettlement()

	public := r.buildSnapshot("")
	r.manager.receiver.BroadcastRoomMessage(r.id, &RoomMessage{
		Type:     RoomMessageState,
		RoomID:   r.id,
		Snapshot: public,
	})
	for _, p := range r.players {
		if !p.Connected {
			continue
		}
		r.manager.receiver.SendPlayerMessage(r.id, p.ID, &RoomMessage{
			Type:     RoomMessageState,
			RoomID:   r.id,
			Snapshot: r.buildSnapshot(p.ID),
		})
	}

	if err := r.manager.persist.Save(r.id, public); err != nil {
		roomLogger.Error().Str("room", r.id).Msgf("Failed to persist room state: %v", err)
	}

	if rosterChanged {
		go r.manager.publishRoomList()
	}
}

// postSettlement consumes the engine's settlement records exactly once and
// applies them to the ledger. Wagers were collected when bet or escrowed,
// so only payouts move here. Ledger record posting never blocks the room.
func (r *Room) postSettlement() {
	if r.engine == nil {
		return
	}
	records := r.engine.TakeSettlement()
	if len(records) == 0 {
		return
	}
	l := r.manager.ledger
	gameType := string(r.gameType)
	for _, rec := range records {
		if rec.Payout > 0 {
			l.Credit(rec.PlayerID, rec.Payout)
		}
		rec := rec
		go l.RecordRoundResult(rec.PlayerID, ledger.RoundResult{
			GameType: gameType,
			Outcome:  rec.Outcome,
			Wagered:  rec.Wagered,
			Earned:   rec.Payout,
		})
		roomLogger.Info().
			Str("room", r.id).
			Str("player", rec.PlayerID).
			Msgf("Settled round: outcome %s wagered %d payout %d", rec.Outcome, rec.Wagered, rec.Payout)
	}
}

func (r *Room) buildSnapshot(viewerID string) *Snapshot {
	var snapshot *Snapshot
	if r.engine != nil {
		snapshot = r.engine.Serialize(viewerID)
	} else {
		snapshot = &Snapshot{}
		for _, p := range r.players {
			snapshot.Players = append(snapshot.Players, p.view(p.ID == viewerID))
		}
	}
	snapshot.RoomID = r.id
	snapshot.Name = r.name
	snapshot.GameType = r.gameType
	snapshot.Status = r.status
	snapshot.Stake = r.stake
	snapshot.RemainingSec = r.timerDriver.GetRemainingSec()
	return snapshot
}

func (r *Room) summary() RoomSummary {
	return RoomSummary{
		RoomID:      r.id,
		Name:        r.name,
		PlayerCount: len(r.players),
		Status:      r.status,
		GameType:    r.gameType,
		Stake:       r.stake,
	}
}

func (r *Room) touch() {
	atomic.StoreInt64(&r.lastActivity, time.Now().Unix())
}

// LastActivity is read by the manager's idle reaper.
func (r *Room) LastActivity() time.Time {
	return time.Unix(atomic.LoadInt64(&r.lastActivity), 0)
}
