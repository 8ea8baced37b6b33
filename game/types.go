package game

import (
	"gamehall.com/server/deck"
)

type GameType string

const (
	GameDalmuti   GameType = "DALMUTI"
	GameOneCard   GameType = "ONECARD"
	GameBlackjack GameType = "BLACKJACK"
	GameHoldem    GameType = "HOLDEM"
)

type RoomStatus string

const (
	RoomStatusLobby   RoomStatus = "LOBBY"
	RoomStatusPlaying RoomStatus = "PLAYING"
)

// Verb is the action vocabulary across all engines. Each engine accepts
// only its own subset and rejects the rest as wrong-phase actions.
type Verb string

const (
	// Dalmuti
	VerbPickSeat          Verb = "PICK_SEAT"
	VerbDeclareRevolution Verb = "DECLARE_REVOLUTION"
	VerbGiveTax           Verb = "GIVE_TAX"
	VerbReturnTax         Verb = "RETURN_TAX"
	VerbMarketSubmit      Verb = "MARKET_SUBMIT"
	VerbPlay              Verb = "PLAY"
	VerbPass              Verb = "PASS"

	// OneCard
	VerbDraw       Verb = "DRAW"
	VerbChooseSuit Verb = "CHOOSE_SUIT"

	// Blackjack
	VerbBet        Verb = "BET"
	VerbHit        Verb = "HIT"
	VerbStand      Verb = "STAND"
	VerbDoubleDown Verb = "DOUBLE_DOWN"

	// Holdem
	VerbFold  Verb = "FOLD"
	VerbCheck Verb = "CHECK"
	VerbCall  Verb = "CALL"
	VerbRaise Verb = "RAISE"
	VerbAllIn Verb = "ALL_IN"
)

// Action is one request/response mutation attempt keyed to a caller. All
// fields other than Verb are verb specific.
type Action struct {
	Verb    Verb      `json:"verb"`
	CardIDs []uint32  `json:"cardIds,omitempty"`
	Amount  int64     `json:"amount,omitempty"`
	Suit    deck.Suit `json:"suit,omitempty"`
	Accept  bool      `json:"accept,omitempty"`
	Index   int       `json:"index,omitempty"`
}

// Settings are the per-room knobs the owner picks at creation time.
type Settings struct {
	TurnTimeSec    int    `json:"turnTimeSec" yaml:"turn-time-sec"`
	BetTimeSec     int    `json:"betTimeSec" yaml:"bet-time-sec"`
	MarketTimeSec  int    `json:"marketTimeSec" yaml:"market-time-sec"`
	RevealDelaySec int    `json:"revealDelaySec" yaml:"reveal-delay-sec"`
	DalmutiMode    string `json:"dalmutiMode" yaml:"dalmuti-mode"` // "none" or "random"
}

func (s *Settings) fillDefaults() {
	if s.TurnTimeSec == 0 {
		s.TurnTimeSec = 15
	}
	if s.BetTimeSec == 0 {
		s.BetTimeSec = 15
	}
	if s.MarketTimeSec == 0 {
		s.MarketTimeSec = 60
	}
	if s.RevealDelaySec == 0 {
		s.RevealDelaySec = 5
	}
	if s.DalmutiMode == "" {
		s.DalmutiMode = "random"
	}
}

// RoomSummary is the global listing entry pushed to the lobby.
type RoomSummary struct {
	RoomID      string     `json:"roomId"`
	Name        string     `json:"name"`
	PlayerCount int        `json:"playerCount"`
	Status      RoomStatus `json:"status"`
	GameType    GameType   `json:"gameType"`
	Stake       int64      `json:"stake"`
}

// PlayerView is the per-player slice of a snapshot. Hand is attached only
// on the view sent to that player; everyone else sees the count.
type PlayerView struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Connected bool        `json:"connected"`
	Finished  bool        `json:"finished"`
	Waiting   bool        `json:"waiting,omitempty"`
	HandCount int         `json:"handCount"`
	Bet       int64       `json:"bet,omitempty"`
	Rank      int         `json:"rank,omitempty"`
	Blackjack bool        `json:"blackjack,omitempty"`
	Busted    bool        `json:"busted,omitempty"`
	Folded    bool        `json:"folded,omitempty"`
	AllIn     bool        `json:"allIn,omitempty"`
	HandValue int         `json:"handValue,omitempty"`
	Hand      []deck.Card `json:"hand,omitempty"`
}

// Snapshot is the serialized room state. Concealed information is redacted
// here at serialization time; nothing is ever stored redacted.
type Snapshot struct {
	RoomID       string     `json:"roomId"`
	Name         string     `json:"name"`
	GameType     GameType   `json:"gameType"`
	Status       RoomStatus `json:"status"`
	Stake        int64      `json:"stake"`
	Phase        string     `json:"phase,omitempty"`
	TurnPlayerID string     `json:"turnPlayerId,omitempty"`
	RemainingSec uint32     `json:"remainingSec,omitempty"`
	Players      []PlayerView `json:"players"`

	// Dalmuti
	LastPlay        []deck.Card `json:"lastPlay,omitempty"`
	MarketPoolCount int         `json:"marketPoolCount,omitempty"`
	Mode            string      `json:"mode,omitempty"`
	Inverted        bool        `json:"inverted,omitempty"`

	// OneCard
	DiscardTop    *deck.Card `json:"discardTop,omitempty"`
	CurrentSuit   deck.Suit  `json:"currentSuit,omitempty"`
	PendingAttack int        `json:"pendingAttack,omitempty"`
	Direction     int        `json:"direction,omitempty"`
	DrawPileCount int        `json:"drawPileCount,omitempty"`

	// Blackjack
	DealerCards []deck.Card `json:"dealerCards,omitempty"`
	DealerValue int         `json:"dealerValue,omitempty"`

	// Holdem
	Community  []deck.Card `json:"community,omitempty"`
	Pot        int64       `json:"pot,omitempty"`
	CurrentBet int64       `json:"currentBet,omitempty"`

	FinishOrder []string `json:"finishOrder,omitempty"`
}

// RoomMessage is the envelope broadcast to a room or sent to one player.
type RoomMessage struct {
	Type     string    `json:"type"`
	RoomID   string    `json:"roomId"`
	Snapshot *Snapshot `json:"snapshot,omitempty"`
	Error    string    `json:"error,omitempty"`
}

const (
	RoomMessageState    = "STATE"
	RoomMessageRejected = "REJECTED"
	RoomMessageClosed   = "CLOSED"
)

// MessageReceiver is the transport collaborator. The game layer never
// talks to sockets directly; it hands serialized state here.
type MessageReceiver interface {
	BroadcastRoomMessage(roomID string, message *RoomMessage)
	SendPlayerMessage(roomID string, playerID string, message *RoomMessage)
	BroadcastRoomList(rooms []RoomSummary)
}
