package game

import (
	"gamehall.com/server/deck"
)

// Player is the per-room participant record. It is created on join,
// removed on explicit leave while the room is in the lobby, and only ever
// marked disconnected once play has started.
type Player struct {
	ID        string
	Name      string
	Hand      []deck.Card
	Bet       int64
	Connected bool
	Finished  bool
	Waiting   bool
	Rank      int
}

func NewPlayer(id string, name string) *Player {
	return &Player{
		ID:        id,
		Name:      name,
		Connected: true,
	}
}

func (p *Player) view(own bool) PlayerView {
	v := PlayerView{
		ID:        p.ID,
		Name:      p.Name,
		Connected: p.Connected,
		Finished:  p.Finished,
		Waiting:   p.Waiting,
		HandCount: len(p.Hand),
		Bet:       p.Bet,
		Rank:      p.Rank,
	}
	if own {
		v.Hand = p.Hand
	}
	return v
}

// removeFromHand takes the identified cards out of the player's hand.
// Returns false without mutating when any id is not owned.
func (p *Player) removeFromHand(ids []uint32) ([]deck.Card, bool) {
	remaining, removed, ok := deck.RemoveByIDs(p.Hand, ids)
	if !ok {
		return nil, false
	}
	p.Hand = remaining
	return removed, true
}

func (p *Player) holdsCard(id uint32) bool {
	return deck.FindByID(p.Hand, id) >= 0
}
