package game

import (
	"sort"
	"time"
)

// Status is the lifecycle state of a room. Transitions only ever move
// forward: waiting → playing → finished.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

// Player is a live connection inside a room. Identity is the connection
// ID; there is no persistent identity across reconnects.
type Player struct {
	ConnID string
	Name   string
	Score  int

	// answered is the index of the last question this player submitted an
	// answer for, -1 before the first answer. Only the first answer per
	// question counts.
	answered int
}

// Room is an isolated game session: 2-4 players sharing a fixed question
// set and a server-driven progression clock. Rooms are owned by the
// Service and must only be touched with its lock held.
type Room struct {
	ID        string
	Players   []*Player // join order
	Current   int       // index into Questions, meaningful while playing
	Questions []Question
	Status    Status
	CreatedAt time.Time

	seq int64 // creation order, used for matchmaking preference
}

func (r *Room) player(connID string) *Player {
	for _, p := range r.Players {
		if p.ConnID == connID {
			return p
		}
	}
	return nil
}

func (r *Room) removePlayer(connID string) bool {
	for i, p := range r.Players {
		if p.ConnID == connID {
			r.Players = append(r.Players[:i], r.Players[i+1:]...)
			return true
		}
	}
	return false
}

// roster projects the player list in join order.
func (r *Room) roster() []PlayerSummary {
	players := make([]PlayerSummary, 0, len(r.Players))
	for _, p := range r.Players {
		players = append(players, PlayerSummary{Name: p.Name, Score: p.Score})
	}
	return players
}

// leaderboard returns players sorted by score descending. The sort is
// stable so equal scores keep their join order.
func (r *Room) leaderboard() []PlayerSummary {
	board := r.roster()
	sort.SliceStable(board, func(i, j int) bool {
		return board[i].Score > board[j].Score
	})
	return board
}

func (r *Room) summary() RoomSummary {
	return RoomSummary{
		ID:          r.ID,
		Players:     r.roster(),
		PlayerCount: len(r.Players),
	}
}
