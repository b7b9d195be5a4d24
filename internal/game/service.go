package game

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"sync"
	"time"
)

// Gateway is the transport the game pushes events through. The websocket
// hub implements it; tests use a recording fake. Implementations must not
// call back into the Service and must not block: delivery is fire-and-forget.
type Gateway interface {
	// Subscribe adds a connection to a room's broadcast group.
	Subscribe(connID, roomID string)
	// Unsubscribe removes a connection from a room's broadcast group.
	Unsubscribe(connID, roomID string)
	// ToRoom sends an event to every connection subscribed to a room.
	ToRoom(roomID, event string, data any)
	// ToAll sends an event to every connection.
	ToAll(event string, data any)
	// ToConn sends an event to a single connection.
	ToConn(connID, event string, data any)
}

// Config holds the tunables of the trivia game. Tests compress the timers.
type Config struct {
	MaxPlayers       int
	MinPlayers       int
	QuestionsPerRoom int
	PointsPerCorrect int
	StartDelay       time.Duration // wait after a qualifying join before auto-start
	QuestionInterval time.Duration // fixed cadence between questions
	FinishedTTL      time.Duration // how long a finished room lingers in the registry
}

// DefaultConfig returns the production game settings.
func DefaultConfig() Config {
	return Config{
		MaxPlayers:       4,
		MinPlayers:       2,
		QuestionsPerRoom: 10,
		PointsPerCorrect: 10,
		StartDelay:       3 * time.Second,
		QuestionInterval: 15 * time.Second,
		FinishedTTL:      60 * time.Second,
	}
}

// Service owns the room registry and the player index, and drives the
// whole game: matchmaking, auto-start, question cadence, scoring and
// teardown. All state is process memory and is lost on restart.
//
// Every external event (join, answer, disconnect) and every timer firing
// runs under one mutex and to completion, so no two mutations of a room
// ever interleave. Timers are never cancelled; each callback captures only
// the room ID and re-validates live state at fire time, which makes stale
// timers self-canceling no-ops.
type Service struct {
	cfg    Config
	gw     Gateway
	logger *slog.Logger

	mu         sync.Mutex
	rng        *rand.Rand
	bank       []Question
	rooms      map[string]*Room
	playerRoom map[string]string // connID -> roomID
	nextSeq    int64
	closed     bool
}

// NewService creates a game service broadcasting through gw. A nil rng
// gets a time-seeded source; tests inject a deterministic one.
func NewService(cfg Config, bank []Question, gw Gateway, logger *slog.Logger, rng *rand.Rand) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:        cfg,
		gw:         gw,
		logger:     logger,
		rng:        rng,
		bank:       bank,
		rooms:      make(map[string]*Room),
		playerRoom: make(map[string]string),
	}
}

// Close stops the service. Pending timers still fire but find the service
// closed and do nothing.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// SendLobby sends the current lobby snapshot to a single connection, in
// reply to a client game:rooms request.
func (s *Service) SendLobby(connID string) {
	s.mu.Lock()
	payload := s.lobbyLocked()
	s.mu.Unlock()
	s.gw.ToConn(connID, EventRooms, payload)
}

// Join places a connection into the earliest-created waiting room with
// space, creating a new room when none qualifies, and schedules auto-start
// once enough players are present. Joining twice with the same connection
// ID is a no-op.
func (s *Service) Join(connID, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	// One player entry per connection.
	if _, ok := s.playerRoom[connID]; ok {
		return
	}

	room := s.matchLocked()
	if room == nil {
		room = s.createRoomLocked()
	}

	if name == "" {
		short := connID
		if len(short) > 6 {
			short = short[:6]
		}
		name = "Player " + short
	}

	room.Players = append(room.Players, &Player{ConnID: connID, Name: name, answered: -1})
	s.playerRoom[connID] = room.ID

	s.gw.Subscribe(connID, room.ID)
	s.gw.ToRoom(room.ID, EventPlayers, PlayersPayload{Players: room.roster()})
	s.gw.ToAll(EventRooms, s.lobbyLocked())

	s.logger.Info("player joined", "conn", connID, "name", name, "room", room.ID, "players", len(room.Players))

	// Delayed rather than immediate start, so players joining inside the
	// window are still admitted. Conditions are re-checked at fire time.
	if room.Status == StatusWaiting && len(room.Players) >= s.cfg.MinPlayers && len(room.Players) <= s.cfg.MaxPlayers {
		roomID := room.ID
		time.AfterFunc(s.cfg.StartDelay, func() { s.autoStart(roomID) })
	}
}

// Answer scores a submitted answer against the room's current question.
// Out-of-band submissions (unknown connection, room not playing, repeat
// answer for the same question) are silently ignored.
func (s *Service) Answer(connID string, answer int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	roomID, ok := s.playerRoom[connID]
	if !ok {
		return
	}
	room, ok := s.rooms[roomID]
	if !ok || room.Status != StatusPlaying {
		return
	}
	player := room.player(connID)
	if player == nil {
		return
	}
	if player.answered >= room.Current {
		return
	}
	player.answered = room.Current

	correct := answer == room.Questions[room.Current].CorrectOption
	if correct {
		player.Score += s.cfg.PointsPerCorrect
	}

	s.gw.ToConn(connID, EventResult, ResultPayload{Correct: correct, Score: player.Score})
	s.gw.ToRoom(roomID, EventScores, PlayersPayload{Players: room.roster()})
}

// Disconnect removes a connection from its room and the player index. A
// room whose player list empties is deleted immediately, whatever its
// status.
func (s *Service) Disconnect(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	roomID, ok := s.playerRoom[connID]
	if !ok {
		return
	}
	delete(s.playerRoom, connID)

	room, ok := s.rooms[roomID]
	if !ok {
		return
	}
	room.removePlayer(connID)
	s.gw.Unsubscribe(connID, roomID)

	if len(room.Players) == 0 {
		s.deleteRoomLocked(room)
	} else {
		s.gw.ToRoom(roomID, EventPlayers, PlayersPayload{Players: room.roster()})
	}
	s.gw.ToAll(EventRooms, s.lobbyLocked())

	s.logger.Info("player left", "conn", connID, "room", roomID, "players", len(room.Players))
}

// RoomCount reports the number of live rooms.
func (s *Service) RoomCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}

// Lobby returns the current lobby snapshot: waiting rooms with space, in
// creation order.
func (s *Service) Lobby() RoomsPayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lobbyLocked()
}

// --- internals (lock held) ---

// matchLocked finds the earliest-created waiting room with space.
func (s *Service) matchLocked() *Room {
	var best *Room
	for _, room := range s.rooms {
		if room.Status != StatusWaiting || len(room.Players) >= s.cfg.MaxPlayers {
			continue
		}
		if best == nil || room.seq < best.seq {
			best = room
		}
	}
	return best
}

func (s *Service) createRoomLocked() *Room {
	s.nextSeq++
	room := &Room{
		ID:        fmt.Sprintf("room_%d_%06d", time.Now().UnixMilli(), s.rng.Intn(1000000)),
		Questions: pickQuestions(s.bank, s.cfg.QuestionsPerRoom, s.rng),
		Status:    StatusWaiting,
		CreatedAt: time.Now(),
		seq:       s.nextSeq,
	}
	s.rooms[room.ID] = room
	s.logger.Info("room created", "room", room.ID, "questions", len(room.Questions))
	return room
}

func (s *Service) lobbyLocked() RoomsPayload {
	var waiting []*Room
	for _, room := range s.rooms {
		if room.Status == StatusWaiting && len(room.Players) < s.cfg.MaxPlayers {
			waiting = append(waiting, room)
		}
	}
	sort.Slice(waiting, func(i, j int) bool { return waiting[i].seq < waiting[j].seq })

	rooms := make([]RoomSummary, 0, len(waiting))
	for _, room := range waiting {
		rooms = append(rooms, room.summary())
	}
	return RoomsPayload{Rooms: rooms}
}

func (s *Service) deleteRoomLocked(room *Room) {
	for _, p := range room.Players {
		delete(s.playerRoom, p.ConnID)
		s.gw.Unsubscribe(p.ConnID, room.ID)
	}
	delete(s.rooms, room.ID)
	s.logger.Info("room deleted", "room", room.ID)
}

// --- timer callbacks ---

// autoStart fires StartDelay after a qualifying join. The room may have
// emptied, filled, started or vanished in the meantime, so everything is
// re-validated here; when conditions no longer hold the timer is a no-op
// and no retry is scheduled until the next qualifying join.
func (s *Service) autoStart(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	room, ok := s.rooms[roomID]
	if !ok || room.Status != StatusWaiting || len(room.Players) < s.cfg.MinPlayers {
		return
	}
	if len(room.Questions) == 0 {
		return
	}

	room.Status = StatusPlaying
	room.Current = 0

	s.gw.ToRoom(roomID, EventStart, QuestionPayload{
		Question:       room.Questions[0].View(),
		QuestionNumber: 1,
		TotalQuestions: len(room.Questions),
	})
	s.logger.Info("game started", "room", roomID, "players", len(room.Players))

	time.AfterFunc(s.cfg.QuestionInterval, func() { s.advance(roomID) })
}

// advance moves a playing room to its next question on the fixed cadence,
// or ends the game once the question set is exhausted. It does not wait
// for answers; unanswered questions simply score nothing.
func (s *Service) advance(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	room, ok := s.rooms[roomID]
	if !ok || room.Status != StatusPlaying {
		return
	}

	room.Current++
	if room.Current >= len(room.Questions) {
		s.endGameLocked(room)
		return
	}

	s.gw.ToRoom(roomID, EventQuestion, QuestionPayload{
		Question:       room.Questions[room.Current].View(),
		QuestionNumber: room.Current + 1,
		TotalQuestions: len(room.Questions),
	})

	time.AfterFunc(s.cfg.QuestionInterval, func() { s.advance(roomID) })
}

func (s *Service) endGameLocked(room *Room) {
	room.Status = StatusFinished

	s.gw.ToRoom(room.ID, EventEnd, EndPayload{Leaderboard: room.leaderboard()})
	s.logger.Info("game finished", "room", room.ID)

	// Unconditional teardown; nothing can revive a finished room. A room
	// that empties first is deleted by Disconnect and this fires into
	// nothing.
	roomID := room.ID
	time.AfterFunc(s.cfg.FinishedTTL, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if room, ok := s.rooms[roomID]; ok {
			s.deleteRoomLocked(room)
		}
	})
}
