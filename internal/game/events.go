package game

// Event names for the real-time trivia surface. Client-to-server and
// server-to-client events share the same namespace, matching the wire
// protocol the web client speaks.
const (
	EventRooms    = "game:rooms"    // lobby snapshot (S→all, or reply to C request)
	EventJoin     = "game:join"     // C→S join request
	EventPlayers  = "game:players"  // S→room roster update
	EventStart    = "game:start"    // S→room game begins
	EventQuestion = "game:question" // S→room next question
	EventAnswer   = "game:answer"   // C→S answer submission
	EventResult   = "game:result"   // S→conn private answer feedback
	EventScores   = "game:scores"   // S→room live scoreboard
	EventEnd      = "game:end"      // S→room final leaderboard
)

// PlayerSummary is the public projection of a player used in rosters,
// scoreboards and leaderboards.
type PlayerSummary struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// RoomSummary describes a joinable room in the lobby snapshot.
type RoomSummary struct {
	ID          string          `json:"id"`
	Players     []PlayerSummary `json:"players"`
	PlayerCount int             `json:"playerCount"`
}

// RoomsPayload is the lobby snapshot sent for EventRooms.
type RoomsPayload struct {
	Rooms []RoomSummary `json:"rooms"`
}

// PlayersPayload carries a room roster for EventPlayers and EventScores.
type PlayersPayload struct {
	Players []PlayerSummary `json:"players"`
}

// QuestionView is the client-facing shape of a question. The correct
// option index is deliberately absent: answers are validated server-side
// and correctness is only reported through the private result event.
type QuestionView struct {
	ID       int      `json:"id"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Category string   `json:"category"`
}

// QuestionPayload is sent for EventStart and EventQuestion.
type QuestionPayload struct {
	Question       QuestionView `json:"question"`
	QuestionNumber int          `json:"questionNumber"`
	TotalQuestions int          `json:"totalQuestions"`
}

// ResultPayload is the private per-connection answer feedback.
type ResultPayload struct {
	Correct bool `json:"correct"`
	Score   int  `json:"score"`
}

// EndPayload carries the final leaderboard for EventEnd.
type EndPayload struct {
	Leaderboard []PlayerSummary `json:"leaderboard"`
}

// JoinRequest is the payload of a client EventJoin frame.
type JoinRequest struct {
	Name string `json:"name"`
}

// AnswerRequest is the payload of a client EventAnswer frame.
type AnswerRequest struct {
	Answer int `json:"answer"`
}
