package models

// CreateSessionRequest defines the body of a new-session request. Empty fields
// select vs_computer and adaptive.
type CreateSessionRequest struct {
	Mode       string `json:"mode" binding:"omitempty,oneof=two_player vs_computer"`
	Difficulty string `json:"difficulty" binding:"omitempty,oneof=easy medium hard adaptive"`
}

// CreateSessionResponse is returned for a new session.
type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
	Token     string `json:"token"`
}

// HistoryQuery bounds a history listing.
type HistoryQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

// GameRecord is one finished game in the history table.
type GameRecord struct {
	ID            int64  `db:"id" json:"id"`
	SessionID     string `db:"session_id" json:"session_id"`
	Mode          string `db:"mode" json:"mode"`
	Difficulty    string `db:"difficulty" json:"difficulty"`
	Status        string `db:"status" json:"status"`
	Winner        string `db:"winner" json:"winner,omitempty"`
	Moves         string `db:"moves" json:"-"`
	MoveList      []int  `db:"-" json:"moves"`
	HumanScore    int    `db:"human_score" json:"human_score"`
	ComputerScore int    `db:"computer_score" json:"computer_score"`
	FinishedAt    int64  `db:"finished_at" json:"finished_at"`
}
