// Package types contains read shapes shared by the service and its API.
package types

import "time"

// Entry represents a leaderboard row.
type Entry struct {
	Rank          int     `json:"rank"`
	ParticipantID string  `json:"participant_id"`
	Rating        float64 `json:"rating"`
	GamesPlayed   int     `json:"games_played"`
	Wins          int     `json:"wins"`
	Losses        int     `json:"losses"`
}

// HistoryEntry is one rating change of one participant.
type HistoryEntry struct {
	MatchID    string    `json:"match_id"`
	Discipline string    `json:"discipline"`
	OldRating  float64   `json:"old_rating"`
	NewRating  float64   `json:"new_rating"`
	Delta      float64   `json:"delta"`
	Won        bool      `json:"won"`
	RecordedAt time.Time `json:"recorded_at"`
}
