package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rocketscienceinc/othello-backend/internal/entity"
)

// MatchResult is the archived summary of a finished match.
type MatchResult struct {
	MatchID    string       `json:"matchId"`
	BlackName  string       `json:"blackName"`
	WhiteName  string       `json:"whiteName"`
	Winner     entity.Stone `json:"winner"`
	BlackCount int          `json:"blackCount"`
	WhiteCount int          `json:"whiteCount"`
	VsAI       bool         `json:"vsAI"`
	Transcript string       `json:"transcript"`
	StartedAt  time.Time    `json:"startedAt"`
	FinishedAt time.Time    `json:"finishedAt"`
}

// NewMatchResult - summary of a finished match. Caller holds the match lock.
func NewMatchResult(match *entity.Match) MatchResult {
	board := match.State.Board

	return MatchResult{
		MatchID:    match.ID,
		BlackName:  match.PlayerName(entity.Black),
		WhiteName:  match.PlayerName(entity.White),
		Winner:     match.State.Winner(),
		BlackCount: board.Count(entity.Black),
		WhiteCount: board.Count(entity.White),
		VsAI:       match.AIColor != entity.Empty,
		Transcript: Transcript(match.Moves),
		StartedAt:  match.StartedAt,
		FinishedAt: match.FinishedAt,
	}
}

// Transcript - moves in board notation, column letter then row number, e.g. "d3 c5".
func Transcript(moves []entity.MoveRecord) string {
	parts := make([]string, 0, len(moves))
	for _, move := range moves {
		parts = append(parts, fmt.Sprintf("%c%d", 'a'+rune(move.Move.Col), move.Move.Row+1))
	}

	return strings.Join(parts, " ")
}

type ArchiveRepository struct {
	db *sql.DB
}

func NewArchiveRepository(db *sql.DB) *ArchiveRepository {
	return &ArchiveRepository{db: db}
}

func (that *ArchiveRepository) Save(ctx context.Context, result MatchResult) error {
	query := `INSERT INTO match_results
		(match_id, black_name, white_name, winner, black_count, white_count, vs_ai, transcript, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := that.db.ExecContext(ctx, query,
		result.MatchID,
		result.BlackName,
		result.WhiteName,
		int(result.Winner),
		result.BlackCount,
		result.WhiteCount,
		result.VsAI,
		result.Transcript,
		result.StartedAt.UnixMilli(),
		result.FinishedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to save match result: %w", err)
	}

	return nil
}

// Recent - newest results first.
func (that *ArchiveRepository) Recent(ctx context.Context, limit int) ([]MatchResult, error) {
	query := `SELECT match_id, black_name, white_name, winner, black_count, white_count, vs_ai, transcript, started_at, finished_at
		FROM match_results ORDER BY finished_at DESC, rowid DESC LIMIT ?`

	rows, err := that.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query match results: %w", err)
	}
	defer rows.Close()

	results := make([]MatchResult, 0, limit)
	for rows.Next() {
		var (
			result              MatchResult
			winner              int
			started, finishedAt int64
		)

		if err = rows.Scan(
			&result.MatchID,
			&result.BlackName,
			&result.WhiteName,
			&winner,
			&result.BlackCount,
			&result.WhiteCount,
			&result.VsAI,
			&result.Transcript,
			&started,
			&finishedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan match result: %w", err)
		}

		result.Winner = entity.Stone(winner)
		result.StartedAt = time.UnixMilli(started)
		result.FinishedAt = time.UnixMilli(finishedAt)
		results = append(results, result)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read match results: %w", err)
	}

	return results, nil
}
