package sources

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"jobharvest/internal/logging"
	"jobharvest/pkg/models"
)

var boardToken = regexp.MustCompile(`^[a-z0-9-]+$`)

// extractBoardToken accepts either a bare board token or a careers page URL
// on host and returns the token. segment selects which path segment holds it:
// 0 for the first, -1 for the last.
func extractBoardToken(board, host string, segment int) (string, error) {
	board = strings.TrimSpace(board)
	if strings.Contains(board, host) {
		u, err := url.Parse(board)
		if err != nil {
			return "", fmt.Errorf("invalid board url %q: %w", board, err)
		}
		parts := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })
		if len(parts) == 0 {
			return "", fmt.Errorf("no board token in %q", board)
		}
		if segment < 0 {
			board = parts[len(parts)-1]
		} else {
			board = parts[0]
		}
	}

	board = strings.ToLower(board)
	if !boardToken.MatchString(board) {
		return "", fmt.Errorf("invalid board token %q", board)
	}
	return board, nil
}

// boardSet runs a per-board fetch across every configured board. One failing
// board is logged and skipped; the search fails only when all of them fail.
type boardSet struct {
	source string
	boards []string
	logger logging.Logger
}

func (s boardSet) each(ctx context.Context, fetchBoard func(ctx context.Context, board string) ([]models.RawJob, error)) ([]models.RawJob, error) {
	var (
		jobs    []models.RawJob
		lastErr error
		failed  int
	)
	for _, board := range s.boards {
		items, err := fetchBoard(ctx, board)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			failed++
			lastErr = err
			s.logger.Warn("Board failed", map[string]interface{}{
				"source": s.source,
				"board":  board,
				"error":  err.Error(),
			})
			continue
		}
		jobs = append(jobs, items...)
	}

	if failed > 0 && failed == len(s.boards) {
		return nil, fmt.Errorf("%s: all %d boards failed: %w", s.source, failed, lastErr)
	}
	return jobs, nil
}
