package hint

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	ErrEmptyClue     = errors.New("provider returned an empty clue")
	ErrRevealingClue = errors.New("provider clue contains the word")
)

const maxClueLength = 140

// Client asks an external text generation service for a clue.
type Client struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

type clueRequest struct {
	Word      string `json:"word"`
	MaxLength int    `json:"max_length"`
}

type clueResponse struct {
	Hint string `json:"hint"`
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		Client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Clue posts the word to {BaseURL}/hint and returns the clue text. Clues
// that spell out any of the words are rejected.
func (c *Client) Clue(ctx context.Context, content string) (string, error) {
	body, err := json.Marshal(clueRequest{Word: content, MaxLength: maxClueLength})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/hint", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("hint provider request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<10))
	if err != nil {
		return "", fmt.Errorf("failed to read hint provider response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Warn().Int("status", resp.StatusCode).Str("body", string(data)).Msg("hint provider returned an error")
		return "", fmt.Errorf("hint provider returned %d", resp.StatusCode)
	}

	var out clueResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("failed to decode hint provider response: %w", err)
	}

	return checkClue(out.Hint, content)
}

func checkClue(clue, content string) (string, error) {
	clue = strings.TrimSpace(clue)
	if clue == "" {
		return "", ErrEmptyClue
	}

	lower := strings.ToLower(clue)
	for _, word := range strings.Fields(strings.ToLower(content)) {
		if len([]rune(word)) > 2 && strings.Contains(lower, word) {
			return "", ErrRevealingClue
		}
	}

	if r := []rune(clue); len(r) > maxClueLength {
		clue = string(r[:maxClueLength])
	}
	return clue, nil
}
