package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jstittsworth/lineup-manager/internal/models"
)

// PlatformClient talks to the contest platform's REST API. It implements all
// four provider interfaces.
type PlatformClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewPlatformClient(baseURL, apiKey string, timeout time.Duration, logger *logrus.Logger) *PlatformClient {
	return &PlatformClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

type platformPlayer struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Team               string   `json:"team"`
	Opponent           string   `json:"opponent"`
	Position           string   `json:"position"`
	EligiblePositions  []string `json:"eligible_positions"`
	Salary             int      `json:"salary"`
	ProjectedPoints    float64  `json:"projected_points"`
	ProjectedOwnership float64  `json:"projected_ownership"`
	InjuryStatus       string   `json:"injury_status"`
}

type platformContest struct {
	ID            string    `json:"id"`
	MaxEntries    int       `json:"max_entries"`
	EntryFee      float64   `json:"entry_fee"`
	FillCount     int       `json:"fill_count"`
	TotalCapacity int       `json:"total_capacity"`
	LockTime      time.Time `json:"lock_time"`
}

type platformEntryResponse struct {
	Success bool   `json:"success"`
	EntryID string `json:"entry_id"`
	Message string `json:"message"`
}

func (c *PlatformClient) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *PlatformClient) send(ctx context.Context, method, path string, body, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *PlatformClient) do(req *http.Request, out interface{}) error {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("platform request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("platform returned status %d for %s", resp.StatusCode, req.URL.Path)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode platform response: %w", err)
	}
	return nil
}

// GetPlayers fetches the priced pool for a slate.
func (c *PlatformClient) GetPlayers(ctx context.Context, slateExternalID string) ([]models.Player, error) {
	var raw []platformPlayer
	path := fmt.Sprintf("/slates/%s/players", slateExternalID)
	if err := c.get(ctx, path, &raw); err != nil {
		return nil, err
	}

	players := make([]models.Player, 0, len(raw))
	for _, p := range raw {
		eligible := p.EligiblePositions
		if len(eligible) == 0 {
			eligible = []string{p.Position}
		}
		players = append(players, models.Player{
			ID:                 p.ID,
			Name:               p.Name,
			Team:               p.Team,
			Opponent:           p.Opponent,
			Position:           p.Position,
			EligiblePositions:  eligible,
			Salary:             p.Salary,
			ProjectedPoints:    p.ProjectedPoints,
			ProjectedOwnership: p.ProjectedOwnership,
			InjuryStatus:       models.InjuryStatus(p.InjuryStatus),
		})
	}

	c.logger.WithFields(logrus.Fields{
		"slate":   slateExternalID,
		"players": len(players),
	}).Debug("Fetched player pool")
	return players, nil
}

// GetProjections overlays fresh projections and ownership on a pool.
func (c *PlatformClient) GetProjections(ctx context.Context, sport string, players []models.Player) ([]models.Player, error) {
	ids := make([]string, 0, len(players))
	for _, p := range players {
		ids = append(ids, p.ID)
	}

	var raw []platformPlayer
	body := map[string]interface{}{"sport": sport, "player_ids": ids}
	if err := c.send(ctx, http.MethodPost, "/projections", body, &raw); err != nil {
		return nil, err
	}

	byID := make(map[string]platformPlayer, len(raw))
	for _, p := range raw {
		byID[p.ID] = p
	}

	updated := make([]models.Player, len(players))
	copy(updated, players)
	for i := range updated {
		if p, ok := byID[updated[i].ID]; ok {
			updated[i].ProjectedPoints = p.ProjectedPoints
			updated[i].ProjectedOwnership = p.ProjectedOwnership
			if p.InjuryStatus != "" {
				updated[i].InjuryStatus = models.InjuryStatus(p.InjuryStatus)
			}
		}
	}
	return updated, nil
}

// GetContest fetches the live fill count and lock time of a contest.
func (c *PlatformClient) GetContest(ctx context.Context, externalID string) (*ContestInfo, error) {
	var raw platformContest
	path := fmt.Sprintf("/contests/%s", externalID)
	if err := c.get(ctx, path, &raw); err != nil {
		return nil, err
	}
	return &ContestInfo{
		ExternalID:    raw.ID,
		MaxEntries:    raw.MaxEntries,
		EntryFee:      raw.EntryFee,
		FillCount:     raw.FillCount,
		TotalCapacity: raw.TotalCapacity,
		LockTime:      raw.LockTime,
	}, nil
}

type entryPayload struct {
	ContestID string      `json:"contest_id,omitempty"`
	Players   []entrySlot `json:"players"`
}

type entrySlot struct {
	Slot     string `json:"slot"`
	PlayerID string `json:"player_id"`
}

func entryFromLineup(lineup *models.Lineup) entryPayload {
	payload := entryPayload{Players: make([]entrySlot, 0, len(lineup.Players))}
	for _, slot := range lineup.Players {
		payload.Players = append(payload.Players, entrySlot{
			Slot:     slot.SlotName,
			PlayerID: slot.PlayerID,
		})
	}
	return payload
}

// Submit enters a lineup into its contest.
func (c *PlatformClient) Submit(ctx context.Context, lineup *models.Lineup) (*SubmitResult, error) {
	var resp platformEntryResponse
	if err := c.send(ctx, http.MethodPost, "/entries", entryFromLineup(lineup), &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return &SubmitResult{Success: false}, fmt.Errorf("platform rejected entry: %s", resp.Message)
	}
	return &SubmitResult{Success: true, ExternalEntryID: resp.EntryID}, nil
}

// Edit replaces the players of an existing entry.
func (c *PlatformClient) Edit(ctx context.Context, lineup *models.Lineup, externalEntryID string) (*SubmitResult, error) {
	var resp platformEntryResponse
	path := fmt.Sprintf("/entries/%s", externalEntryID)
	if err := c.send(ctx, http.MethodPut, path, entryFromLineup(lineup), &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return &SubmitResult{Success: false}, fmt.Errorf("platform rejected edit: %s", resp.Message)
	}
	return &SubmitResult{Success: true, ExternalEntryID: externalEntryID}, nil
}
