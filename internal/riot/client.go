// Package riot is a thin Riot Games API client. Every request passes through
// the quota governor before it leaves the process.
package riot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/kraken/internal/kraken"
	"github.com/JakeFAU/kraken/internal/metrics"
)

// Default hosts and paths.
const (
	DefaultRegionalURL = "https://europe.api.riotgames.com"
	DefaultPlatformURL = "https://euw1.api.riotgames.com"
	DefaultRetryAfter  = 10 * time.Second

	soloQueueType = "RANKED_SOLO_5x5"
	tokenHeader   = "X-Riot-Token"
)

// Acquirer gates outbound requests.
type Acquirer interface {
	Acquire(ctx context.Context) error
}

// Config holds client configuration.
type Config struct {
	APIKey      string
	RegionalURL string
	PlatformURL string
	UserAgent   string
	Timeout     time.Duration
	// Queue restricts match-id listings to one queue id; zero lists all queues.
	Queue int
}

// Client talks to the regional (account, match) and platform (league) hosts.
type Client struct {
	regional *resty.Client
	platform *resty.Client
	quota    Acquirer
	queue    int
	logger   *zap.Logger
}

// New builds a Client. quota must not be nil.
func New(cfg Config, quota Acquirer, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, kraken.Configf("riot.api_key", "is required (set RIOT_API_KEY)")
	}
	if quota == nil {
		return nil, errors.New("riot client requires a quota governor")
	}
	if cfg.RegionalURL == "" {
		cfg.RegionalURL = DefaultRegionalURL
	}
	if cfg.PlatformURL == "" {
		cfg.PlatformURL = DefaultPlatformURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		regional: newResty(cfg, cfg.RegionalURL),
		platform: newResty(cfg, cfg.PlatformURL),
		quota:    quota,
		queue:    cfg.Queue,
		logger:   logger.Named("riot"),
	}, nil
}

func newResty(cfg Config, baseURL string) *resty.Client {
	client := resty.New()
	client.SetBaseURL(strings.TrimRight(baseURL, "/"))
	client.SetTimeout(cfg.Timeout)
	client.SetHeader(tokenHeader, cfg.APIKey)
	client.SetHeader("Accept", "application/json")
	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}
	return client
}

// MatchIDs lists match ids for puuid, most recent first.
func (c *Client) MatchIDs(ctx context.Context, puuid string, start, count int) ([]string, error) {
	query := map[string]string{
		"start": strconv.Itoa(start),
		"count": strconv.Itoa(count),
	}
	if c.queue > 0 {
		query["queue"] = strconv.Itoa(c.queue)
	}
	body, err := c.get(ctx, c.regional, "match_ids",
		"/lol/match/v5/matches/by-puuid/{puuid}/ids",
		map[string]string{"puuid": puuid}, query)
	if err != nil {
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal(body, &ids); err != nil {
		return nil, &kraken.ParseError{MatchID: "ids:" + puuid, Err: err}
	}
	return ids, nil
}

// Match downloads the unmodified match-v5 payload.
func (c *Client) Match(ctx context.Context, matchID string) ([]byte, error) {
	return c.get(ctx, c.regional, "match",
		"/lol/match/v5/matches/{matchId}",
		map[string]string{"matchId": matchID}, nil)
}

// AccountByRiotID resolves a Riot ID to its account and PUUID.
func (c *Client) AccountByRiotID(ctx context.Context, gameName, tagLine string) (Account, error) {
	body, err := c.get(ctx, c.regional, "account",
		"/riot/account/v1/accounts/by-riot-id/{gameName}/{tagLine}",
		map[string]string{"gameName": gameName, "tagLine": tagLine}, nil)
	if err != nil {
		return Account{}, err
	}
	var acct Account
	if err := json.Unmarshal(body, &acct); err != nil {
		return Account{}, fmt.Errorf("decode account: %w", err)
	}
	if acct.PUUID == "" {
		return Account{}, fmt.Errorf("account %s#%s: empty puuid", gameName, tagLine)
	}
	return acct, nil
}

// RankedTier returns the player's solo-queue tier. ok is false for unranked
// players.
func (c *Client) RankedTier(ctx context.Context, puuid string) (string, bool, error) {
	body, err := c.get(ctx, c.platform, "league",
		"/lol/league/v4/entries/by-puuid/{puuid}",
		map[string]string{"puuid": puuid}, nil)
	if err != nil {
		if errors.Is(err, kraken.ErrNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	var entries []LeagueEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return "", false, fmt.Errorf("decode league entries: %w", err)
	}
	for _, e := range entries {
		if e.QueueType == soloQueueType && e.Tier != "" {
			return strings.ToUpper(e.Tier), true, nil
		}
	}
	return "", false, nil
}

func (c *Client) get(
	ctx context.Context,
	rc *resty.Client,
	endpoint string,
	path string,
	pathParams map[string]string,
	query map[string]string,
) ([]byte, error) {
	if err := c.quota.Acquire(ctx); err != nil {
		return nil, err
	}
	op := "GET " + endpoint
	start := time.Now()
	resp, err := rc.R().
		SetContext(ctx).
		SetPathParams(pathParams).
		SetQueryParams(query).
		Get(path)
	if err != nil {
		metrics.ObserveAPIRequest(endpoint, 0, time.Since(start))
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s: %w", op, ctxErr)
		}
		return nil, &kraken.TransientFetchError{Op: op, Err: err}
	}
	code := resp.StatusCode()
	metrics.ObserveAPIRequest(endpoint, code, time.Since(start))

	switch {
	case code >= 200 && code < 300:
		return resp.Body(), nil
	case code == http.StatusTooManyRequests:
		wait := parseRetryAfter(resp.Header().Get("Retry-After"))
		c.logger.Warn("rate limited by remote",
			zap.String("endpoint", endpoint),
			zap.Duration("retry_after", wait))
		return nil, &kraken.TransientFetchError{
			Op:         op,
			StatusCode: code,
			RetryAfter: wait,
			Err:        errors.New("too many requests"),
		}
	case code >= 500:
		return nil, &kraken.TransientFetchError{Op: op, StatusCode: code, Err: errors.New(http.StatusText(code))}
	case code == http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", op, kraken.ErrNotFound)
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return nil, kraken.Configf("riot.api_key", "rejected by remote (status %d)", code)
	default:
		return nil, fmt.Errorf("%s: status %d: %w", op, code, kraken.ErrFetch)
	}
}

func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return DefaultRetryAfter
	}
	return time.Duration(secs) * time.Second
}

// ParseRiotID splits "GameName#TAG" into its parts.
func ParseRiotID(id string) (gameName, tagLine string, err error) {
	idx := strings.LastIndex(id, "#")
	if idx <= 0 || idx == len(id)-1 {
		return "", "", kraken.Configf("riot-id", "must look like GameName#TAG, got %q", id)
	}
	return strings.TrimSpace(id[:idx]), strings.TrimSpace(id[idx+1:]), nil
}
