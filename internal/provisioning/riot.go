package provisioning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cwrk-planet/lobby-service/pkg/errs"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	DefaultBaseURL = "https://americas.api.riotgames.com"
	DefaultRegion  = "KR"

	headerToken = "X-Riot-Token"
	stubPrefix  = "/lol/tournament-stub/v5"
	livePrefix  = "/lol/tournament/v5"
)

type RiotConfig struct {
	BaseURL string
	APIKey  string
	Region  string
	UseStub bool
	Timeout time.Duration
}

// RiotClient ходит в tournament API v5; stub и боевой отличаются только путём.
type RiotClient struct {
	cfg  RiotConfig
	http *http.Client
}

func NewRiotClient(cfg RiotConfig, hc *http.Client) *RiotClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Region == "" {
		cfg.Region = DefaultRegion
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if hc == nil {
		hc = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &RiotClient{cfg: cfg, http: hc}
}

type providerRequest struct {
	Region string `json:"region"`
	URL    string `json:"url"`
}

type tournamentRequest struct {
	Name       string `json:"name"`
	ProviderID int64  `json:"providerId"`
}

func (c *RiotClient) RegisterProvider(ctx context.Context, callbackURL string) (int64, error) {
	var id int64
	err := c.post(ctx, "/providers", nil, providerRequest{Region: c.cfg.Region, URL: callbackURL}, &id)
	return id, err
}

func (c *RiotClient) RegisterTournament(ctx context.Context, providerID int64, name string) (int64, error) {
	var id int64
	err := c.post(ctx, "/tournaments", nil, tournamentRequest{Name: name, ProviderID: providerID}, &id)
	return id, err
}

func (c *RiotClient) IssueCodes(ctx context.Context, tournamentID int64, spec MatchSpec) ([]string, error) {
	q := url.Values{}
	q.Set("count", "1")
	q.Set("tournamentId", strconv.FormatInt(tournamentID, 10))

	var codes []string
	if err := c.post(ctx, "/codes", q, spec, &codes); err != nil {
		return nil, err
	}
	return codes, nil
}

func (c *RiotClient) path(p string) string {
	if c.cfg.UseStub {
		return stubPrefix + p
	}
	return livePrefix + p
}

func (c *RiotClient) post(ctx context.Context, p string, q url.Values, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	u := c.cfg.BaseURL + c.path(p)
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerToken, c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", errs.ErrUpstream, p, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", errs.ErrUpstream, p, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s: status %d: %s", errs.ErrUpstream, p, resp.StatusCode, clip(string(raw), 256))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", errs.ErrUpstream, p, err)
	}
	return nil
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// не режем посреди многобайтовой руны
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "…"
}
