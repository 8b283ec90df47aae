package parliament

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
)

const (
	DefaultBaseURL = "https://www.parliament.bg"
	DefaultTimeout = 30 * time.Second

	// committeeListType selects standing committees in the coll-list endpoint.
	committeeListType = 3
)

var documentPattern = regexp.MustCompile(`(?i)^\s*(<!doctype\s+html|<html[\s>])`)

// Client reads the parliament.bg archive API. Every failure collapses to an
// empty result so a single bad period never halts a scan.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	timeout    time.Duration
	cache      ResponseCache
}

// ResponseCache keeps raw bodies of archive responses that change rarely:
// committee lists, bill lists and bill details. Transcript listings and
// content always go to the archive.
type ResponseCache interface {
	Get(ctx context.Context, path string) ([]byte, bool)
	Set(ctx context.Context, path string, data []byte)
}

func NewClient(baseURL string, httpClient *http.Client, userAgent string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		userAgent:  userAgent,
		timeout:    timeout,
	}
}

// WithCache enables response caching for the registry endpoints.
func (c *Client) WithCache(cache ResponseCache) *Client {
	c.cache = cache
	return c
}

// ListTranscripts returns the transcripts archived for a committee in one month.
// Entries without an id are dropped.
func (c *Client) ListTranscripts(ctx context.Context, committeeID int64, year, month int) []ListingEntry {
	path := fmt.Sprintf("/api/v1/archive-period/bg/A_Cm_Steno/%d/%d/%d/0", year, month, committeeID)

	items, ok := c.getArray(ctx, path, false)
	if !ok {
		return nil
	}

	entries := make([]ListingEntry, 0, len(items))
	for _, item := range items {
		var entry ListingEntry
		if err := json.Unmarshal(item, &entry); err != nil {
			slog.Debug("Skipping malformed listing entry", "committee_id", committeeID, "error", err)
			continue
		}
		if entry.ID == "" {
			slog.Warn("Transcript missing t_id, skipping", "committee_id", committeeID)
			continue
		}

		var fields map[string]any
		if err := json.Unmarshal(item, &fields); err == nil {
			entry.Metadata = make(map[string]any)
			for _, key := range listingMetadataFields {
				if value, ok := fields[key]; ok && value != nil {
					entry.Metadata[key] = value
				}
			}
		}

		entries = append(entries, entry)
	}

	slog.Debug("Listing fetched", "committee_id", committeeID, "year", year, "month", month, "count", len(entries))

	return entries
}

// FetchContent returns the transcript body, or false when the archive has no
// usable content for transcriptID.
func (c *Client) FetchContent(ctx context.Context, transcriptID string) (*RawContent, bool) {
	body, ok := c.get(ctx, "/api/v1/com-steno/bg/"+transcriptID)
	if !ok {
		return nil, false
	}

	content, ok := parseContent(body)
	if !ok {
		slog.Warn("Transcript content unavailable", "transcript_id", transcriptID)
		return nil, false
	}

	return content, true
}

func parseContent(body []byte) (*RawContent, bool) {
	var plain string
	if err := json.Unmarshal(body, &plain); err == nil {
		if strings.TrimSpace(plain) == "" {
			return nil, false
		}
		return &RawContent{HTML: extractDocument(plain), Metadata: map[string]any{}}, true
	}

	var resp contentResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.Text == nil {
		return nil, false
	}
	if strings.TrimSpace(*resp.Text) == "" {
		return nil, false
	}

	var raw map[string]any
	_ = json.Unmarshal(body, &raw)

	var acts any = []any{}
	if len(resp.Acts) > 0 && string(resp.Acts) != "null" {
		_ = json.Unmarshal(resp.Acts, &acts)
	}

	var stenoID any
	if resp.StenoID != "" {
		stenoID = resp.StenoID.String()
	}

	return &RawContent{
		HTML: *resp.Text,
		Date: resp.Date,
		Type: resp.Type,
		Metadata: map[string]any{
			"steno_id":     stenoID,
			"acts":         acts,
			"raw_response": raw,
		},
	}, true
}

// extractDocument isolates the article body when the archive hands back a
// complete HTML page instead of a fragment.
func extractDocument(html string) string {
	if !documentPattern.MatchString(html) {
		return html
	}

	article, err := readability.FromReader(strings.NewReader(html), nil)
	if err != nil || strings.TrimSpace(article.Content) == "" {
		slog.Debug("Readability extraction failed, keeping full document", "error", err)
		return html
	}

	return article.Content
}

// ListCommittees returns the standing committees known to the archive.
func (c *Client) ListCommittees(ctx context.Context) []CommitteeEntry {
	items, ok := c.getArray(ctx, fmt.Sprintf("/api/v1/coll-list/bg/%d", committeeListType), true)
	if !ok {
		return nil
	}

	committees := make([]CommitteeEntry, 0, len(items))
	for _, item := range items {
		var entry CommitteeEntry
		if err := json.Unmarshal(item, &entry); err != nil || entry.ID == "" {
			continue
		}
		committees = append(committees, entry)
	}

	return committees
}

// ListBills returns the acts assigned to a committee.
func (c *Client) ListBills(ctx context.Context, committeeID int64) []BillEntry {
	items, ok := c.getArray(ctx, fmt.Sprintf("/api/v1/com-acts/bg/%d/1", committeeID), true)
	if !ok {
		return nil
	}

	bills := make([]BillEntry, 0, len(items))
	for _, item := range items {
		var entry BillEntry
		if err := json.Unmarshal(item, &entry); err != nil || entry.ID == "" {
			continue
		}
		bills = append(bills, entry)
	}

	return bills
}

// FetchBillSignature returns the registry signature from the bill detail endpoint.
func (c *Client) FetchBillSignature(ctx context.Context, billID string) (string, bool) {
	body, ok := c.getCached(ctx, "/api/v1/bill/"+billID)
	if !ok {
		return "", false
	}

	var detail struct {
		Sign string `json:"L_Act_sign"`
	}
	if err := json.Unmarshal(body, &detail); err != nil || detail.Sign == "" {
		return "", false
	}

	return detail.Sign, true
}

func (c *Client) getArray(ctx context.Context, path string, cached bool) ([]json.RawMessage, bool) {
	var body []byte
	var ok bool
	if cached {
		body, ok = c.getCached(ctx, path)
	} else {
		body, ok = c.get(ctx, path)
	}
	if !ok {
		return nil, false
	}

	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		slog.Warn("Invalid response format, expected array", "path", path)
		return nil, false
	}

	return items, true
}

// getCached serves path from the cache when one is set. Only successful
// responses are stored.
func (c *Client) getCached(ctx context.Context, path string) ([]byte, bool) {
	if c.cache == nil {
		return c.get(ctx, path)
	}

	if body, ok := c.cache.Get(ctx, path); ok {
		slog.Debug("Archive cache hit", "path", path)
		return body, true
	}

	body, ok := c.get(ctx, path)
	if ok {
		c.cache.Set(ctx, path, body)
	}
	return body, ok
}

func (c *Client) get(ctx context.Context, path string) ([]byte, bool) {
	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := c.baseURL + path

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, url, nil)
	if err != nil {
		slog.Warn("Failed to create request", "url", url, "error", err)
		return nil, false
	}

	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Warn("Archive request failed", "url", url, "error", err)
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Warn("Archive returned HTTP error", "url", url, "status", resp.StatusCode)
		return nil, false
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Warn("Failed to read response body", "url", url, "error", err)
		return nil, false
	}

	return data, true
}
