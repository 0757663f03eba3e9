package source

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/spigell/job-ranker/internal/jobs"
)

const (
	contentType     = "application/json"
	contentEncoding = "gzip"
	userAgent       = "spigell/job-ranker"
	// Max value for feed page size.
	perPage = 100
)

// ItemResponse is one page of a paginated job feed.
type ItemResponse struct {
	Items   []Item
	Found   int
	Pages   int
	Page    int
	PerPage int `json:"per_page"`
}

type Item interface{}

// HTTP reads jobs from a paginated JSON feed.
type HTTP struct {
	token      string
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	URL        string
	PerPage    int
	Query      map[string]string
}

func NewHTTP(feedURL, token string, logger *zap.Logger) *HTTP {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &HTTP{
		token: token,
		URL:   feedURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger:    logger,
		UserAgent: userAgent,
		PerPage:   perPage,
	}
}

func (c *HTTP) Fetch(ctx context.Context) (*jobs.Jobs, error) {
	q := url.Values{}
	for k, v := range c.Query {
		q.Set(k, v)
	}
	if c.PerPage > 0 {
		q.Set("per_page", strconv.Itoa(c.PerPage))
	}

	items, err := c.GetItems(ctx, c.URL, q)
	if err != nil {
		return nil, err
	}

	var found []*jobs.Job
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &found,
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeHookFunc(time.RFC3339),
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(items); err != nil {
		return nil, fmt.Errorf("decoding feed items: %w", err)
	}

	return &jobs.Jobs{Items: compact(found)}, nil
}

// GetItems makes GET request to the feed and returns items from all pages.
func (c *HTTP) GetItems(ctx context.Context, feedURL string, q url.Values) ([]Item, error) {
	var items []Item

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, err
	}

	req = c.setHeaders(req)
	req.URL.RawQuery = q.Encode()

	response, err := c.fetchPage(req)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("got response from job feed", zap.Int("pages", response.Pages), zap.Int("max items per page", response.PerPage))

	items = append(items, response.Items...)

	// Page count is taken from the first response only.
	pages := response.Pages
	for next := response.Page + 1; next < pages; next++ {
		c.logger.Debug("additional request needed", zap.String("reason", fmt.Sprintf(
			"current page (%d) < all page count (%d)", next, pages),
		))

		page, err := c.fetchPage(addPage(req, next))
		if err != nil {
			return nil, err
		}
		if page.Page < next {
			c.logger.Warn("job feed ignores the page parameter, stopping pagination",
				zap.Int("requested", next),
				zap.Int("returned", page.Page),
			)
			break
		}

		items = append(items, page.Items...)
	}

	return items, nil
}

func (c *HTTP) fetchPage(req *http.Request) (*ItemResponse, error) {
	c.logger.Debug("make request", zap.String("url", req.URL.String()))
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return parseItemResponse(resp)
}

func parseItemResponse(resp *http.Response) (*ItemResponse, error) {
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bad status: %s", resp.Status)
	}

	var body io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		body = gz
	}

	var response *ItemResponse
	if err := json.NewDecoder(body).Decode(&response); err != nil {
		return nil, err
	}
	if response == nil {
		return &ItemResponse{}, nil
	}

	return response, nil
}

func (c *HTTP) setHeaders(req *http.Request) *http.Request {
	if c.token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept-Encoding", contentEncoding)
	req.Header.Set("Accept", contentType)

	return req
}

// addPage adds page parameter to request URL.
func addPage(req *http.Request, page int) *http.Request {
	q := req.URL.Query()
	q.Set("page", strconv.Itoa(page))
	req.URL.RawQuery = q.Encode()

	return req
}
