// Package transport implements the remote-fetch collaborator: an HTTP
// client for the country catalog API with a connectivity / status /
// decode error taxonomy and transient-failure backoff.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"time"

	"git.home.luguber.info/inful/loadkit/internal/catalog"
	"git.home.luguber.info/inful/loadkit/internal/config"
	"git.home.luguber.info/inful/loadkit/internal/loaderr"
	"git.home.luguber.info/inful/loadkit/internal/retry"
)

const listFields = "name,cca2,region,population,flags"
const detailFields = "name,cca2,capital,region,subregion,population,area,languages,currencies"

// Client fetches catalog data over HTTP. Timeouts come from the HTTP
// client; the retry policy only re-runs attempts marked retryable.
type Client struct {
	baseURL string
	httpc   *http.Client
	policy  retry.Policy
}

// New creates a client from the API configuration. Duration strings were
// parse-checked at config load time.
func New(cfg config.APIConfig) *Client {
	timeout, _ := time.ParseDuration(cfg.Timeout)
	initial, _ := time.ParseDuration(cfg.Retry.Initial)
	maxDelay, _ := time.ParseDuration(cfg.Retry.Max)
	return &Client{
		baseURL: cfg.BaseURL,
		httpc:   &http.Client{Timeout: timeout},
		policy: retry.NewPolicy(
			retry.BackoffMode(cfg.Retry.Mode),
			initial,
			maxDelay,
			cfg.Retry.MaxRetries,
		),
	}
}

// wireCountry mirrors the API's country representation.
type wireCountry struct {
	Name struct {
		Common string `json:"common"`
	} `json:"name"`
	CCA2       string `json:"cca2"`
	Region     string `json:"region"`
	Subregion  string `json:"subregion"`
	Population int64  `json:"population"`
	Area       float64  `json:"area"`
	Capital    []string `json:"capital"`
	Flags      struct {
		PNG string `json:"png"`
	} `json:"flags"`
	Languages  map[string]string `json:"languages"`
	Currencies map[string]struct {
		Name string `json:"name"`
	} `json:"currencies"`
}

// Countries fetches the full catalog list.
func (c *Client) Countries(ctx context.Context) ([]catalog.Country, error) {
	var wire []wireCountry
	endpoint := fmt.Sprintf("%s/all?fields=%s", c.baseURL, listFields)
	if err := c.getJSON(ctx, endpoint, &wire); err != nil {
		return nil, err
	}

	countries := make([]catalog.Country, 0, len(wire))
	for _, w := range wire {
		countries = append(countries, catalog.Country{
			Code:       w.CCA2,
			Name:       w.Name.Common,
			Region:     w.Region,
			Population: w.Population,
			FlagURL:    w.Flags.PNG,
		})
	}
	return countries, nil
}

// Detail fetches the full record for one country code.
func (c *Client) Detail(ctx context.Context, code string) (catalog.CountryDetail, error) {
	var wire []wireCountry
	endpoint := fmt.Sprintf("%s/alpha/%s?fields=%s", c.baseURL, url.PathEscape(code), detailFields)
	if err := c.getJSON(ctx, endpoint, &wire); err != nil {
		return catalog.CountryDetail{}, err
	}
	if len(wire) == 0 {
		return catalog.CountryDetail{}, loaderr.New(loaderr.CategoryDecode, "empty detail response")
	}

	w := wire[0]
	detail := catalog.CountryDetail{
		Code:       w.CCA2,
		Name:       w.Name.Common,
		Region:     w.Region,
		Subregion:  w.Subregion,
		Population: w.Population,
		Area:       w.Area,
	}
	if len(w.Capital) > 0 {
		detail.Capital = w.Capital[0]
	}
	for _, lang := range w.Languages {
		detail.Languages = append(detail.Languages, lang)
	}
	slices.Sort(detail.Languages)
	for _, cur := range w.Currencies {
		detail.Currencies = append(detail.Currencies, cur.Name)
	}
	slices.Sort(detail.Currencies)
	return detail, nil
}

// Flag fetches a flag image from its URL, returning the bytes and the
// content type the server reported.
func (c *Client) Flag(ctx context.Context, flagURL string) ([]byte, string, error) {
	var data []byte
	var contentType string

	err := c.withRetry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, flagURL, nil)
		if err != nil {
			return loaderr.Wrap(err, loaderr.CategoryConnectivity, "build request")
		}
		resp, err := c.httpc.Do(req)
		if err != nil {
			return classify(err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return classify(&StatusError{Code: resp.StatusCode})
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return loaderr.WrapRetryable(err, loaderr.CategoryConnectivity, "read body")
		}
		data = body
		contentType = resp.Header.Get("Content-Type")
		return nil
	})
	return data, contentType, err
}

// getJSON performs a GET with retries and decodes the JSON body into out.
func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	return c.withRetry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return loaderr.Wrap(err, loaderr.CategoryConnectivity, "build request")
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpc.Do(req)
		if err != nil {
			return classify(err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return classify(&StatusError{Code: resp.StatusCode})
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return loaderr.Wrap(err, loaderr.CategoryDecode, "decode response")
		}
		return nil
	})
}

// withRetry runs fn, retrying retryable failures per the policy. Context
// cancellation ends the attempt loop immediately.
func (c *Client) withRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; ; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
			return lastErr
		}
		if !loaderr.IsRetryable(lastErr) || attempt >= c.policy.MaxRetries {
			return lastErr
		}
		select {
		case <-time.After(c.policy.Delay(attempt + 1)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
