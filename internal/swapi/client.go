// Package swapi is a thin read-only client for the upstream Star
// Wars catalog API. It decodes the API's paged result envelopes and
// nothing more; caching, sorting and comment counts are the film
// service's concern.
package swapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/iliyamo/starwars-api/internal/model"
)

// ErrNotFound is returned when the upstream answers 404 for a
// resource, e.g. an unknown film ID.
var ErrNotFound = errors.New("catalog resource not found")

// Client calls the upstream catalog API.
type Client struct {
	base string
	http *http.Client
}

// New builds a Client for the given base URL, e.g.
// "https://swapi.dev/api". The embedded http.Client carries a fixed
// timeout so a slow upstream cannot pin request goroutines.
func New(base string) *Client {
	return &Client{
		base: base,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

type filmPage struct {
	Results []model.Film `json:"results"`
}

type characterPage struct {
	Results []model.Character `json:"results"`
}

// Films fetches the film list, optionally filtered by the upstream
// search parameter.
func (c *Client) Films(ctx context.Context, search string) ([]model.Film, error) {
	u := c.base + "/films/"
	if search != "" {
		u += "?search=" + url.QueryEscape(search)
	}
	var page filmPage
	if err := c.getJSON(ctx, u, &page); err != nil {
		return nil, err
	}
	return page.Results, nil
}

// Film fetches a single film by its upstream ID. Used to check that
// a film exists before attaching comments to it.
func (c *Client) Film(ctx context.Context, id string) (model.Film, error) {
	var f model.Film
	err := c.getJSON(ctx, c.base+"/films/"+url.PathEscape(id)+"/", &f)
	return f, err
}

// Characters fetches the character list.
func (c *Client) Characters(ctx context.Context) ([]model.Character, error) {
	var page characterPage
	if err := c.getJSON(ctx, c.base+"/people/", &page); err != nil {
		return nil, err
	}
	return page.Results, nil
}

func (c *Client) getJSON(ctx context.Context, u string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("catalog API returned %d for %s", resp.StatusCode, u)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
