// Package catalog is the thin client for the public game-data sources
// that supply the entity universe shown by the interaction surface.
package catalog

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"pogorarity-backend/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

const (
	defaultApiBaseUrl = "https://pokeapi.co"
	defaultDexBaseUrl = "https://pokemondb.net"
)

type ClientOptions struct {
	// defaults to the public species api
	ApiBaseUrl string
	// defaults to the public dex site
	DexBaseUrl string
}

type Client struct {
	http    *resty.Client
	apiBase string
	dexBase string
}

func NewClient(opts ClientOptions) Client {
	if opts.ApiBaseUrl == "" {
		opts.ApiBaseUrl = defaultApiBaseUrl
	}
	if opts.DexBaseUrl == "" {
		opts.DexBaseUrl = defaultDexBaseUrl
	}

	client := resty.New()
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	client.SetTimeout(time.Second * 15)
	client.SetRetryCount(3)
	client.SetRetryWaitTime(time.Second)

	telemetry.InstrumentResty(client, "lib/catalog")

	return Client{
		http:    client,
		apiBase: opts.ApiBaseUrl,
		dexBase: opts.DexBaseUrl,
	}
}

type Species struct {
	Name string `json:"name"`
	Url  string `json:"url"`
}

type speciesListResponse struct {
	Results []Species `json:"results"`
}

// ListSpecies fetches up to `limit` species from the public api, in
// dex order.
func (c Client) ListSpecies(ctx context.Context, limit int) ([]Species, error) {
	var out speciesListResponse
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("limit", strconv.Itoa(limit)).
		SetResult(&out).
		Get(c.apiBase + "/api/v2/pokemon-species")
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, fmt.Errorf("list species: %s", res.Status())
	}
	return out.Results, nil
}

// CatchRate scrapes the base catch rate for one entity from the dex
// page's vitals table.
func (c Client) CatchRate(ctx context.Context, slug string) (int, error) {
	res, err := c.http.R().
		SetContext(ctx).
		Get(fmt.Sprintf("%s/pokedex/%s", c.dexBase, slug))
	if err != nil {
		return 0, err
	}
	if res.IsError() {
		return 0, fmt.Errorf("fetch dex page for %q: %s", slug, res.Status())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		return 0, err
	}

	rate := -1
	doc.Find("table.vitals-table tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		if strings.TrimSpace(row.Find("th").Text()) != "Catch rate" {
			return true
		}
		fields := strings.Fields(strings.TrimSpace(row.Find("td").Text()))
		if len(fields) == 0 {
			return false
		}
		parsed, err := strconv.Atoi(fields[0])
		if err != nil {
			return false
		}
		rate = parsed
		return false
	})
	if rate < 0 {
		return 0, fmt.Errorf("no catch rate found for %q", slug)
	}
	return rate, nil
}
