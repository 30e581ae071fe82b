// Package action maps registrar operations onto the query transport. Each
// operation issues exactly one request and returns the decoded response as is.
package action

import (
	"context"
	"fmt"
	"strings"

	"github.com/janoszen/dotrollcli/internal/query"
)

type Currency string

const (
	HUF Currency = "HUF"
	EUR Currency = "EUR"
	USD Currency = "USD"
)

func Currencies() []Currency {
	return []Currency{HUF, EUR, USD}
}

func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Currencies() {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("invalid currency %q (use HUF|EUR|USD)", s)
}

type Handler struct {
	q query.Handler
}

func New(q query.Handler) *Handler {
	return &Handler{q: q}
}

func (h *Handler) DomainPrices(ctx context.Context, currency Currency) (any, error) {
	return h.q.Get(ctx, "domain/prices/"+string(currency))
}

func (h *Handler) HostingPrices(ctx context.Context, currency Currency) (any, error) {
	return h.q.Get(ctx, "hosting/prices/"+string(currency))
}

func (h *Handler) VPSPrices(ctx context.Context, currency Currency) (any, error) {
	return h.q.Get(ctx, "vps/prices/"+string(currency))
}

func (h *Handler) DomainAvailability(ctx context.Context, name string) (any, error) {
	return h.q.Get(ctx, "domain/search/"+h.q.Encode(name))
}

func (h *Handler) DomainList(ctx context.Context) (any, error) {
	return h.q.Get(ctx, "domain/list")
}
