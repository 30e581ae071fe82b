package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/janoszen/dotrollcli/internal/action"
	"github.com/janoszen/dotrollcli/internal/domain"
	"github.com/spf13/pflag"
)

type actionKind int

const (
	actDomainPrices actionKind = iota + 1
	actHostingPrices
	actVPSPrices
	actDomainAvailability
	actDomainList
)

// selection is the one action an invocation runs, with its validated
// parameters.
type selection struct {
	kind     actionKind
	name     string // flag name, for messages and logs
	currency action.Currency
	domain   string
}

func (s selection) isPrice() bool {
	return s.kind == actDomainPrices || s.kind == actHostingPrices || s.kind == actVPSPrices
}

func selectAction(fs *pflag.FlagSet, opts *options) (selection, error) {
	var picked []selection
	add := func(set bool, kind actionKind, name string) {
		if set {
			picked = append(picked, selection{kind: kind, name: name})
		}
	}
	add(opts.DomainPrices, actDomainPrices, "domain-prices")
	add(opts.HostingPrices, actHostingPrices, "hosting-prices")
	add(opts.VPSPrices, actVPSPrices, "vps-prices")
	add(fs.Changed("domain-availability"), actDomainAvailability, "domain-availability")
	add(opts.DomainList, actDomainList, "domain-list")

	switch len(picked) {
	case 0:
		return selection{}, fmt.Errorf("no action given (use one of --domain-prices, --hosting-prices, --vps-prices, --domain-availability, --domain-list)")
	case 1:
	default:
		names := make([]string, len(picked))
		for i, p := range picked {
			names[i] = "--" + p.name
		}
		return selection{}, fmt.Errorf("only one action can be called at a time: %s are incompatible", strings.Join(names, " and "))
	}

	s := picked[0]
	if s.isPrice() {
		if !fs.Changed("currency") {
			return selection{}, fmt.Errorf("--%s requires --currency (HUF|EUR|USD)", s.name)
		}
		c, err := action.ParseCurrency(opts.Currency)
		if err != nil {
			return selection{}, err
		}
		s.currency = c
	} else if fs.Changed("currency") {
		return selection{}, fmt.Errorf("--currency is only valid with --domain-prices, --hosting-prices or --vps-prices")
	}

	if s.kind == actDomainAvailability {
		name, err := domain.Normalize(opts.DomainAvailability)
		if err != nil {
			return selection{}, err
		}
		s.domain = name
	}
	return s, nil
}

func (s selection) invoke(ctx context.Context, h *action.Handler) (any, error) {
	switch s.kind {
	case actDomainPrices:
		return h.DomainPrices(ctx, s.currency)
	case actHostingPrices:
		return h.HostingPrices(ctx, s.currency)
	case actVPSPrices:
		return h.VPSPrices(ctx, s.currency)
	case actDomainAvailability:
		return h.DomainAvailability(ctx, s.domain)
	case actDomainList:
		return h.DomainList(ctx)
	default:
		return nil, fmt.Errorf("unknown action %d", s.kind)
	}
}

func (s selection) layout() layout {
	switch s.kind {
	case actDomainPrices:
		return layout{Key: "TLD", Value: "PRICE"}
	case actHostingPrices, actVPSPrices:
		return layout{Key: "PACKAGE", Value: "PRICE"}
	case actDomainList:
		return layout{Key: "KEY", Value: "DOMAIN"}
	default:
		return layout{Key: "FIELD", Value: "VALUE"}
	}
}
