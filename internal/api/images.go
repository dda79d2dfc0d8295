package api

import (
	"strings"

	"github.com/vietddude/flowpanel/internal/core/domain"
)

const ipfsGateway = "https://ipfs.io/ipfs/"

// ResolveImageURL rewrites ipfs:// URLs to the public gateway.
func ResolveImageURL(url string) string {
	if cid, ok := strings.CutPrefix(url, "ipfs://"); ok {
		return ipfsGateway + cid
	}
	return url
}

// withResolvedImages returns a copy of summary whose logo URLs are fetchable.
func withResolvedImages(summary *domain.AccountSummary) *domain.AccountSummary {
	out := *summary
	out.Balances = make([]domain.Balance, len(summary.Balances))
	for i, b := range summary.Balances {
		if b.Display != nil && len(b.Display.Logos) > 0 {
			d := *b.Display
			d.Logos = make([]domain.Media, len(b.Display.Logos))
			for j, m := range b.Display.Logos {
				m.URL = ResolveImageURL(m.URL)
				d.Logos[j] = m
			}
			b.Display = &d
		}
		out.Balances[i] = b
	}
	return &out
}
