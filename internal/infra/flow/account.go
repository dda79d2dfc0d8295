package flow

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/vietddude/flowpanel/internal/core/domain"
)

// AccountQuery runs the balance script against an access node.
type AccountQuery struct {
	client *Client
}

// NewAccountQuery creates an account query service.
func NewAccountQuery(client *Client) *AccountQuery {
	return &AccountQuery{client: client}
}

type scriptRequest struct {
	Script    string   `json:"script"`
	Arguments []string `json:"arguments"`
}

// GetSummary returns the fungible token balances of address on cfg's network.
func (q *AccountQuery) GetSummary(
	ctx context.Context,
	address string,
	cfg domain.NetworkConfig,
) (*domain.AccountSummary, error) {
	code, err := resolveImports(accountSummaryScript, cfg)
	if err != nil {
		return nil, err
	}
	args, err := EncodeArguments([]Value{AddressValue(address)})
	if err != nil {
		return nil, err
	}

	req := scriptRequest{
		Script:    base64.StdEncoding.EncodeToString([]byte(code)),
		Arguments: args,
	}
	url := endpoint(cfg.AccessNode, "/v1/scripts?block_height=sealed")

	var encoded string
	if err := q.client.call(ctx, cfg.Network, "execute_script", http.MethodPost, url, req, &encoded); err != nil {
		return nil, fmt.Errorf("execute balance script: %w", err)
	}

	value, err := DecodeBase64(encoded)
	if err != nil {
		return nil, err
	}
	if value == nil {
		return nil, &DecodeError{What: "account summary", Err: fmt.Errorf("script returned nil")}
	}

	summary, err := summaryFromValue(value)
	if err != nil {
		return nil, err
	}
	summary.Address = address
	summary.Network = cfg.Network
	return summary, nil
}

// Wire shapes of the FtUtils result after JSON-Cadence decoding.
type summaryWire struct {
	FlowBalance          decimal.Decimal `json:"flowBalance"`
	FlowAvailableBalance decimal.Decimal `json:"flowAvailableBalance"`
	Balances             []balanceWire   `json:"balances"`
}

type balanceWire struct {
	VaultBalance decimal.Decimal `json:"vaultBalance"`
	StoragePath  flexPath        `json:"storagePath"`
	VaultType    string          `json:"vaultType"`
	Display      *displayWire    `json:"display"`
	VaultData    *vaultDataWire  `json:"vaultData"`
}

type displayWire struct {
	Name        string            `json:"name"`
	Symbol      string            `json:"symbol"`
	Description string            `json:"description"`
	ExternalURL string            `json:"externalUrl"`
	Logos       []mediaWire       `json:"logos"`
	Socials     map[string]string `json:"socials"`
}

type mediaWire struct {
	URL       string `json:"url"`
	MediaType string `json:"mediaType"`
}

type vaultDataWire struct {
	StoragePath  domain.Path `json:"storagePath"`
	ReceiverPath domain.Path `json:"receiverPath"`
	MetadataPath domain.Path `json:"metadataPath"`
}

// flexPath accepts a path either as "/domain/identifier" or as a decoded
// Path value.
type flexPath string

func (p *flexPath) UnmarshalJSON(b []byte) error {
	var s string
	if json.Unmarshal(b, &s) == nil {
		*p = flexPath(s)
		return nil
	}
	var path domain.Path
	if err := json.Unmarshal(b, &path); err != nil {
		return err
	}
	*p = flexPath(path.String())
	return nil
}

func summaryFromValue(value any) (*domain.AccountSummary, error) {
	// Round-trip through JSON to map the decoded composite onto typed fields.
	data, err := json.Marshal(value)
	if err != nil {
		return nil, &DecodeError{What: "account summary", Err: err}
	}
	var wire summaryWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, &DecodeError{What: "account summary", Err: err}
	}

	summary := &domain.AccountSummary{
		FlowBalance:          wire.FlowBalance,
		FlowAvailableBalance: wire.FlowAvailableBalance,
		Balances:             make([]domain.Balance, 0, len(wire.Balances)),
	}
	for _, b := range wire.Balances {
		bal := domain.Balance{
			VaultBalance: b.VaultBalance,
			StoragePath:  string(b.StoragePath),
			VaultType:    b.VaultType,
		}
		if b.Display != nil {
			d := &domain.FTDisplay{
				Name:        b.Display.Name,
				Symbol:      b.Display.Symbol,
				Description: b.Display.Description,
				ExternalURL: b.Display.ExternalURL,
				Socials:     b.Display.Socials,
			}
			for _, m := range b.Display.Logos {
				d.Logos = append(d.Logos, domain.Media{URL: m.URL, MediaType: m.MediaType})
			}
			bal.Display = d
		}
		if b.VaultData != nil {
			bal.VaultData = &domain.FTData{
				StoragePath:  b.VaultData.StoragePath,
				ReceiverPath: b.VaultData.ReceiverPath,
				MetadataPath: b.VaultData.MetadataPath,
			}
		}
		summary.Balances = append(summary.Balances, bal)
	}
	return summary, nil
}
