package domain

import "github.com/shopspring/decimal"

// AccountSummary holds the balances of one account.
type AccountSummary struct {
	Address              string          `json:"address"`
	Network              NetworkID       `json:"network"`
	FlowBalance          decimal.Decimal `json:"flow_balance"`
	FlowAvailableBalance decimal.Decimal `json:"flow_available_balance"`
	Balances             []Balance       `json:"balances"`
}

// Balance is a single fungible token vault held by an account.
type Balance struct {
	VaultBalance decimal.Decimal `json:"vault_balance"`
	StoragePath  string          `json:"storage_path"`
	VaultType    string          `json:"vault_type"`
	Display      *FTDisplay      `json:"display,omitempty"`
	VaultData    *FTData         `json:"vault_data,omitempty"`
}

// Name returns the display name, falling back to the vault type.
func (b Balance) Name() string {
	if b.Display != nil && b.Display.Name != "" {
		return b.Display.Name
	}
	return b.VaultType
}

// FTDisplay is the FungibleTokenMetadataViews.FTDisplay view.
type FTDisplay struct {
	Name        string            `json:"name"`
	Symbol      string            `json:"symbol"`
	Description string            `json:"description"`
	ExternalURL string            `json:"external_url"`
	Logos       []Media           `json:"logos"`
	Socials     map[string]string `json:"socials"`
}

// Media is a logo or other media file.
type Media struct {
	URL       string `json:"url"`
	MediaType string `json:"media_type"`
}

// FTData is the FungibleTokenMetadataViews.FTVaultData view.
type FTData struct {
	StoragePath  Path `json:"storage_path"`
	ReceiverPath Path `json:"receiver_path"`
	MetadataPath Path `json:"metadata_path"`
}

// Path is a Cadence storage or public path.
type Path struct {
	Domain     string `json:"domain"`
	Identifier string `json:"identifier"`
}

// String renders the path as "/domain/identifier".
func (p Path) String() string {
	return "/" + p.Domain + "/" + p.Identifier
}
