package flow

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/vietddude/flowpanel/internal/core/domain"
)

// ErrContractNotConfigured is returned when a script imports a contract the
// network has no address for.
var ErrContractNotConfigured = errors.New("contract address not configured")

const accountSummaryScript = `import "FtUtils"

access(all) fun main(addr: Address): AnyStruct {
    let acct = getAuthAccount<auth(BorrowValue) &Account>(addr)
    return FtUtils.resolveAccountBalances(acct: acct)
}
`

// batchTransferTransaction withdraws every amount from one vault and deposits
// each into the matching recipient's receiver. Any failing deposit reverts
// the whole batch.
const batchTransferTransaction = `import "FungibleToken"
import "FungibleTokenMetadataViews"

transaction(recipients: [Address], amounts: [UFix64], tokenTypeIdentifier: String, storagePath: StoragePath) {
    let vault: auth(FungibleToken.Withdraw) &{FungibleToken.Vault}

    prepare(acct: auth(BorrowValue) &Account) {
        self.vault = acct.storage.borrow<auth(FungibleToken.Withdraw) &{FungibleToken.Vault}>(from: storagePath)
            ?? panic("vault not found at storage path: ".concat(storagePath.toString()))
        assert(self.vault.getType().identifier == tokenTypeIdentifier, message: "unexpected token type")
    }

    pre {
        recipients.length > 0: "at least one recipient is required"
        recipients.length == amounts.length: "recipients and amounts differ in length"
    }

    execute {
        let ftData = self.vault.resolveView(Type<FungibleTokenMetadataViews.FTVaultData>())! as! FungibleTokenMetadataViews.FTVaultData
        var i = 0
        while i < recipients.length {
            let receiver = getAccount(recipients[i]).capabilities.get<&{FungibleToken.Receiver}>(ftData.receiverPath).borrow()
                ?? panic("unable to borrow receiver capability at path: ".concat(ftData.receiverPath.toString()))
            receiver.deposit(from: <-self.vault.withdraw(amount: amounts[i]))
            i = i + 1
        }
    }
}
`

var stringImport = regexp.MustCompile(`(?m)^import "(\w+)"`)

// resolveImports rewrites `import "Name"` into `import Name from 0xADDR`
// using the network's contract table.
func resolveImports(code string, cfg domain.NetworkConfig) (string, error) {
	var missing error
	out := stringImport.ReplaceAllStringFunc(code, func(line string) string {
		name := stringImport.FindStringSubmatch(line)[1]
		addr, ok := cfg.ContractAddress(name)
		if !ok {
			if missing == nil {
				missing = fmt.Errorf("%w: %s on %s", ErrContractNotConfigured, name, cfg.Network)
			}
			return line
		}
		return fmt.Sprintf("import %s from %s", name, addr)
	})
	if missing != nil {
		return "", missing
	}
	return out, nil
}
