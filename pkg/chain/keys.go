package chain

import (
	"crypto/ecdsa"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	hdwallet "github.com/miguelmota/go-ethereum-hdwallet"
	"github.com/pkg/errors"
)

// DefaultDerivationPath is the first account of the standard Ethereum HD path.
const DefaultDerivationPath = "m/44'/60'/0'/0/0"

// LoadKey returns the signing key from a hex private key or, when none is
// given, from a BIP-39 mnemonic and derivation path.
func LoadKey(privateKeyHex, mnemonic, derivationPath string) (*ecdsa.PrivateKey, error) {
	if privateKeyHex = strings.TrimSpace(privateKeyHex); privateKeyHex != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
		if err != nil {
			return nil, errors.Wrap(err, "invalid private key")
		}
		return key, nil
	}

	if mnemonic = strings.TrimSpace(mnemonic); mnemonic == "" {
		return nil, errors.New("no private key or mnemonic configured")
	}
	if derivationPath == "" {
		derivationPath = DefaultDerivationPath
	}

	wallet, err := hdwallet.NewFromMnemonic(mnemonic)
	if err != nil {
		return nil, errors.Wrap(err, "invalid mnemonic")
	}
	path, err := hdwallet.ParseDerivationPath(derivationPath)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid derivation path %q", derivationPath)
	}
	account, err := wallet.Derive(path, false)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive account")
	}
	key, err := wallet.PrivateKey(account)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read derived key")
	}
	return key, nil
}
