package wallet

import (
	"github.com/tolelom/rpschain/core"
	"github.com/tolelom/rpschain/crypto"
)

// Wallet holds a key pair bound to one chain and builds the transaction
// groups a player submits. Nonces are supplied by the caller, who reads
// them from the ledger.
type Wallet struct {
	priv    crypto.PrivateKey
	pub     crypto.PublicKey
	chainID string
	fee     uint64
}

// New creates a Wallet for chainID from an existing private key.
func New(chainID string, priv crypto.PrivateKey) *Wallet {
	return &Wallet{priv: priv, pub: priv.Public(), chainID: chainID, fee: core.MinTxFee}
}

// Generate creates a Wallet with a freshly generated key pair.
func Generate(chainID string) (*Wallet, error) {
	priv, _, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	return New(chainID, priv), nil
}

// PrivKey returns the raw private key (handle with care).
func (w *Wallet) PrivKey() crypto.PrivateKey { return w.priv }

// Address returns the hex-encoded ed25519 public key, which is the
// account address.
func (w *Wallet) Address() string { return w.pub.Hex() }

// ChainID returns the chain the wallet signs for.
func (w *Wallet) ChainID() string { return w.chainID }

// SetFee overrides the per-transaction fee (default core.MinTxFee).
func (w *Wallet) SetFee(fee uint64) { w.fee = fee }

// NewTx creates an unsigned transaction from this wallet.
func (w *Wallet) NewTx(typ core.TxType, nonce uint64, payload any) (*core.Transaction, error) {
	return core.NewTransaction(w.chainID, typ, w.Address(), nonce, w.fee, payload)
}

// Payment creates an unsigned payment.
func (w *Wallet) Payment(nonce uint64, to string, amount uint64) (*core.Transaction, error) {
	return w.NewTx(core.TxPayment, nonce, core.PaymentPayload{To: to, Amount: amount})
}

// CreateApp creates an unsigned application create transaction.
func (w *Wallet) CreateApp(nonce uint64, program []byte, schema core.StateSchema) (*core.Transaction, error) {
	return w.NewTx(core.TxAppCall, nonce, core.AppCallPayload{
		OnComplete: core.OnCreate,
		Program:    program,
		Schema:     schema,
	})
}

// CallApp creates an unsigned NoOp application call.
func (w *Wallet) CallApp(nonce, appID uint64, args [][]byte) (*core.Transaction, error) {
	return w.NewTx(core.TxAppCall, nonce, core.AppCallPayload{
		AppID:      appID,
		OnComplete: core.OnNoOp,
		Args:       args,
	})
}

// Single wraps tx in a signed one-member batch.
func (w *Wallet) Single(tx *core.Transaction) (*core.Batch, error) {
	b, err := core.NewBatch(tx)
	if err != nil {
		return nil, err
	}
	return b, b.Sign(w.priv)
}

// PaidCall builds and signs [payment of amount to the app][call args],
// using nonce and nonce+1.
func (w *Wallet) PaidCall(nonce, appID, amount uint64, args [][]byte) (*core.Batch, error) {
	pay, err := w.Payment(nonce, crypto.AppAddress(appID), amount)
	if err != nil {
		return nil, err
	}
	call, err := w.CallApp(nonce+1, appID, args)
	if err != nil {
		return nil, err
	}
	b, err := core.NewPaidCall(pay, call)
	if err != nil {
		return nil, err
	}
	return b, b.Sign(w.priv)
}
