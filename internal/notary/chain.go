package notary

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

var (
	ErrInvalidPrivateKey = errors.New("notary: invalid private key")
	ErrRPCConnection     = errors.New("notary: RPC connection failed")
	ErrTxReverted        = errors.New("notary: transaction reverted")
)

// threatChainABI is the minimal ABI for the ThreatChain contract.
const threatChainABI = `[
	{"inputs":[{"name":"threatId","type":"string"},{"name":"threatHash","type":"bytes32"},{"name":"ipAddress","type":"string"},{"name":"severity","type":"uint8"}],"name":"logThreat","outputs":[],"type":"function"},
	{"inputs":[],"name":"getThreatCount","outputs":[{"name":"","type":"uint256"}],"type":"function"}
]`

const (
	// DefaultGasLimit for logThreat when estimation fails.
	DefaultGasLimit = uint64(300000)

	// ConfirmationPollInterval between receipt checks.
	ConfirmationPollInterval = 2 * time.Second
)

// EthClient abstracts the go-ethereum client for testing.
type EthClient interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	Close()
}

// ChainConfig configures the chain submitter.
type ChainConfig struct {
	RPCURL     string
	PrivateKey string // hex, 0x prefix optional
	ChainID    int64
	Contract   string
}

// Option configures the submitter.
type Option func(*ChainSubmitter)

// WithClient sets a custom Ethereum client (useful for testing).
func WithClient(client EthClient) Option {
	return func(c *ChainSubmitter) {
		c.client = client
	}
}

// ChainSubmitter signs and sends logThreat transactions.
type ChainSubmitter struct {
	client      EthClient
	privateKey  *ecdsa.PrivateKey
	address     common.Address
	chainID     *big.Int
	contract    common.Address
	contractABI abi.ABI
}

var _ Submitter = (*ChainSubmitter)(nil)

// NewChainSubmitter creates a submitter for the ThreatChain contract.
func NewChainSubmitter(cfg ChainConfig, opts ...Option) (*ChainSubmitter, error) {
	if err := validateChainConfig(cfg); err != nil {
		return nil, err
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}

	publicKey, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: failed to derive public key", ErrInvalidPrivateKey)
	}

	parsedABI, err := abi.JSON(strings.NewReader(threatChainABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ThreatChain ABI: %w", err)
	}

	c := &ChainSubmitter{
		privateKey:  privateKey,
		address:     crypto.PubkeyToAddress(*publicKey),
		chainID:     big.NewInt(cfg.ChainID),
		contract:    common.HexToAddress(cfg.Contract),
		contractABI: parsedABI,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.client == nil {
		client, err := ethclient.Dial(cfg.RPCURL)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRPCConnection, err)
		}
		c.client = client
	}

	return c, nil
}

func validateChainConfig(cfg ChainConfig) error {
	if cfg.RPCURL == "" {
		return fmt.Errorf("%w: RPC URL required", ErrRPCConnection)
	}
	key := strings.TrimPrefix(cfg.PrivateKey, "0x")
	if len(key) != 64 {
		return fmt.Errorf("%w: must be 64 hex characters", ErrInvalidPrivateKey)
	}
	if cfg.ChainID == 0 {
		return fmt.Errorf("chain ID required")
	}
	if cfg.Contract == "" {
		return fmt.Errorf("contract address required")
	}
	return nil
}

// Address returns the signing account's address.
func (c *ChainSubmitter) Address() string {
	return c.address.Hex()
}

// Submit packs a logThreat call, signs it, and sends it.
func (c *ChainSubmitter) Submit(ctx context.Context, threatID, threatHash, origin string, severity Severity) (string, error) {
	var hash32 [32]byte
	copy(hash32[:], common.HexToHash(threatHash).Bytes())

	data, err := c.contractABI.Pack("logThreat", threatID, hash32, origin, severity.ChainCode())
	if err != nil {
		return "", fmt.Errorf("pack logThreat: %w", err)
	}

	nonce, err := c.client.PendingNonceAt(ctx, c.address)
	if err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}

	gasPrice, err := c.client.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("gas price: %w", err)
	}

	gasLimit, err := c.client.EstimateGas(ctx, ethereum.CallMsg{
		From:  c.address,
		To:    &c.contract,
		Value: big.NewInt(0),
		Data:  data,
	})
	if err != nil {
		// Use default if estimation fails
		gasLimit = DefaultGasLimit
	}

	tx := types.NewTransaction(nonce, c.contract, big.NewInt(0), gasLimit, gasPrice, data)

	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(c.chainID), c.privateKey)
	if err != nil {
		return "", fmt.Errorf("sign: %w", err)
	}

	if err := c.client.SendTransaction(ctx, signedTx); err != nil {
		return "", fmt.Errorf("send tx %s: %w", signedTx.Hash().Hex(), err)
	}
	return signedTx.Hash().Hex(), nil
}

// WaitForConfirmation polls until the transaction is mined. Cancellation is
// the caller's job via ctx.
func (c *ChainSubmitter) WaitForConfirmation(ctx context.Context, txHash string) (*Confirmation, error) {
	hash := common.HexToHash(txHash)

	ticker := time.NewTicker(ConfirmationPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case <-ticker.C:
			receipt, err := c.client.TransactionReceipt(ctx, hash)
			if err != nil {
				// Not yet mined, keep waiting
				continue
			}
			if receipt.Status == 0 {
				return nil, fmt.Errorf("%w: tx %s", ErrTxReverted, txHash)
			}
			return &Confirmation{
				BlockNumber: receipt.BlockNumber.Uint64(),
				GasUsed:     receipt.GasUsed,
			}, nil
		}
	}
}

// ThreatCount reads the total number of threats recorded on chain.
func (c *ChainSubmitter) ThreatCount(ctx context.Context) (uint64, error) {
	data, err := c.contractABI.Pack("getThreatCount")
	if err != nil {
		return 0, fmt.Errorf("pack getThreatCount: %w", err)
	}
	result, err := c.client.CallContract(ctx, ethereum.CallMsg{
		To:   &c.contract,
		Data: data,
	}, nil)
	if err != nil {
		return 0, fmt.Errorf("call getThreatCount: %w", err)
	}
	return new(big.Int).SetBytes(result).Uint64(), nil
}

// Close closes the client connection.
func (c *ChainSubmitter) Close() error {
	if c.client != nil {
		c.client.Close()
	}
	return nil
}
