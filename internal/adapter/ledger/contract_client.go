package ledger

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
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/Neyfan/zama-dca-bot-batching/config"
	"github.com/Neyfan/zama-dca-bot-batching/internal/domain"
	"github.com/Neyfan/zama-dca-bot-batching/pkg/logger"
	"github.com/Neyfan/zama-dca-bot-batching/pkg/metrics"
)

const (
	storeOrderMethod = "storeOrder"
	storeOrderABI    = `[{"type":"function","name":"storeOrder","stateMutability":"nonpayable","inputs":[{"name":"recipient","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]}]`

	opSubmit   = "submit"
	opFinalize = "finalize"
)

var errReverted = errors.New("transaction reverted")

// Backend is the part of an Ethereum RPC client the contract client needs.
// *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

// Client implements domain.LedgerClient against a deployed storeOrder contract.
type Client struct {
	backend      Backend
	contract     *bind.BoundContract
	address      common.Address
	key          *ecdsa.PrivateKey
	chainID      *big.Int
	gasLimit     uint64
	pollInterval time.Duration
}

var _ domain.LedgerClient = (*Client)(nil)

// Dial connects to cfg.RPCURL and builds a Client.
func Dial(ctx context.Context, cfg config.LedgerConfig) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial ledger rpc: %w", err)
	}
	client, err := NewClient(ctx, eth, cfg)
	if err != nil {
		eth.Close()
		return nil, err
	}
	return client, nil
}

// NewClient builds a Client on top of an existing backend. The chain ID is
// taken from cfg when set and queried from the backend otherwise.
func NewClient(ctx context.Context, backend Backend, cfg config.LedgerConfig) (*Client, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(cfg.PrivateKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	if !common.IsHexAddress(cfg.ContractAddress) {
		return nil, fmt.Errorf("invalid contract address %q", cfg.ContractAddress)
	}
	address := common.HexToAddress(cfg.ContractAddress)

	parsed, err := abi.JSON(strings.NewReader(storeOrderABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse contract abi: %w", err)
	}

	chainID := big.NewInt(cfg.ChainID)
	if cfg.ChainID <= 0 {
		chainID, err = backend.ChainID(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to query chain id: %w", err)
		}
	}

	pollInterval := cfg.ReceiptPollInterval
	if pollInterval <= 0 {
		pollInterval = time.Second
	}

	return &Client{
		backend:      backend,
		contract:     bind.NewBoundContract(address, parsed, backend, backend, backend),
		address:      address,
		key:          key,
		chainID:      chainID,
		gasLimit:     cfg.GasLimit,
		pollInterval: pollInterval,
	}, nil
}

// Address returns the contract address.
func (c *Client) Address() string {
	return c.address.Hex()
}

// Sender returns the address the client signs transactions with.
func (c *Client) Sender() string {
	return crypto.PubkeyToAddress(c.key.PublicKey).Hex()
}

// Submit sends storeOrder(recipient, amount) and returns the transaction hash
// without waiting for it to be mined.
func (c *Client) Submit(ctx context.Context, recipient string, amount *big.Int) (string, error) {
	start := time.Now()

	if !common.IsHexAddress(recipient) {
		metrics.RecordLedgerRequest(opSubmit, "rejected", time.Since(start).Seconds())
		return "", &domain.SubmissionError{Err: fmt.Errorf("invalid recipient address %q", recipient)}
	}
	if amount == nil || amount.Sign() < 0 {
		metrics.RecordLedgerRequest(opSubmit, "rejected", time.Since(start).Seconds())
		return "", &domain.SubmissionError{Err: fmt.Errorf("invalid amount %v", amount)}
	}

	opts, err := bind.NewKeyedTransactorWithChainID(c.key, c.chainID)
	if err != nil {
		metrics.RecordLedgerRequest(opSubmit, "error", time.Since(start).Seconds())
		return "", &domain.SubmissionError{Err: fmt.Errorf("failed to build transactor: %w", err)}
	}
	opts.Context = ctx
	opts.GasLimit = c.gasLimit

	tx, err := c.contract.Transact(opts, storeOrderMethod, common.HexToAddress(recipient), amount)
	if err != nil {
		metrics.RecordLedgerRequest(opSubmit, "error", time.Since(start).Seconds())
		return "", &domain.SubmissionError{Err: err}
	}

	metrics.RecordLedgerRequest(opSubmit, "success", time.Since(start).Seconds())
	logger.Debug("Ledger transaction sent",
		logger.String("tx_hash", tx.Hash().Hex()),
		logger.Int64("nonce", int64(tx.Nonce())),
	)
	return tx.Hash().Hex(), nil
}

// Finalize polls for the receipt until it is available or ctx expires.
// Lookup errors other than "not found" are treated as transient.
func (c *Client) Finalize(ctx context.Context, txHash string) error {
	start := time.Now()
	hash := common.HexToHash(txHash)

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	var lastErr error
	for {
		receipt, err := c.backend.TransactionReceipt(ctx, hash)
		switch {
		case err == nil && receipt != nil:
			if receipt.Status != types.ReceiptStatusSuccessful {
				metrics.RecordLedgerRequest(opFinalize, "reverted", time.Since(start).Seconds())
				return &domain.FinalizationError{TxHash: txHash, Err: errReverted}
			}
			metrics.RecordLedgerRequest(opFinalize, "success", time.Since(start).Seconds())
			logger.Debug("Ledger transaction mined",
				logger.String("tx_hash", txHash),
				logger.String("block", receipt.BlockNumber.String()),
			)
			return nil
		case err != nil && !errors.Is(err, ethereum.NotFound):
			lastErr = err
			logger.Debug("Receipt retrieval failed",
				logger.String("tx_hash", txHash),
				logger.ErrorField(err),
			)
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				metrics.RecordLedgerRequest(opFinalize, "timeout", time.Since(start).Seconds())
				if lastErr != nil {
					return &domain.FinalizationTimeout{TxHash: txHash, Err: fmt.Errorf("%w (last error: %v)", ctx.Err(), lastErr)}
				}
				return &domain.FinalizationTimeout{TxHash: txHash, Err: ctx.Err()}
			}
			metrics.RecordLedgerRequest(opFinalize, "error", time.Since(start).Seconds())
			return &domain.FinalizationError{TxHash: txHash, Err: ctx.Err()}
		case <-ticker.C:
		}
	}
}
