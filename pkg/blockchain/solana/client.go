// pkg/blockchain/solana/client.go
package solana

import (
	"context"
	"errors"
	"net/url"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

// Client — тонкий read-only адаптер над пулом RPC-клиентов.
// Детектору нужны только методы чтения аккаунтов; подписи и
// отправка транзакций здесь отсутствуют намеренно.
type Client struct {
	rpcPool *RPCPool
	logger  *zap.Logger
}

// NewClient создает новый экземпляр клиента Solana
func NewClient(rpcList []string, logger *zap.Logger) (*Client, error) {
	if len(rpcList) == 0 {
		return nil, errors.New("empty RPC list")
	}

	for _, rpcURL := range rpcList {
		if _, err := url.Parse(rpcURL); err != nil {
			return nil, errors.New("invalid RPC URL: " + rpcURL)
		}
	}

	return &Client{
		rpcPool: NewRPCPool(rpcList),
		logger:  logger.Named("solana-client"),
	}, nil
}

// GetAccountInfo получает метаданные аккаунта с failover по пулу.
func (c *Client) GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*rpc.Account, error) {
	var account *rpc.Account
	err := c.rpcPool.Do(ctx, func(client *rpc.Client) error {
		result, err := client.GetAccountInfoWithOpts(ctx, pubkey, &rpc.GetAccountInfoOpts{
			Encoding:   solana.EncodingBase64,
			Commitment: rpc.CommitmentConfirmed,
		})
		if err != nil {
			return err
		}
		if result == nil || result.Value == nil {
			return errors.New("account not found: " + pubkey.String())
		}
		account = result.Value
		return nil
	})
	if err != nil {
		c.logger.Debug("GetAccountInfo error",
			zap.String("pubkey", pubkey.String()),
			zap.Error(err))
		return nil, err
	}
	return account, nil
}

// GetTokenAccountBalance возвращает баланс токен-аккаунта в raw-единицах
// вместе с количеством знаков.
func (c *Client) GetTokenAccountBalance(ctx context.Context, account solana.PublicKey) (amount string, decimals uint8, err error) {
	err = c.rpcPool.Do(ctx, func(client *rpc.Client) error {
		result, rpcErr := client.GetTokenAccountBalance(ctx, account, rpc.CommitmentConfirmed)
		if rpcErr != nil {
			return rpcErr
		}
		if result == nil || result.Value == nil {
			return errors.New("empty token balance for " + account.String())
		}
		amount = result.Value.Amount
		decimals = result.Value.Decimals
		return nil
	})
	if err != nil {
		c.logger.Debug("GetTokenAccountBalance error",
			zap.String("account", account.String()),
			zap.Error(err))
		return "", 0, err
	}
	return amount, decimals, nil
}
