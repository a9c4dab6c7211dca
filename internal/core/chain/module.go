package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/fx"

	chainconfig "github.com/ztomic/v1/internal/config/chain"
	logimpl "github.com/ztomic/v1/internal/core/infrastructure/log"
	"github.com/ztomic/v1/pkg/interfaces/infrastructure/log"
	swapintf "github.com/ztomic/v1/pkg/interfaces/swap"
)

// SimURL rpc_url 取该值时使用进程内模拟链
const SimURL = "sim"

// ModuleInput 链模块依赖
type ModuleInput struct {
	fx.In

	Lifecycle fx.Lifecycle
	Logger    log.Logger `optional:"true"`
	Options   *chainconfig.ChainOptions
}

// ModuleOutput 链模块输出，未配置合约时两者为 nil
type ModuleOutput struct {
	fx.Out

	Source    swapintf.EventSource
	Submitter swapintf.Submitter
}

// Module 返回链模块
func Module() fx.Option {
	return fx.Module("chain",
		fx.Provide(ProvideServices),
	)
}

// ProvideServices 按配置连接节点
//
// 未配置合约地址时不连接，编排器只同步本地账本；配置了私钥才提供合约调用。
func ProvideServices(in ModuleInput) (ModuleOutput, error) {
	logger := logimpl.NewModuleLogger(in.Logger, "chain")
	opts := in.Options
	if opts == nil {
		opts = chainconfig.New(nil).GetOptions()
	}

	if opts.RPCURL == SimURL {
		logger.Warn("使用进程内模拟链，仅用于本地演示")
		sim := NewSimChain()
		return ModuleOutput{Source: sim, Submitter: sim}, nil
	}
	if opts.ContractAddress == "" {
		logger.Warn("未配置合约地址，跳过链连接")
		return ModuleOutput{}, nil
	}
	if !common.IsHexAddress(opts.ContractAddress) {
		return ModuleOutput{}, fmt.Errorf("chain: invalid contract address %q", opts.ContractAddress)
	}

	client, err := ethclient.Dial(opts.RPCURL)
	if err != nil {
		return ModuleOutput{}, fmt.Errorf("chain: dial %s: %w", opts.RPCURL, err)
	}
	in.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error {
			client.Close()
			return nil
		},
	})

	contract := common.HexToAddress(opts.ContractAddress)
	source, err := NewEthSource(client, SourceOptions{
		Contract:      contract,
		Confirmations: opts.Confirmations,
		PollInterval:  opts.PollInterval,
	}, in.Logger)
	if err != nil {
		return ModuleOutput{}, err
	}
	out := ModuleOutput{Source: source}

	if opts.PrivateKeyHex == "" {
		logger.Info("未配置私钥，只读模式")
		return out, nil
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(opts.PrivateKeyHex, "0x"))
	if err != nil {
		return ModuleOutput{}, fmt.Errorf("chain: parse private key: %w", err)
	}
	var token common.Address
	if opts.TokenAddress != "" {
		if !common.IsHexAddress(opts.TokenAddress) {
			return ModuleOutput{}, fmt.Errorf("chain: invalid token address %q", opts.TokenAddress)
		}
		token = common.HexToAddress(opts.TokenAddress)
	}
	submitter, err := NewSubmitter(client, SubmitterOptions{
		Contract: contract,
		Token:    token,
		Key:      key,
		ChainID:  new(big.Int).SetUint64(opts.ChainID),
	}, in.Logger)
	if err != nil {
		return ModuleOutput{}, err
	}
	out.Submitter = submitter
	logger.Infof("已连接链节点: rpc=%s contract=%s sender=%s", opts.RPCURL, contract.Hex(), crypto.PubkeyToAddress(key.PublicKey).Hex())
	return out, nil
}
