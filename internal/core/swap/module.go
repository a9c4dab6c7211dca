package swap

import (
	"context"
	"fmt"
	"os"
	"sync"

	"go.uber.org/fx"

	chainconfig "github.com/ztomic/v1/internal/config/chain"
	swapconfig "github.com/ztomic/v1/internal/config/swap"
	"github.com/ztomic/v1/internal/core/infrastructure/crypto/field"
	logimpl "github.com/ztomic/v1/internal/core/infrastructure/log"
	cryptointf "github.com/ztomic/v1/pkg/interfaces/infrastructure/crypto"
	"github.com/ztomic/v1/pkg/interfaces/infrastructure/event"
	"github.com/ztomic/v1/pkg/interfaces/infrastructure/log"
	swapintf "github.com/ztomic/v1/pkg/interfaces/swap"
	"github.com/ztomic/v1/pkg/types"
)

// ModuleInput 编排模块依赖
type ModuleInput struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Logger     log.Logger `optional:"true"`
	Ledger     swapintf.Ledger
	Scheme     swapintf.CommitmentScheme
	KeyManager cryptointf.KeyManager
	FieldCodec cryptointf.FieldCodec
	Prover     swapintf.ProofGenerator
	Submitter  swapintf.Submitter   `optional:"true"`
	Registry   swapintf.Registry    `optional:"true"`
	Source     swapintf.EventSource `optional:"true"`
	EventBus   event.EventBus       `optional:"true"`
	Store      swapintf.EventStore  `optional:"true"`
	Options    *swapconfig.SwapOptions
	Chain      *chainconfig.ChainOptions `optional:"true"`
}

// Module 返回编排模块
//
// 启动后跟随链上事件；配置了角色与订单时自动打开会话。
func Module() fx.Option {
	return fx.Module("swap",
		fx.Provide(ProvideOrchestrator),
	)
}

// ProvideOrchestrator 创建编排器并注册生命周期钩子
func ProvideOrchestrator(in ModuleInput) (*Orchestrator, error) {
	var startBlock uint64
	if in.Chain != nil {
		startBlock = in.Chain.StartBlock
	}
	var nonces swapintf.NonceStore
	if in.Store != nil {
		nonces = in.Store
	}
	o, err := New(Deps{
		Logger:     in.Logger,
		Ledger:     in.Ledger,
		Scheme:     in.Scheme,
		Keys:       in.KeyManager,
		Codec:      in.FieldCodec,
		Prover:     in.Prover,
		Submitter:  in.Submitter,
		Registry:   in.Registry,
		Source:     in.Source,
		Bus:        in.EventBus,
		Nonces:     nonces,
		ResyncFrom: startBlock,
	})
	if err != nil {
		return nil, err
	}
	logger := logimpl.NewModuleLogger(in.Logger, "swap")

	var (
		cancel context.CancelFunc
		wg     sync.WaitGroup
	)
	in.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if in.Options != nil && in.Options.Role != "" {
				id, err := OpenConfigured(ctx, o, in.Options, in.KeyManager, in.Registry)
				if err != nil {
					return err
				}
				logger.Infof("已按配置打开会话: id=%s", id)
			}
			if in.Source == nil {
				logger.Warn("未配置链上事件来源，编排器只响应本地动作")
				return nil
			}
			from := startBlock
			if cp, ok := in.Ledger.(interface{ Checkpoint() uint64 }); ok && cp.Checkpoint() > from {
				from = cp.Checkpoint()
			}
			runCtx, c := context.WithCancel(context.Background())
			cancel = c
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := o.Follow(runCtx, from); err != nil {
					logger.Errorf("链上事件跟随退出: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cancel != nil {
				cancel()
			}
			wg.Wait()
			return nil
		},
	})
	return o, nil
}

// OpenConfigured 按配置打开会话：秘密与 nonce 从环境变量读取，对方公钥从注册中心查询
//
// 发起方未给出 nonce 时沿用事件存储里该订单已保存的值。
func OpenConfigured(ctx context.Context, o *Orchestrator, opts *swapconfig.SwapOptions, keys cryptointf.KeyManager, reg swapintf.Registry) (string, error) {
	role, err := types.ParseRole(opts.Role)
	if err != nil {
		return "", err
	}
	if opts.OrderID == "" || opts.Counterparty == "" {
		return "", fmt.Errorf("swap config: order_id and counterparty are required with role %s", role)
	}
	if reg == nil {
		return "", fmt.Errorf("swap config: registry is required to resolve counterparty %q", opts.Counterparty)
	}

	secret, err := o.codec.SecretToField(os.Getenv(opts.SecretEnv))
	if err != nil {
		return "", fmt.Errorf("read secret from $%s: %w", opts.SecretEnv, err)
	}

	record, err := reg.User(ctx, opts.Counterparty)
	if err != nil {
		return "", err
	}
	pk, err := keys.ParsePublicKey(record)
	if err != nil {
		return "", err
	}

	params := OpenParams{Role: role, OrderID: opts.OrderID, Secret: secret, CounterpartyPK: pk}
	if raw := os.Getenv(opts.NonceEnv); raw != "" && role == types.RoleInitiator {
		nonce, err := field.ParseElement(raw)
		if err != nil {
			return "", fmt.Errorf("read nonce from $%s: %w", opts.NonceEnv, err)
		}
		params.Nonce = types.HashlockNonce{FieldElement: nonce}
	}
	return o.Open(ctx, params)
}
