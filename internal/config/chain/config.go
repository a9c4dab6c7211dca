package chain

import (
	"time"

	"github.com/ztomic/v1/pkg/types"
)

// ChainOptions 链配置
type ChainOptions struct {
	RPCURL          string        `json:"rpc_url"`
	ContractAddress string        `json:"contract_address"`
	TokenAddress    string        `json:"token_address"`
	ChainID         uint64        `json:"chain_id"`
	StartBlock      uint64        `json:"start_block"`
	Confirmations   uint64        `json:"confirmations"`
	PollInterval    time.Duration `json:"poll_interval"`
	PrivateKeyHex   string        `json:"-"`
}

// Config 链配置实现
type Config struct {
	options *ChainOptions
}

// New 创建链配置实现
func New(userConfig *types.UserChainConfig) *Config {
	options := &ChainOptions{
		RPCURL:        defaultRPCURL,
		ChainID:       defaultChainID,
		StartBlock:    defaultStartBlock,
		Confirmations: defaultConfirmations,
		PollInterval:  defaultPollInterval,
	}

	if userConfig != nil {
		if userConfig.RPCURL != nil {
			options.RPCURL = *userConfig.RPCURL
		}
		if userConfig.ContractAddress != nil {
			options.ContractAddress = *userConfig.ContractAddress
		}
		if userConfig.TokenAddress != nil {
			options.TokenAddress = *userConfig.TokenAddress
		}
		if userConfig.ChainID != nil {
			options.ChainID = *userConfig.ChainID
		}
		if userConfig.StartBlock != nil {
			options.StartBlock = *userConfig.StartBlock
		}
		if userConfig.Confirmations != nil {
			options.Confirmations = *userConfig.Confirmations
		}
		if userConfig.PollIntervalSeconds != nil && *userConfig.PollIntervalSeconds > 0 {
			options.PollInterval = time.Duration(*userConfig.PollIntervalSeconds) * time.Second
		}
		if userConfig.PrivateKeyHex != nil {
			options.PrivateKeyHex = *userConfig.PrivateKeyHex
		}
	}

	return &Config{options: options}
}

// GetOptions 获取链配置选项
func (c *Config) GetOptions() *ChainOptions {
	return c.options
}
