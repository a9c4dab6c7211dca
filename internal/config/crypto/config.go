package crypto

import (
	"fmt"

	"github.com/ztomic/v1/pkg/types"
)

// CryptoOptions 密码学参数
type CryptoOptions struct {
	Hash           string `json:"hash"`
	SecretEncoding string `json:"secret_encoding"`
	OrderIDPolicy  string `json:"order_id_policy"`
	TreeDepth      int    `json:"tree_depth"`
}

// Config 密码学配置实现
type Config struct {
	options *CryptoOptions
}

// New 创建密码学配置实现
func New(userConfig *types.UserCryptoConfig) *Config {
	options := &CryptoOptions{
		Hash:           defaultHash,
		SecretEncoding: defaultSecretEncoding,
		OrderIDPolicy:  defaultOrderIDPolicy,
		TreeDepth:      defaultTreeDepth,
	}

	if userConfig != nil {
		if userConfig.Hash != nil {
			options.Hash = *userConfig.Hash
		}
		if userConfig.SecretEncoding != nil {
			options.SecretEncoding = *userConfig.SecretEncoding
		}
		if userConfig.OrderIDPolicy != nil {
			options.OrderIDPolicy = *userConfig.OrderIDPolicy
		}
		if userConfig.TreeDepth != nil {
			options.TreeDepth = *userConfig.TreeDepth
		}
	}

	return &Config{options: options}
}

// GetOptions 获取密码学配置选项
func (c *Config) GetOptions() *CryptoOptions {
	return c.options
}

// Validate 校验取值
func (o *CryptoOptions) Validate() error {
	switch o.Hash {
	case HashPoseidon2, HashPoseidon:
	default:
		return fmt.Errorf("unsupported hash %q", o.Hash)
	}
	switch o.SecretEncoding {
	case SecretEncodingDecimal, SecretEncodingUTF8Bytes:
	default:
		return fmt.Errorf("unsupported secret encoding %q", o.SecretEncoding)
	}
	switch o.OrderIDPolicy {
	case OrderIDPolicyReduce, OrderIDPolicyReject:
	default:
		return fmt.Errorf("unsupported order id policy %q", o.OrderIDPolicy)
	}
	if o.TreeDepth < 1 || o.TreeDepth > MaxTreeDepth {
		return fmt.Errorf("tree depth %d out of range [1, %d]", o.TreeDepth, MaxTreeDepth)
	}
	return nil
}
