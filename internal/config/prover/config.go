package prover

import (
	"time"

	"github.com/ztomic/v1/pkg/types"
)

// ProverOptions 证明后端配置
type ProverOptions struct {
	Backend             string        `json:"backend"`
	WorkDir             string        `json:"work_dir"`
	NargoPath           string        `json:"nargo_path"`
	BBPath              string        `json:"bb_path"`
	InitiatorCircuitDir string        `json:"initiator_circuit_dir"`
	ResponderCircuitDir string        `json:"responder_circuit_dir"`
	Timeout             time.Duration `json:"timeout"`
}

// Config 证明后端配置实现
type Config struct {
	options *ProverOptions
}

// New 创建证明后端配置实现
func New(userConfig *types.UserProverConfig) *Config {
	options := &ProverOptions{
		Backend:             defaultBackend,
		WorkDir:             defaultWorkDir,
		NargoPath:           defaultNargoPath,
		BBPath:              defaultBBPath,
		InitiatorCircuitDir: defaultInitiatorCircuitDir,
		ResponderCircuitDir: defaultResponderCircuitDir,
		Timeout:             defaultTimeout,
	}

	if userConfig != nil {
		if userConfig.Backend != nil {
			options.Backend = *userConfig.Backend
		}
		if userConfig.WorkDir != nil {
			options.WorkDir = *userConfig.WorkDir
		}
		if userConfig.NargoPath != nil {
			options.NargoPath = *userConfig.NargoPath
		}
		if userConfig.BBPath != nil {
			options.BBPath = *userConfig.BBPath
		}
		if userConfig.InitiatorCircuitDir != nil {
			options.InitiatorCircuitDir = *userConfig.InitiatorCircuitDir
		}
		if userConfig.ResponderCircuitDir != nil {
			options.ResponderCircuitDir = *userConfig.ResponderCircuitDir
		}
		if userConfig.TimeoutSeconds != nil && *userConfig.TimeoutSeconds > 0 {
			options.Timeout = time.Duration(*userConfig.TimeoutSeconds) * time.Second
		}
	}

	return &Config{options: options}
}

// GetOptions 获取证明后端配置选项
func (c *Config) GetOptions() *ProverOptions {
	return c.options
}
