package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ztomic/v1/internal/app"
	configpkg "github.com/ztomic/v1/internal/config"
	logconfig "github.com/ztomic/v1/internal/config/log"
	"github.com/ztomic/v1/internal/core/commitment"
	"github.com/ztomic/v1/internal/core/infrastructure/crypto"
	logimpl "github.com/ztomic/v1/internal/core/infrastructure/log"
	"github.com/ztomic/v1/pkg/interfaces/config"
	"github.com/ztomic/v1/pkg/interfaces/infrastructure/log"
	"github.com/ztomic/v1/pkg/types"
)

// GlobalFlags 全局标志
type GlobalFlags struct {
	ConfigPath string // 配置文件路径
	Pretty     bool   // 缩进输出
	Verbose    bool   // 详细日志
}

// toolkit 离线命令共用的配置与密码学服务
type toolkit struct {
	appConfig *types.AppConfig
	provider  config.Provider
	logger    log.Logger
	crypto    crypto.ServiceOutput
	scheme    *commitment.Scheme
}

// newRootCmd 创建命令树
//
// 每次调用返回新的命令实例，flag 状态不会在调用之间共享。
func newRootCmd() *cobra.Command {
	var (
		flags GlobalFlags
		kit   toolkit
	)

	root := &cobra.Command{
		Use:   "ztomic",
		Short: "私密原子交换工具",
		Long: `ztomic - 双方私密原子交换的客户端核心

离线命令:
  keygen      由秘密派生 Baby Jubjub 公钥
  commit      计算发起方/响应方的存款承诺
  nullifier   计算提款 nullifier
  tree        由存款叶子重建 Merkle 树，输出根或认证路径
  prove       生成提款证明
  verifier    导出参考电路的 Solidity verifier

节点命令:
  run         启动账本、链上事件跟随、编排器与状态 API`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return kit.init(flags)
		},
	}

	root.PersistentFlags().StringVarP(&flags.ConfigPath, "config", "c", "", fmt.Sprintf("配置文件路径 (默认读取 $%s)", app.ConfigPathEnv))
	root.PersistentFlags().BoolVar(&flags.Pretty, "pretty", false, "缩进输出 JSON")
	root.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "详细输出")

	root.AddCommand(
		newKeygenCmd(&kit, &flags),
		newCommitCmd(&kit, &flags),
		newNullifierCmd(&kit, &flags),
		newTreeCmd(&kit, &flags),
		newProveCmd(&kit, &flags),
		newVerifierCmd(&kit),
		newRunCmd(&flags),
		newVersionCmd(),
	)
	return root
}

// init 加载配置并创建密码学服务
func (k *toolkit) init(flags GlobalFlags) error {
	path := flags.ConfigPath
	if path == "" {
		path = os.Getenv(app.ConfigPathEnv)
	}
	k.appConfig = &types.AppConfig{}
	if path != "" {
		cfg, err := app.LoadConfig(path)
		if err != nil {
			return err
		}
		k.appConfig = cfg
	}
	k.provider = configpkg.NewProvider(k.appConfig)

	level := "warn"
	if flags.Verbose {
		level = "debug"
	}
	logger, err := logimpl.New(logconfig.New(&types.UserLogConfig{
		Level:     types.StringPtr(level),
		ToConsole: types.BoolPtr(true),
	}))
	if err != nil {
		return fmt.Errorf("初始化日志: %w", err)
	}
	k.logger = logger

	out, err := crypto.CreateCryptoServices(crypto.ServiceInput{
		Options: k.provider.GetCrypto(),
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	k.crypto = out
	k.scheme = commitment.NewScheme(out.Hasher, out.KeyManager)
	return nil
}

// printJSON 输出结果
func printJSON(w io.Writer, flags *GlobalFlags, v interface{}) error {
	enc := json.NewEncoder(w)
	if flags.Pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

// Execute 执行根命令
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
