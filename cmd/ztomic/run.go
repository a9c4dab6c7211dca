package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ztomic/v1/internal/app"
	"github.com/ztomic/v1/internal/app/version"
)

func newRunCmd(flags *GlobalFlags) *cobra.Command {
	var noAPI bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "启动交换节点：账本、链上事件跟随、编排器与状态 API",
		Args:  cobra.NoArgs,
		// 节点由 fx 装配自己的服务，不需要离线命令的 toolkit
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := []app.Option{app.WithConfigFile(flags.ConfigPath)}
			if noAPI {
				opts = append(opts, app.WithoutAPI())
			}
			node, err := app.Start(opts...)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), version.GetFullVersion())
			node.Wait()
			return nil
		},
	}
	cmd.Flags().BoolVar(&noAPI, "no-api", false, "不启动状态 API")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "显示版本信息",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), version.GetFullVersion())
			return nil
		},
	}
}
