package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ztomic/v1/internal/core/infrastructure/crypto/field"
	"github.com/ztomic/v1/internal/core/zkproof"
	"github.com/ztomic/v1/internal/core/zkproof/backend/gnark"
	swapintf "github.com/ztomic/v1/pkg/interfaces/swap"
	"github.com/ztomic/v1/pkg/types"
)

// proofOutput 证明输出，字段与合约调用参数对应
type proofOutput struct {
	Backend      string               `json:"backend"`
	Role         string               `json:"role"`
	Proof        string               `json:"proof"`
	PublicInputs []types.FieldElement `json:"publicInputs"`
	Root         types.FieldElement   `json:"root"`
	LeafIndex    uint64               `json:"leafIndex"`
	OrderIDHash  string               `json:"orderIdHash"`
	Elapsed      string               `json:"elapsed"`
}

func newProveCmd(kit *toolkit, flags *GlobalFlags) *cobra.Command {
	var (
		secret  secretFlags
		peer    counterpartyFlags
		leaves  leavesFlags
		nonce   string
		orderID string
		timeout time.Duration
	)

	run := func(cmd *cobra.Command, role types.Role) error {
		ctx := cmd.Context()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		sk, err := secret.resolve(kit)
		if err != nil {
			return err
		}
		pk, err := peer.resolve(ctx, kit)
		if err != nil {
			return err
		}
		n, err := field.ParseElement(nonce)
		if err != nil {
			return fmt.Errorf("nonce: %w", err)
		}
		tree, err := leaves.load(ctx, kit)
		if err != nil {
			return err
		}

		backend, err := zkproof.NewBackend(kit.logger, kit.provider.GetProver(), kit.crypto.Hasher.Name())
		if err != nil {
			return err
		}
		gen := zkproof.NewGenerator(kit.logger, kit.scheme, kit.crypto.KeyManager, kit.crypto.FieldCodec, backend)

		start := time.Now()
		var (
			proof   types.Proof
			witness *types.Witness
		)
		hn := types.HashlockNonce{FieldElement: n}
		if role == types.RoleInitiator {
			proof, witness, err = gen.ProveAsInitiator(ctx, tree, swapintf.InitiatorRequest{
				Secret: sk, CounterpartyPK: pk, Nonce: hn, OrderID: orderID,
			})
		} else {
			proof, witness, err = gen.ProveAsResponder(ctx, tree, swapintf.ResponderRequest{
				Secret: sk, CounterpartyPK: pk, Nonce: hn, OrderID: orderID,
			})
		}
		if err != nil {
			return err
		}

		oh := kit.crypto.FieldCodec.OrderIDHash(orderID)
		return printJSON(cmd.OutOrStdout(), flags, proofOutput{
			Backend:      proof.Backend,
			Role:         role.String(),
			Proof:        proof.Hex(),
			PublicInputs: proof.PublicInputs,
			Root:         witness.MerkleProof.Root,
			LeafIndex:    witness.MerkleProof.LeafIndex,
			OrderIDHash:  fmt.Sprintf("0x%x", oh[:]),
			Elapsed:      time.Since(start).Round(time.Millisecond).String(),
		})
	}

	cmd := &cobra.Command{
		Use:   "prove",
		Short: "生成提款证明",
	}
	initiator := &cobra.Command{
		Use:   "initiator",
		Short: "发起方提款证明，nonce 为自己存款时使用的随机数",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, types.RoleInitiator)
		},
	}
	responder := &cobra.Command{
		Use:   "responder",
		Short: "响应方提款证明，nonce 取自发起方的提款日志",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, types.RoleResponder)
		},
	}
	// 两个子命令共用同一组 flag 变量，每次只会执行其中一个
	for _, sub := range []*cobra.Command{initiator, responder} {
		secret.bind(sub)
		peer.bind(sub)
		leaves.bind(sub)
		sub.Flags().StringVar(&nonce, "nonce", "", "哈希锁随机数")
		sub.Flags().StringVar(&orderID, "order-id", "", "十进制订单号")
		sub.Flags().DurationVar(&timeout, "timeout", 0, "证明超时，0 表示不限")
		_ = sub.MarkFlagRequired("nonce")
		_ = sub.MarkFlagRequired("order-id")
	}
	cmd.AddCommand(initiator, responder)
	return cmd
}

func newVerifierCmd(kit *toolkit) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verifier",
		Short: "参考电路的 verifier 工具",
	}

	var (
		roleName string
		depth    int
		out      string
	)
	export := &cobra.Command{
		Use:   "export",
		Short: "执行可信设置并导出 Solidity verifier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			role, err := types.ParseRole(roleName)
			if err != nil {
				return err
			}
			if depth == 0 {
				depth = kit.crypto.TreeDepth
			}
			w := cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			manager := gnark.NewCircuitManager(kit.logger)
			return manager.ExportSolidityVerifier(role, depth, w)
		},
	}
	export.Flags().StringVar(&roleName, "role", "", "initiator | responder")
	export.Flags().IntVar(&depth, "depth", 0, "树深度，默认取配置")
	export.Flags().StringVarP(&out, "out", "o", "", "输出文件，默认标准输出")
	_ = export.MarkFlagRequired("role")

	cmd.AddCommand(export)
	return cmd
}
