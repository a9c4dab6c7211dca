package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/spf13/cobra"

	"github.com/ztomic/v1/internal/core/chain"
	"github.com/ztomic/v1/internal/core/infrastructure/crypto/field"
	"github.com/ztomic/v1/internal/core/ledger"
	"github.com/ztomic/v1/pkg/types"
)

// leavesFlags 叶子来源：JSON 文件或链上回放
type leavesFlags struct {
	file      string
	fromBlock uint64
}

func (f *leavesFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.file, "leaves", "", "叶子文件（承诺数组或存款日志数组）；为空时从链上回放")
	cmd.Flags().Uint64Var(&f.fromBlock, "from-block", 0, "链上回放起始区块，默认取配置的 start_block")
}

// load 按叶子下标排序重建账本
func (f *leavesFlags) load(ctx context.Context, kit *toolkit) (*ledger.Service, error) {
	var (
		deposits []types.DepositEvent
		err      error
	)
	if f.file != "" {
		deposits, err = readLeavesFile(f.file)
	} else {
		deposits, err = f.fetchFromChain(ctx, kit)
	}
	if err != nil {
		return nil, err
	}

	svc, err := ledger.New(kit.logger, kit.crypto.Hasher, kit.crypto.TreeDepth, nil, nil)
	if err != nil {
		return nil, err
	}
	if err := svc.Rebuild(ctx, deposits); err != nil {
		return nil, err
	}
	return svc, nil
}

func (f *leavesFlags) fetchFromChain(ctx context.Context, kit *toolkit) ([]types.DepositEvent, error) {
	opts := kit.provider.GetChain()
	if opts.RPCURL == chain.SimURL {
		return nil, fmt.Errorf("模拟链只存在于 run 进程内，请改用 --leaves")
	}
	if !common.IsHexAddress(opts.ContractAddress) {
		return nil, fmt.Errorf("链上回放需要配置 chain.contract_address")
	}
	client, err := ethclient.DialContext(ctx, opts.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("连接 %s: %w", opts.RPCURL, err)
	}
	defer client.Close()

	source, err := chain.NewEthSource(client, chain.SourceOptions{
		Contract:      common.HexToAddress(opts.ContractAddress),
		Confirmations: opts.Confirmations,
	}, kit.logger)
	if err != nil {
		return nil, err
	}
	from := f.fromBlock
	if from == 0 {
		from = opts.StartBlock
	}
	return source.FetchDeposits(ctx, from)
}

// readLeavesFile 接受三种格式：承诺字符串数组、存款日志数组、状态 API 的 {"data": [...]} 响应
func readLeavesFile(path string) ([]types.DepositEvent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var envelope struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(data, &envelope); err != nil {
			return nil, fmt.Errorf("解析 %s: %w", path, err)
		}
		data = bytes.TrimSpace(envelope.Data)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("解析 %s: %w", path, err)
	}
	out := make([]types.DepositEvent, 0, len(items))
	for i, item := range items {
		if len(item) > 0 && item[0] == '"' {
			var s string
			if err := json.Unmarshal(item, &s); err != nil {
				return nil, err
			}
			leaf, err := field.ParseElement(s)
			if err != nil {
				return nil, fmt.Errorf("第 %d 个叶子: %w", i, err)
			}
			out = append(out, types.DepositEvent{
				EventRef:   types.EventRef{TxHash: fmt.Sprintf("file:%d", i)},
				Commitment: types.Commitment{FieldElement: leaf},
				LeafIndex:  uint64(i),
			})
			continue
		}
		var ev types.DepositEvent
		if err := json.Unmarshal(item, &ev); err != nil {
			return nil, fmt.Errorf("第 %d 条存款日志: %w", i, err)
		}
		out = append(out, ev)
	}
	return out, nil
}

func newTreeCmd(kit *toolkit, flags *GlobalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "重建存款 Merkle 树",
	}

	var rootLeaves leavesFlags
	root := &cobra.Command{
		Use:   "root",
		Short: "输出当前根与叶子数",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := rootLeaves.load(cmd.Context(), kit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), flags, map[string]interface{}{
				"root":    svc.CurrentRoot(),
				"leaves":  svc.Len(),
				"pending": svc.Pending(),
				"depth":   kit.crypto.TreeDepth,
				"hash":    kit.crypto.Hasher.Name(),
			})
		},
	}
	rootLeaves.bind(root)

	var (
		proofLeaves leavesFlags
		leaf        string
	)
	proof := &cobra.Command{
		Use:   "proof",
		Short: "输出承诺的认证路径",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := field.ParseElement(leaf)
			if err != nil {
				return fmt.Errorf("commitment: %w", err)
			}
			svc, err := proofLeaves.load(cmd.Context(), kit)
			if err != nil {
				return err
			}
			index, err := svc.IndexOf(c)
			if err != nil {
				return err
			}
			p, err := svc.Proof(index)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), flags, p)
		},
	}
	proofLeaves.bind(proof)
	proof.Flags().StringVar(&leaf, "commitment", "", "要证明的承诺")
	_ = proof.MarkFlagRequired("commitment")

	cmd.AddCommand(root, proof)
	return cmd
}
