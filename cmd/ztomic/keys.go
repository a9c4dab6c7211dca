package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ztomic/v1/internal/core/infrastructure/crypto/field"
	"github.com/ztomic/v1/internal/core/registry"
	"github.com/ztomic/v1/pkg/types"
)

// secretFlags 秘密来源：直接给值或指定环境变量
type secretFlags struct {
	value string
	env   string
}

func (f *secretFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.value, "secret", "", "私钥秘密")
	cmd.Flags().StringVar(&f.env, "secret-env", "", "从环境变量读取私钥秘密")
}

func (f *secretFlags) resolve(kit *toolkit) (types.FieldElement, error) {
	raw := f.value
	if f.env != "" {
		raw = os.Getenv(f.env)
		if raw == "" {
			return types.FieldElement{}, fmt.Errorf("环境变量 $%s 为空", f.env)
		}
	}
	if raw == "" {
		return types.FieldElement{}, fmt.Errorf("需要 --secret 或 --secret-env")
	}
	return kit.crypto.FieldCodec.SecretToField(raw)
}

// counterpartyFlags 对方公钥：直接给坐标或按用户名查询注册中心
type counterpartyFlags struct {
	x, y string
	name string
}

func (f *counterpartyFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.x, "pk-x", "", "对方公钥 x 坐标（十六进制）")
	cmd.Flags().StringVar(&f.y, "pk-y", "", "对方公钥 y 坐标（十六进制）")
	cmd.Flags().StringVar(&f.name, "counterparty", "", "对方用户名，从注册中心查询公钥")
}

func (f *counterpartyFlags) resolve(ctx context.Context, kit *toolkit) (types.PublicKey, error) {
	record := types.UserRecord{PubKeyX: f.x, PubKeyY: f.y}
	if f.name != "" {
		opts := kit.provider.GetRegistry()
		if opts.BaseURL == "" {
			return types.PublicKey{}, fmt.Errorf("按用户名查询需要配置 registry.base_url")
		}
		client, err := registry.NewClient(opts.BaseURL, opts.Timeout, kit.logger)
		if err != nil {
			return types.PublicKey{}, err
		}
		record, err = client.User(ctx, f.name)
		if err != nil {
			return types.PublicKey{}, fmt.Errorf("查询用户 %s: %w", f.name, err)
		}
	}
	if record.PubKeyX == "" || record.PubKeyY == "" {
		return types.PublicKey{}, fmt.Errorf("需要 --pk-x/--pk-y 或 --counterparty")
	}
	return kit.crypto.KeyManager.ParsePublicKey(record)
}

func newKeygenCmd(kit *toolkit, flags *GlobalFlags) *cobra.Command {
	var (
		secret secretFlags
		name   string
	)
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "由秘密派生公钥，输出格式与注册中心一致",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sk, err := secret.resolve(kit)
			if err != nil {
				return err
			}
			pk, err := kit.crypto.KeyManager.DerivePublicKey(sk)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), flags, types.UserRecord{
				UserName: name,
				PubKeyX:  strings.TrimPrefix(pk.X.Hex(), "0x"),
				PubKeyY:  strings.TrimPrefix(pk.Y.Hex(), "0x"),
			})
		},
	}
	secret.bind(cmd)
	cmd.Flags().StringVar(&name, "name", "", "写入输出的用户名")
	return cmd
}

func newCommitCmd(kit *toolkit, flags *GlobalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "commit",
		Short: "计算存款承诺",
	}

	var (
		iSecret secretFlags
		iPeer   counterpartyFlags
		nonce   string
	)
	initiator := &cobra.Command{
		Use:   "initiator",
		Short: "发起方承诺；未指定 nonce 时随机生成",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sk, err := iSecret.resolve(kit)
			if err != nil {
				return err
			}
			pk, err := iPeer.resolve(cmd.Context(), kit)
			if err != nil {
				return err
			}
			var n types.FieldElement
			if nonce != "" {
				n, err = field.ParseElement(nonce)
			} else {
				n, err = field.RandomElement()
			}
			if err != nil {
				return err
			}
			hn := types.HashlockNonce{FieldElement: n}

			hashlock, c, err := kit.scheme.CommitAsInitiator(pk, sk, hn)
			if err != nil {
				return err
			}
			mirror, err := kit.scheme.MirrorResponder(pk, sk, hn)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), flags, map[string]interface{}{
				"role":                types.RoleInitiator.String(),
				"nonce":               hn,
				"hashlock":            hashlock,
				"commitment":          c,
				"responderCommitment": mirror,
			})
		},
	}
	iSecret.bind(initiator)
	iPeer.bind(initiator)
	initiator.Flags().StringVar(&nonce, "nonce", "", "哈希锁随机数")

	var (
		rSecret  secretFlags
		rPeer    counterpartyFlags
		hashlock string
	)
	responder := &cobra.Command{
		Use:   "responder",
		Short: "响应方承诺，hashlock 取自发起方的存款日志",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sk, err := rSecret.resolve(kit)
			if err != nil {
				return err
			}
			pk, err := rPeer.resolve(cmd.Context(), kit)
			if err != nil {
				return err
			}
			h, err := field.ParseElement(hashlock)
			if err != nil {
				return fmt.Errorf("hashlock: %w", err)
			}
			c, err := kit.scheme.CommitAsResponder(pk, sk, types.Hashlock{FieldElement: h})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), flags, map[string]interface{}{
				"role":       types.RoleResponder.String(),
				"hashlock":   types.Hashlock{FieldElement: h},
				"commitment": c,
			})
		},
	}
	rSecret.bind(responder)
	rPeer.bind(responder)
	responder.Flags().StringVar(&hashlock, "hashlock", "", "发起方公开的哈希锁")
	_ = responder.MarkFlagRequired("hashlock")

	cmd.AddCommand(initiator, responder)
	return cmd
}

func newNullifierCmd(kit *toolkit, flags *GlobalFlags) *cobra.Command {
	var (
		secret  secretFlags
		peer    counterpartyFlags
		orderID string
	)
	cmd := &cobra.Command{
		Use:   "nullifier",
		Short: "计算提款 nullifier 与链上订单号哈希",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sk, err := secret.resolve(kit)
			if err != nil {
				return err
			}
			pk, err := peer.resolve(cmd.Context(), kit)
			if err != nil {
				return err
			}
			oid, err := kit.crypto.FieldCodec.ParseOrderID(orderID)
			if err != nil {
				return err
			}
			sx, err := kit.scheme.SharedSecret(pk, sk)
			if err != nil {
				return err
			}
			nf, err := kit.scheme.Nullifier(sx, pk.X, oid)
			if err != nil {
				return err
			}
			oh := kit.crypto.FieldCodec.OrderIDHash(orderID)
			return printJSON(cmd.OutOrStdout(), flags, map[string]interface{}{
				"orderId":     oid,
				"orderIdHash": fmt.Sprintf("0x%x", oh[:]),
				"nullifier":   nf,
			})
		},
	}
	secret.bind(cmd)
	peer.bind(cmd)
	cmd.Flags().StringVar(&orderID, "order-id", "", "十进制订单号")
	_ = cmd.MarkFlagRequired("order-id")
	return cmd
}
