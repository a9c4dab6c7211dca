package field

import (
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	cryptoconfig "github.com/ztomic/v1/internal/config/crypto"
	"github.com/ztomic/v1/pkg/types"
)

// r + 5，超过域模数
const bigOrderID = "21888242871839275222246405745257275088548364400416034343698204186575808495622"

// 74 位全 9 订单号，小于模数，两种策略下都原样保留
const ninesOrderID = "99999999999999999999999999999999999999999999999999999999999999999999999999"

func newCodec(t *testing.T, encoding, policy string) *Codec {
	t.Helper()
	c, err := NewCodec(&cryptoconfig.CryptoOptions{
		Hash:           cryptoconfig.HashPoseidon2,
		SecretEncoding: encoding,
		OrderIDPolicy:  policy,
		TreeDepth:      20,
	})
	require.NoError(t, err)
	return c
}

func TestSecretToFieldDecimal(t *testing.T) {
	c := newCodec(t, cryptoconfig.SecretEncodingDecimal, cryptoconfig.OrderIDPolicyReduce)

	cases := []struct {
		name    string
		secret  string
		want    string
		wantErr bool
	}{
		{"十进制", "12345", "12345", false},
		{"十六进制", "0xff", "255", false},
		{"首尾空白", "  42 ", "42", false},
		{"等于模数归约为零", types.FieldModulus().String(), "", true},
		{"非数字", "hunter2", "", true},
		{"空字符串", "", "", true},
		{"负数", "-5", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := c.SecretToField(tc.secret)
			if tc.wantErr {
				require.ErrorIs(t, err, types.ErrInvalidWitnessInput)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got.Decimal())
		})
	}
}

func TestSecretToFieldUTF8Bytes(t *testing.T) {
	c := newCodec(t, cryptoconfig.SecretEncodingUTF8Bytes, cryptoconfig.OrderIDPolicyReduce)

	got, err := c.SecretToField("ab")
	require.NoError(t, err)
	require.Equal(t, "24930", got.Decimal()) // 0x6162

	// 同一字符串在不同编码下结果不同
	dec := newCodec(t, cryptoconfig.SecretEncodingDecimal, cryptoconfig.OrderIDPolicyReduce)
	a, err := c.SecretToField("12")
	require.NoError(t, err)
	b, err := dec.SecretToField("12")
	require.NoError(t, err)
	require.False(t, a.Equal(b))
}

func TestParseOrderIDPolicies(t *testing.T) {
	raw, ok := new(big.Int).SetString(bigOrderID, 10)
	require.True(t, ok)
	require.Equal(t, 1, raw.Cmp(types.FieldModulus()))

	t.Run("reduce 策略取模", func(t *testing.T) {
		c := newCodec(t, cryptoconfig.SecretEncodingDecimal, cryptoconfig.OrderIDPolicyReduce)
		got, err := c.ParseOrderID(bigOrderID)
		require.NoError(t, err)
		require.Equal(t, "5", got.Decimal())
	})

	t.Run("74 位订单号两种策略一致", func(t *testing.T) {
		reduce := newCodec(t, cryptoconfig.SecretEncodingDecimal, cryptoconfig.OrderIDPolicyReduce)
		reject := newCodec(t, cryptoconfig.SecretEncodingDecimal, cryptoconfig.OrderIDPolicyReject)
		a, err := reduce.ParseOrderID(ninesOrderID)
		require.NoError(t, err)
		b, err := reject.ParseOrderID(ninesOrderID)
		require.NoError(t, err)
		require.True(t, a.Equal(b))
		require.Equal(t, ninesOrderID, a.Decimal())
	})

	t.Run("reject 策略报错", func(t *testing.T) {
		c := newCodec(t, cryptoconfig.SecretEncodingDecimal, cryptoconfig.OrderIDPolicyReject)
		_, err := c.ParseOrderID(bigOrderID)
		require.ErrorIs(t, err, types.ErrOutOfRange)

		got, err := c.ParseOrderID("7")
		require.NoError(t, err)
		require.Equal(t, "7", got.Decimal())
	})

	t.Run("非法订单号", func(t *testing.T) {
		c := newCodec(t, cryptoconfig.SecretEncodingDecimal, cryptoconfig.OrderIDPolicyReduce)
		for _, s := range []string{"", "abc", "-1", "1.5"} {
			_, err := c.ParseOrderID(s)
			require.ErrorIs(t, err, types.ErrInvalidWitnessInput, s)
		}
	})
}

func TestOrderIDHashIsKeccakOfString(t *testing.T) {
	c := newCodec(t, cryptoconfig.SecretEncodingDecimal, cryptoconfig.OrderIDPolicyReduce)
	h := c.OrderIDHash("")
	// keccak256("")
	require.Equal(t, "c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470", hex.EncodeToString(h[:]))
	require.NotEqual(t, c.OrderIDHash("1"), c.OrderIDHash("01"))
}

func TestParseElementAndRandom(t *testing.T) {
	fe, err := ParseElement("0x0a")
	require.NoError(t, err)
	require.Equal(t, "10", fe.Decimal())

	_, err = ParseElement(types.FieldModulus().String())
	require.ErrorIs(t, err, types.ErrOutOfRange)

	a, err := RandomElement()
	require.NoError(t, err)
	b, err := RandomElement()
	require.NoError(t, err)
	require.False(t, a.IsZero())
	require.False(t, a.Equal(b))
}

func TestNewCodecRejectsUnknownOptions(t *testing.T) {
	_, err := NewCodec(&cryptoconfig.CryptoOptions{SecretEncoding: "base58", OrderIDPolicy: "reduce"})
	require.Error(t, err)
	_, err = NewCodec(&cryptoconfig.CryptoOptions{SecretEncoding: "decimal", OrderIDPolicy: "clamp"})
	require.Error(t, err)
}
