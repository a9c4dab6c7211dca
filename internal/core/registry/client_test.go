package registry

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ztomic/v1/pkg/types"
)

// fakeRegistry 内存版注册中心 REST 服务
type fakeRegistry struct {
	mu      sync.Mutex
	intents map[string]map[string]interface{}
	users   map[string]types.UserRecord
	lists   atomic.Int32
	gets    atomic.Int32
	failing atomic.Bool
	// hideFromList 这些 id 不出现在列表中，只能按 id 查到
	hideFromList map[string]bool
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		intents: map[string]map[string]interface{}{
			"7": {
				"id": 7, "initiator": "alice", "fromToken": "ETH", "toToken": "USDC",
				"on-chain": "sepolia", "amount": "1.5", "status": "pending",
				"selectedCounterparty": map[string]string{"identity": "bob", "on-chain": "0xb0b"},
			},
		},
		users: map[string]types.UserRecord{
			"bob": {UserName: "bob", PubKeyX: "0x01", PubKeyY: "0x02"},
			"eve": {UserName: "eve"},
		},
		hideFromList: map[string]bool{},
	}
}

func (f *fakeRegistry) setStatus(id string, status types.OrderStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.intents[id]["status"] = string(status)
}

func (f *fakeRegistry) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if f.failing.Load() {
		http.Error(w, "boom", http.StatusInternalServerError)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/api")
	switch {
	case path == "/intents" && r.Method == http.MethodGet:
		f.lists.Add(1)
		list := make([]map[string]interface{}, 0, len(f.intents))
		for id, it := range f.intents {
			if !f.hideFromList[id] {
				list = append(list, it)
			}
		}
		_ = json.NewEncoder(w).Encode(list)

	case strings.HasPrefix(path, "/intents/"):
		id := strings.TrimPrefix(path, "/intents/")
		it, ok := f.intents[id]
		if !ok {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}
		if r.Method == http.MethodPut {
			var body map[string]interface{}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			for k, v := range body {
				it[k] = v
			}
		} else {
			f.gets.Add(1)
		}
		_ = json.NewEncoder(w).Encode(it)

	case strings.HasPrefix(path, "/users/"):
		rec, ok := f.users[strings.TrimPrefix(path, "/users/")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(rec)

	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, reg *fakeRegistry) *Client {
	t.Helper()
	srv := httptest.NewServer(reg)
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL+"/", time.Second, nil)
	require.NoError(t, err)
	return c
}

func TestClientOrder(t *testing.T) {
	reg := newFakeRegistry()
	c := newTestClient(t, reg)
	ctx := t.Context()

	o, err := c.Order(ctx, "7")
	require.NoError(t, err)
	require.Equal(t, types.SwapOrder{
		ID: "7", Initiator: "alice", Counterparty: "bob", FromToken: "ETH", ToToken: "USDC",
		Amount: "1.5", Chain: "sepolia", Status: types.OrderPending,
	}, o)

	_, err = c.Order(ctx, "404")
	require.ErrorIs(t, err, types.ErrNotFound)

	orders, err := c.Orders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)

	updated, err := c.UpdateOrderStatus(ctx, "7", types.OrderActive)
	require.NoError(t, err)
	require.Equal(t, types.OrderActive, updated.Status)
	require.Equal(t, "bob", updated.Counterparty)
}

func TestClientUser(t *testing.T) {
	c := newTestClient(t, newFakeRegistry())

	cases := []struct {
		name     string
		user     string
		notFound bool
	}{
		{"有公钥", "bob", false},
		{"没有公钥", "eve", true},
		{"不存在", "mallory", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, err := c.User(t.Context(), tc.user)
			if tc.notFound {
				require.ErrorIs(t, err, types.ErrNotFound)
				return
			}
			require.NoError(t, err)
			require.Equal(t, "0x01", rec.PubKeyX)
		})
	}
}

func TestClientErrors(t *testing.T) {
	reg := newFakeRegistry()
	c := newTestClient(t, reg)
	reg.failing.Store(true)

	_, err := c.Orders(t.Context())
	require.True(t, errors.Is(err, ErrUnexpectedStatus))
	require.Contains(t, err.Error(), "500")

	_, err = NewClient("", time.Second, nil)
	require.Error(t, err)
}

func TestFlexID(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
		bad  bool
	}{
		{"数字", `12`, "12", false},
		{"字符串", `"abc"`, "abc", false},
		{"对象", `{}`, "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var id flexID
			err := json.Unmarshal([]byte(tc.raw), &id)
			if tc.bad {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, string(id))
		})
	}
}
