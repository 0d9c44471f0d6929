package autosell

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"raydium-engine/internal/domain"
	"raydium-engine/internal/storage/memory"
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) ExecuteSwap(ctx context.Context, req domain.SwapRequest) (domain.SwapResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(domain.SwapResult), args.Error(1)
}

type staticFeed struct {
	mu     sync.Mutex
	prices map[string]decimal.Decimal
	err    error
	calls  [][]string
}

func (f *staticFeed) GetPrices(_ context.Context, mints []string) (map[string]decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, mints)
	return f.prices, f.err
}

func (f *staticFeed) set(mint, price string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices = map[string]decimal.Decimal{mint: decimal.RequireFromString(price)}
}

func (f *staticFeed) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func startService(t *testing.T, svc *Service) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
	return cancel
}

func TestService_SellsAndRemovesSimpleEntry(t *testing.T) {
	store := memory.NewAutoSellStore()
	feed := &staticFeed{}
	feed.set("MintA", "1.5")

	gw := &mockGateway{}
	gw.On("ExecuteSwap", mock.Anything, mock.MatchedBy(func(req domain.SwapRequest) bool {
		return req.InputMint == "MintA" &&
			req.OutputMint == domain.WSOLMint.String() &&
			req.Amount.String() == "1000" &&
			req.SlippageBps == 150
	})).Return(domain.SwapResult{Signature: "sell-sig", OutputAmount: decimal.NewFromInt(1_500_000)}, nil).Once()

	svc := New(Options{
		Store:        store,
		Prices:       feed,
		Gateway:      gw,
		PollInterval: time.Millisecond,
		Logger:       quietLogger(),
	})
	startService(t, svc)

	e := simpleEntry("MintA", 10, 5)
	e.Slippage = decimal.RequireFromString("1.5")
	id, err := svc.Add(context.Background(), e)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(svc.Entries()) == 0 }, 2*time.Second, time.Millisecond)

	_, err = store.GetByID(context.Background(), id)
	assert.Error(t, err)
	gw.AssertExpectations(t)
}

func TestService_FailedSellKeepsEntry(t *testing.T) {
	store := memory.NewAutoSellStore()
	feed := &staticFeed{}
	feed.set("MintA", "2")

	var attempts atomic.Int32
	gw := &mockGateway{}
	gw.On("ExecuteSwap", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { attempts.Add(1) }).
		Return(domain.SwapResult{}, errors.New("route not found"))

	_, err := store.Insert(context.Background(), simpleEntry("MintA", 10, 5))
	require.NoError(t, err)

	svc := New(Options{
		Store:        store,
		Prices:       feed,
		Gateway:      gw,
		PollInterval: time.Millisecond,
		Logger:       quietLogger(),
	})
	startService(t, svc)

	require.Eventually(t, func() bool {
		return attempts.Load() >= 2
	}, 2*time.Second, time.Millisecond, "a failed sell is retried on a later tick")
	assert.Len(t, svc.Entries(), 1)
}

func TestService_SkipsPollWithoutEntries(t *testing.T) {
	feed := &staticFeed{}
	svc := New(Options{
		Store:        memory.NewAutoSellStore(),
		Prices:       feed,
		Gateway:      &mockGateway{},
		PollInterval: time.Millisecond,
		Logger:       quietLogger(),
	})
	startService(t, svc)

	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, feed.callCount())
}

func TestSwapRequestFor(t *testing.T) {
	e := gridEntry("MintA", domain.StopLossStatic, 10)
	e.UserID, e.WalletID = 4, 9
	e.Slippage = decimal.RequireFromString("0.5")

	req := SwapRequestFor(Trigger{Entry: e, Amount: decimal.RequireFromString("123.9")})
	assert.Equal(t, "123", req.Amount.String())
	assert.Equal(t, int64(50), req.SlippageBps)
	assert.Equal(t, int64(9), req.WalletID)
	assert.Equal(t, int64(4), req.UserID)
}
