package sim

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strategy-sandbox/execution"
	"strategy-sandbox/market"
	"strategy-sandbox/order"
)

type fillRecorder struct {
	mu    sync.Mutex
	fills []execution.Fill
}

func (r *fillRecorder) handle(id string, qty int64, price float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fills = append(r.fills, execution.Fill{OrderID: id, Qty: qty, Price: price})
}

func (r *fillRecorder) all() []execution.Fill {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]execution.Fill(nil), r.fills...)
}

func limitReq(id string, side order.Side, price float64) execution.PlaceRequest {
	return execution.PlaceRequest{OrderID: id, Symbol: "NIFTY", Side: side, Qty: 2, Price: price, Type: order.TypeLimit}
}

func TestSandboxMarketOrderFillsImmediately(t *testing.T) {
	sb := NewSandbox(SandboxConfig{InitialBalance: 1000, FillMarketOrders: true})
	rec := &fillRecorder{}
	sb.OnFill(rec.handle)

	ack, err := sb.Place(execution.PlaceRequest{Symbol: "NIFTY", Side: order.SideBuy, Qty: 3, Price: 101.05, Type: order.TypeMarket})
	require.NoError(t, err)
	assert.Equal(t, "SBX-000001", ack.OrderID)
	assert.Equal(t, order.StatusPlaced, ack.InitialStatus)
	assert.Equal(t, []execution.Fill{{OrderID: "SBX-000001", Qty: 3, Price: 101.05}}, rec.all())

	bal, err := sb.Balance()
	require.NoError(t, err)
	assert.Equal(t, 1000.0, bal)
}

func TestSandboxRejects(t *testing.T) {
	sb := NewSandbox(SandboxConfig{InitialBalance: 1000})

	_, err := sb.Place(execution.PlaceRequest{Symbol: "NIFTY", Side: order.SideBuy, Qty: 0, Type: order.TypeMarket})
	assert.ErrorIs(t, err, execution.ErrExecutionRejected)

	_, err = sb.Place(limitReq("a", order.SideBuy, 0))
	assert.ErrorIs(t, err, execution.ErrExecutionRejected)

	_, err = sb.Place(limitReq("a", order.SideBuy, 100))
	require.NoError(t, err)
	_, err = sb.Place(limitReq("a", order.SideBuy, 100))
	assert.ErrorIs(t, err, execution.ErrExecutionRejected)

	sb.SetRejectFunc(func(execution.PlaceRequest) error { return errors.New("halted") })
	_, err = sb.Place(limitReq("b", order.SideBuy, 100))
	assert.ErrorIs(t, err, execution.ErrExecutionRejected)
	assert.Len(t, sb.Orders(), 1)
}

func TestSandboxCancel(t *testing.T) {
	sb := NewSandbox(SandboxConfig{})
	_, err := sb.Place(limitReq("a", order.SideBuy, 100))
	require.NoError(t, err)

	ok, err := sb.Cancel("a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = sb.Cancel("a")
	assert.False(t, ok)
	ok, _ = sb.Cancel("missing")
	assert.False(t, ok)

	assert.Error(t, sb.Fill("a", 1, 100))
}

func TestSandboxManualFill(t *testing.T) {
	sb := NewSandbox(SandboxConfig{})
	rec := &fillRecorder{}
	sb.OnFill(rec.handle)
	_, err := sb.Place(limitReq("a", order.SideSell, 100))
	require.NoError(t, err)

	require.NoError(t, sb.Fill("a", 1, 100))
	assert.Error(t, sb.Fill("a", 2, 100), "overfill")
	require.NoError(t, sb.Fill("a", 1, 100.5))
	assert.Error(t, sb.Fill("a", 1, 100), "order complete")
	assert.Error(t, sb.Fill("missing", 1, 100))
	assert.Len(t, rec.all(), 2)
}

func TestSandboxMatchBar(t *testing.T) {
	sb := NewSandbox(SandboxConfig{MatchLimitOrders: true})
	rec := &fillRecorder{}
	sb.OnFill(rec.handle)

	_, err := sb.Place(limitReq("buy", order.SideBuy, 99))
	require.NoError(t, err)
	_, err = sb.Place(limitReq("sell", order.SideSell, 102))
	require.NoError(t, err)
	other := limitReq("other", order.SideBuy, 200)
	other.Symbol = "BANKNIFTY"
	_, err = sb.Place(other)
	require.NoError(t, err)

	assert.Equal(t, 0, sb.MatchBar("NIFTY", market.Bar{High: 101, Low: 99.5}))
	assert.Equal(t, 1, sb.MatchBar("NIFTY", market.Bar{High: 101, Low: 98}))
	assert.Equal(t, 1, sb.MatchBar("NIFTY", market.Bar{High: 102, Low: 101}))
	assert.Equal(t, 0, sb.MatchBar("NIFTY", market.Bar{High: 110, Low: 90}))

	fills := rec.all()
	require.Len(t, fills, 2)
	assert.Equal(t, execution.Fill{OrderID: "buy", Qty: 2, Price: 99}, fills[0])
	assert.Equal(t, execution.Fill{OrderID: "sell", Qty: 2, Price: 102}, fills[1])
}

func TestSandboxMatchDisabled(t *testing.T) {
	sb := NewSandbox(SandboxConfig{})
	_, err := sb.Place(limitReq("buy", order.SideBuy, 99))
	require.NoError(t, err)
	assert.Equal(t, 0, sb.MatchBar("NIFTY", market.Bar{High: 101, Low: 90}))
}

func TestSandboxAsyncFills(t *testing.T) {
	sb := NewSandbox(SandboxConfig{FillMarketOrders: true, AsyncFills: true})
	rec := &fillRecorder{}
	sb.OnFill(rec.handle)

	for i := 0; i < 5; i++ {
		_, err := sb.Place(execution.PlaceRequest{Symbol: "NIFTY", Side: order.SideBuy, Qty: 1, Price: 100, Type: order.TypeMarket})
		require.NoError(t, err)
	}
	sb.Wait()
	assert.Len(t, rec.all(), 5)
}
