package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/palengke-dev/farmgate-api/internal/cart"
	"github.com/palengke-dev/farmgate-api/internal/events"
	"github.com/palengke-dev/farmgate-api/internal/ordernum"
	"github.com/palengke-dev/farmgate-api/internal/store"
)

type fakeStore struct {
	mu     sync.Mutex
	stocks map[string]store.StockInfo
	orders []store.Order

	stocksErr error
	insertErr error
	failTimes int

	insertCalls int
	latestCalls int
}

func (f *fakeStore) ProductStocks(_ context.Context, ids []string) (map[string]store.StockInfo, error) {
	if f.stocksErr != nil {
		return nil, f.stocksErr
	}
	out := map[string]store.StockInfo{}
	for _, id := range ids {
		if info, ok := f.stocks[id]; ok {
			out[id] = info
		}
	}
	return out, nil
}

func (f *fakeStore) InsertOrder(_ context.Context, o store.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertCalls++
	if f.failTimes > 0 {
		f.failTimes--
		return store.ErrDuplicateOrderNumber
	}
	if f.insertErr != nil {
		return f.insertErr
	}
	f.orders = append(f.orders, o)
	return nil
}

// LatestOrderNumber and OrderNumberInUse make fakeStore double as the
// allocator's store, mirroring how the real Store serves both.
func (f *fakeStore) LatestOrderNumber(_ context.Context, _, _ time.Time) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latestCalls++
	for i := len(f.orders) - 1; i >= 0; i-- {
		if !ordernum.IsFallback(f.orders[i].OrderNumber) {
			return f.orders[i].OrderNumber, nil
		}
	}
	return "", ordernum.ErrNoOrders
}

func (f *fakeStore) OrderNumberInUse(_ context.Context, number string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		if o.OrderNumber == number {
			return true, nil
		}
	}
	return false, nil
}

type memEventStore struct {
	mu     sync.Mutex
	events []events.Event
}

func (m *memEventStore) InsertDomainEvent(_ context.Context, topic, aggregateID string, payload []byte) (events.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev := events.Event{ID: "ev", Topic: topic, AggregateID: aggregateID, Payload: json.RawMessage(payload)}
	m.events = append(m.events, ev)
	return ev, nil
}

func newService(fs *fakeStore, es *memEventStore) *Service {
	return &Service{
		Store:  fs,
		Alloc:  &ordernum.Allocator{Store: fs},
		Quotes: cart.QuoteService{PlatformFeeRate: 0.02, VATRate: 0.12, Currency: "PHP"},
		Bus:    &events.Bus{Store: es},
	}
}

func feeOf(v float64) *float64 { return &v }

func TestPlaceHappyPath(t *testing.T) {
	fs := &fakeStore{stocks: map[string]store.StockInfo{
		"p1": {Stock: 10, MinimumOrderQty: 1},
	}}
	es := &memEventStore{}
	svc := newService(fs, es)

	res, err := svc.Place(context.Background(), Request{
		BuyerID:     "buyer-1",
		Items:       []cart.LineItem{{ProductID: "p1", UnitPrice: 100, Quantity: 2}},
		ShippingFee: feeOf(50),
		PaymentRef:  "pay-123",
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.OrderID)
	require.Regexp(t, `^FTM-\d{8}-0001$`, res.OrderNumber)
	require.Equal(t, 278.48, res.Breakdown.FinalPrice)

	require.Len(t, fs.orders, 1)
	require.Equal(t, "pay-123", fs.orders[0].PaymentRef)
	require.Len(t, fs.orders[0].Items, 1)
	require.Equal(t, 200.0, fs.orders[0].Items[0].Subtotal)

	require.Len(t, es.events, 1)
	require.Equal(t, events.TopicOrderCreated, es.events[0].Topic)
}

func TestPlaceBlocksOnAuthoritativeStock(t *testing.T) {
	// Client snapshot claims plenty of stock; the store disagrees.
	fs := &fakeStore{stocks: map[string]store.StockInfo{
		"p1": {Stock: 1, MinimumOrderQty: 1},
		"p2": {Stock: 100, MinimumOrderQty: 10},
	}}
	svc := newService(fs, &memEventStore{})

	big := 100
	res, err := svc.Place(context.Background(), Request{
		BuyerID: "buyer-1",
		Items: []cart.LineItem{
			{ProductID: "p1", UnitPrice: 10, Quantity: 5, Stock: &big},
			{ProductID: "p2", UnitPrice: 10, Quantity: 2},
		},
		ShippingFee: feeOf(0),
	})
	require.ErrorIs(t, err, ErrCartInvalid)
	require.Len(t, res.Report.Errors, 2)
	require.Empty(t, fs.orders, "no order may be written for an invalid cart")
}

func TestPlaceUnknownProductBlocked(t *testing.T) {
	fs := &fakeStore{stocks: map[string]store.StockInfo{}}
	svc := newService(fs, &memEventStore{})

	_, err := svc.Place(context.Background(), Request{
		BuyerID:     "buyer-1",
		Items:       []cart.LineItem{{ProductID: "ghost", UnitPrice: 10, Quantity: 1}},
		ShippingFee: feeOf(0),
	})
	require.ErrorIs(t, err, ErrCartInvalid)
}

func TestPlaceWriteFailureAfterCapture(t *testing.T) {
	fs := &fakeStore{
		stocks:    map[string]store.StockInfo{"p1": {Stock: 10, MinimumOrderQty: 1}},
		insertErr: errors.New("connection lost"),
	}
	svc := newService(fs, &memEventStore{})

	_, err := svc.Place(context.Background(), Request{
		BuyerID:     "buyer-1",
		Items:       []cart.LineItem{{ProductID: "p1", UnitPrice: 100, Quantity: 1}},
		ShippingFee: feeOf(0),
		PaymentRef:  "pay-999",
	})
	require.ErrorIs(t, err, ErrOrderWriteAfterCapture)

	// Without a captured payment the raw failure surfaces instead.
	_, err = svc.Place(context.Background(), Request{
		BuyerID:     "buyer-1",
		Items:       []cart.LineItem{{ProductID: "p1", UnitPrice: 100, Quantity: 1}},
		ShippingFee: feeOf(0),
	})
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrOrderWriteAfterCapture)
}

func TestPlaceReallocatesOnDuplicateNumber(t *testing.T) {
	fs := &fakeStore{
		stocks:    map[string]store.StockInfo{"p1": {Stock: 10, MinimumOrderQty: 1}},
		failTimes: 1,
	}
	es := &memEventStore{}
	svc := newService(fs, es)

	res, err := svc.Place(context.Background(), Request{
		BuyerID:     "buyer-1",
		Items:       []cart.LineItem{{ProductID: "p1", UnitPrice: 100, Quantity: 1}},
		ShippingFee: feeOf(0),
	})
	require.NoError(t, err)
	require.Len(t, fs.orders, 1)
	require.Equal(t, res.OrderNumber, fs.orders[0].OrderNumber)
}

func TestPlaceDuplicateRetriesEndWithInsert(t *testing.T) {
	// Every insert hits the unique index. The retry budget must be spent
	// on insert attempts; allocating a number that is never tried would
	// waste a round trip.
	fs := &fakeStore{
		stocks:    map[string]store.StockInfo{"p1": {Stock: 10, MinimumOrderQty: 1}},
		failTimes: 10,
	}
	svc := newService(fs, &memEventStore{})

	_, err := svc.Place(context.Background(), Request{
		BuyerID:     "buyer-1",
		Items:       []cart.LineItem{{ProductID: "p1", UnitPrice: 100, Quantity: 1}},
		ShippingFee: feeOf(0),
	})
	require.ErrorIs(t, err, store.ErrDuplicateOrderNumber)
	require.Equal(t, 3, fs.insertCalls)
	// One allocation before the first insert, one per retried insert.
	require.Equal(t, 3, fs.latestCalls)
}

func TestPlaceEmptyCart(t *testing.T) {
	svc := newService(&fakeStore{}, &memEventStore{})
	_, err := svc.Place(context.Background(), Request{BuyerID: "b"})
	require.ErrorIs(t, err, cart.ErrEmptyCart)
}
