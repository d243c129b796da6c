package service

import (
	"context"
	"time"

	"food-dispatch/internal/domain/geo"
	"food-dispatch/internal/domain/order"
	"food-dispatch/internal/domain/wallet"
	"food-dispatch/internal/general/config"
	"food-dispatch/internal/general/logger"
	"food-dispatch/internal/general/rabbitmq"
	"food-dispatch/internal/ports"

	"github.com/shopspring/decimal"
)

type passUow struct{}

func (passUow) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeOrders struct {
	ports.OrderRepository
	byID            map[string]*order.Order
	created         []*order.Order
	confirmed       []string
	dispatchStarted []string
	cancelled       []string
}

func (f *fakeOrders) CreateOrder(ctx context.Context, o *order.Order) error {
	f.created = append(f.created, o)
	return nil
}

func (f *fakeOrders) GetByID(ctx context.Context, id string) (*order.Order, error) {
	o, ok := f.byID[id]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	return o, nil
}

func (f *fakeOrders) ConfirmPayment(ctx context.Context, orderID string, ts time.Time) error {
	f.confirmed = append(f.confirmed, orderID)
	return nil
}

func (f *fakeOrders) StartDispatch(ctx context.Context, orderID string, ts time.Time) error {
	f.dispatchStarted = append(f.dispatchStarted, orderID)
	return nil
}

func (f *fakeOrders) Cancel(ctx context.Context, orderID, reason string, cancelledAt time.Time) error {
	f.cancelled = append(f.cancelled, orderID)
	return nil
}

type fakeWallets struct {
	ports.WalletRepository
	wallet   *wallet.Wallet
	balance  decimal.Decimal
	inserted []*wallet.Transaction
}

func (f *fakeWallets) GetOrCreateForOwner(ctx context.Context, ownerID string) (*wallet.Wallet, error) {
	return f.wallet, nil
}

func (f *fakeWallets) GetForOwnerLocked(ctx context.Context, ownerID string) (*wallet.Wallet, error) {
	return f.wallet, nil
}

func (f *fakeWallets) UpdateBalance(ctx context.Context, walletID string, balance decimal.Decimal) error {
	f.balance = balance
	return nil
}

func (f *fakeWallets) InsertTransaction(ctx context.Context, tx *wallet.Transaction) error {
	f.inserted = append(f.inserted, tx)
	return nil
}

type fakeCoords struct {
	ports.CoordinatesRepository
	upserted []geo.Coordinate
}

func (f *fakeCoords) UpsertForRestaurant(ctx context.Context, restaurantID string, coord geo.Coordinate, makeCurrent bool) (string, time.Time, error) {
	f.upserted = append(f.upserted, coord)
	return "coord-1", time.Now().UTC(), nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Dispatch.OfferTimeout = 30 * time.Second
	return cfg
}

func newTestService(orders *fakeOrders, wallets *fakeWallets, coords *fakeCoords) ports.OrderService {
	// zero-value client makes every publish a logged no-op
	pub := rabbitmq.NewMQPublisher(&rabbitmq.Client{})
	return NewOrderService(
		logger.New("test"),
		testConfig(),
		passUow{},
		orders,
		nil,
		wallets,
		coords,
		pub,
		nil,
		nil,
	)
}
