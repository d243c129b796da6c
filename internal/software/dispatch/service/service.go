package service

import (
	"food-dispatch/internal/general/config"
	"food-dispatch/internal/general/logger"
	"food-dispatch/internal/general/rabbitmq"
	"food-dispatch/internal/ports"
)

// dispatchService holds all dependencies required by the Dispatch service:
// driver shifts, the live location index, candidate selection, the offer
// loop and delivery settlement.
type dispatchService struct {
	logger     *logger.Logger
	cfg        *config.Config
	uow        ports.UnitOfWork
	drivers    ports.DriverRepository
	sessions   ports.DriverSessionRepository
	coords     ports.CoordinatesRepository
	locHistory ports.LocationHistoryRepository
	orders     ports.OrderRepository
	events     ports.OrderEventRepository
	rejections ports.RejectionRepository
	wallets    ports.WalletRepository
	earnings   ports.EarningsRepository
	locStore   ports.LocationStore
	oracle     ports.DistanceOracle
	pub        *rabbitmq.MQPublisher
	rabbitmq   *rabbitmq.Client
	notifier   ports.DriverNotifier
}

// NewDispatchService constructs the service with required dependencies.
// oracle may be nil when no routing provider is configured; the selector
// then ranks by straight-line distance only.
func NewDispatchService(
	logger *logger.Logger,
	cfg *config.Config,
	uow ports.UnitOfWork,
	drivers ports.DriverRepository,
	sessions ports.DriverSessionRepository,
	coords ports.CoordinatesRepository,
	locHistory ports.LocationHistoryRepository,
	orders ports.OrderRepository,
	events ports.OrderEventRepository,
	rejections ports.RejectionRepository,
	wallets ports.WalletRepository,
	earnings ports.EarningsRepository,
	locStore ports.LocationStore,
	oracle ports.DistanceOracle,
	pub *rabbitmq.MQPublisher,
	rabbitmq *rabbitmq.Client,
	notifier ports.DriverNotifier,
) ports.DispatchService {
	return &dispatchService{
		logger:     logger,
		cfg:        cfg,
		uow:        uow,
		drivers:    drivers,
		sessions:   sessions,
		coords:     coords,
		locHistory: locHistory,
		orders:     orders,
		events:     events,
		rejections: rejections,
		wallets:    wallets,
		earnings:   earnings,
		locStore:   locStore,
		oracle:     oracle,
		pub:        pub,
		rabbitmq:   rabbitmq,
		notifier:   notifier,
	}
}
