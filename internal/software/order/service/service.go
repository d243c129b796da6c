package service

import (
	"food-dispatch/internal/general/config"
	"food-dispatch/internal/general/logger"
	"food-dispatch/internal/general/rabbitmq"
	"food-dispatch/internal/general/websocket"
	"food-dispatch/internal/ports"
)

// orderService encapsulates the order lifecycle logic and dependencies.
type orderService struct {
	logger     *logger.Logger
	cfg        *config.Config
	uow        ports.UnitOfWork
	orderRepo  ports.OrderRepository
	eventRepo  ports.OrderEventRepository
	walletRepo ports.WalletRepository
	coordsRepo ports.CoordinatesRepository
	pub        *rabbitmq.MQPublisher
	rabbitmq   *rabbitmq.Client
	websocket  *websocket.WebSocket
}

// NewOrderService creates a new instance of the OrderService with the provided dependencies.
func NewOrderService(
	logger *logger.Logger,
	cfg *config.Config,
	uow ports.UnitOfWork,
	orderRepo ports.OrderRepository,
	eventRepo ports.OrderEventRepository,
	walletRepo ports.WalletRepository,
	coordsRepo ports.CoordinatesRepository,
	pub *rabbitmq.MQPublisher,
	rabbitmq *rabbitmq.Client,
	ws *websocket.WebSocket,
) ports.OrderService {
	return &orderService{
		logger:     logger,
		cfg:        cfg,
		uow:        uow,
		orderRepo:  orderRepo,
		eventRepo:  eventRepo,
		walletRepo: walletRepo,
		coordsRepo: coordsRepo,
		pub:        pub,
		rabbitmq:   rabbitmq,
		websocket:  ws,
	}
}
