package service

import (
	"food-dispatch/internal/ports"
)

// Service encapsulates the admin dashboard service logic and dependencies.
type adminService struct {
	uow          ports.UnitOfWork
	orderRepo    ports.OrderRepository
	driverRepo   ports.DriverRepository
	earningsRepo ports.EarningsRepository
}

// NewAdminService creates a new instance of the AdminService with the provided dependencies.
func NewAdminService(
	uow ports.UnitOfWork,
	orderRepo ports.OrderRepository,
	driverRepo ports.DriverRepository,
	earningsRepo ports.EarningsRepository,
) ports.AdminService {
	return &adminService{
		uow:          uow,
		orderRepo:    orderRepo,
		driverRepo:   driverRepo,
		earningsRepo: earningsRepo,
	}
}
