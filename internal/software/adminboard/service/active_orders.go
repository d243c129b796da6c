package service

import (
	"context"
	"strconv"

	"food-dispatch/internal/ports"
)

// GetActiveOrders returns a paginated list of in-flight orders.
func (service *adminService) GetActiveOrders(ctx context.Context, page, pageSize string) (ports.ActiveOrdersResult, error) {
	// convert page and pageSize to integers with fallback defaults
	pageInt, err := strconv.Atoi(page)
	if err != nil || pageInt < 1 {
		pageInt = 1
	}
	sizeInt, err := strconv.Atoi(pageSize)
	if err != nil || sizeInt < 1 {
		sizeInt = 10
	}

	var res ports.ActiveOrdersResult
	res.Page = pageInt
	res.PageSize = sizeInt

	// collect the page within a transaction
	err = service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		nActive, err := service.orderRepo.CountActive(txCtx)
		if err != nil {
			return err
		}
		res.TotalCount = nActive

		// page slice
		offset := (pageInt - 1) * sizeInt
		rows, err := service.orderRepo.HydrateActiveRows(txCtx, offset, sizeInt)
		if err != nil {
			return err
		}
		res.Orders = rows

		return nil
	})
	if err != nil {
		return ports.ActiveOrdersResult{}, err
	}

	return res, nil
}
