package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"food-dispatch/internal/domain/order"
	"food-dispatch/internal/general/contracts"
	"food-dispatch/internal/ports"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	dispatchBatchSize   = 50
	manualDispatchAlert = "manual_dispatch_required"
)

// StartBackgroundWorkers launches the offer coordinator: the retry loop
// that keeps re-offering waiting orders, the expired-offer sweep, and the
// MQ consumers for fresh dispatch requests and driver responses.
func (service *dispatchService) StartBackgroundWorkers(ctx context.Context) {
	go service.runDispatchLoop(ctx)
	go service.consumeDispatchRequests(ctx)
	go service.consumeDriverResponses(ctx)

	service.logger.Info(ctx, "dispatch_workers_started", "Dispatch background workers started",
		map[string]any{
			"retry_delay":    service.cfg.Dispatch.RetryDelay.String(),
			"offer_timeout":  service.cfg.Dispatch.OfferTimeout.String(),
			"max_rejections": service.cfg.Dispatch.MaxRejections,
		})
}

// runDispatchLoop ticks on the retry delay. Each tick first releases
// expired offers, then walks orders still waiting for a driver.
func (service *dispatchService) runDispatchLoop(ctx context.Context) {
	ticker := time.NewTicker(service.cfg.Dispatch.RetryDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			service.logger.Info(ctx, "dispatch_loop_stopped", "Dispatch loop stopped", nil)
			return
		case <-ticker.C:
			service.sweepExpiredOffers(ctx)
			service.offerWaitingOrders(ctx)
		}
	}
}

// sweepExpiredOffers withdraws offers whose accept window has passed. The
// silent driver gets an OFFER_TIMEOUT rejection so the selector skips him
// on the next round.
func (service *dispatchService) sweepExpiredOffers(ctx context.Context) {
	var expired []*order.Order
	err := service.uow.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		expired, err = service.orders.ListExpiredOffers(ctx, time.Now().UTC(), dispatchBatchSize)
		return err
	})
	if err != nil {
		service.logger.Error(ctx, "expired_offers_list_failed", "Failed to list expired offers", err, nil)
		return
	}

	for _, listed := range expired {
		var silentDriver string
		err := service.uow.WithinTx(ctx, func(ctx context.Context) error {
			// the list query ran in an earlier tx; re-read so a fresh
			// offer issued in between is left alone
			ord, err := service.orders.GetByID(ctx, listed.ID)
			if err != nil {
				return err
			}
			if ord.Status != order.StatusOffered || ord.OfferedDriverID == nil {
				return nil
			}
			if ord.OfferExpiresAt != nil && ord.OfferExpiresAt.After(time.Now().UTC()) {
				return nil
			}
			silentDriver = *ord.OfferedDriverID

			rejection, err := order.NewRejection(ord.ID, silentDriver, order.RejectionOfferTimeout)
			if err != nil {
				return err
			}
			if err := service.rejections.Append(ctx, rejection); err != nil {
				return err
			}
			return service.orders.WithdrawOffer(ctx, ord.ID, silentDriver)
		})
		if err != nil {
			service.logger.Error(ctx, "offer_expiry_failed", "Failed to withdraw expired offer", err,
				map[string]any{"order_id": listed.ID})
			continue
		}
		if silentDriver == "" {
			continue
		}

		service.logger.Info(ctx, "offer_expired", "Offer expired, order back in dispatch",
			map[string]any{"order_id": listed.ID, "driver_id": silentDriver})
	}
}

// offerWaitingOrders walks the OFFERING backlog and tries one offer per
// order. Per-order failures never stall the rest of the batch.
func (service *dispatchService) offerWaitingOrders(ctx context.Context) {
	var waiting []*order.Order
	err := service.uow.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		waiting, err = service.orders.ListAwaitingOffer(ctx, dispatchBatchSize)
		return err
	})
	if err != nil {
		service.logger.Error(ctx, "awaiting_offer_list_failed", "Failed to list orders awaiting offer", err, nil)
		return
	}

	for _, ord := range waiting {
		if err := service.tryOffer(ctx, ord.ID); err != nil {
			service.logger.Error(ctx, "offer_attempt_failed", "Failed to offer order to a driver", err,
				map[string]any{"order_id": ord.ID})
		}
	}
}

// tryOffer makes one offer attempt for a single order: escalate when the
// order has burned through its rejection budget or waited too long,
// otherwise pick the best connected candidate, stamp the offer and push it
// over the driver WebSocket. The push happens after commit; a driver who
// never sees it is caught by the expiry sweep.
func (service *dispatchService) tryOffer(ctx context.Context, orderID string) error {
	ctx = service.logger.WithOrderID(ctx, orderID)

	var (
		ord        *order.Order
		chosen     *ports.Candidate
		escalated  bool
		rejections int
	)

	err := service.uow.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		ord, err = service.orders.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		// Another worker or a driver response may have moved the order
		// between the list query and this transaction.
		if ord.Status != order.StatusOffering || ord.NeedsManualDispatch {
			return nil
		}

		rejections, err = service.rejections.CountForOrder(ctx, ord.ID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		waitedTooLong := ord.OfferingSince != nil && now.Sub(*ord.OfferingSince) >= service.cfg.Dispatch.EscalateAfter
		if rejections >= service.cfg.Dispatch.MaxRejections || waitedTooLong {
			escalated = true
			return service.orders.FlagManualDispatch(ctx, ord.ID)
		}

		candidates, err := service.selectCandidates(ctx, ord.ID, ord.PickupLatitude, ord.PickupLongitude, ord.CODAmount())
		if err != nil {
			return err
		}
		for i := range candidates {
			if !service.notifier.IsDriverConnected(candidates[i].DriverID) {
				service.logger.Debug(ctx, "candidate_not_connected", "Skipping candidate without a WebSocket",
					map[string]any{"driver_id": candidates[i].DriverID})
				continue
			}
			chosen = &candidates[i]
			break
		}
		if chosen == nil {
			service.logger.Debug(ctx, "no_candidates", "No reachable candidate this round",
				map[string]any{"considered": len(candidates)})
			return nil
		}

		return service.orders.OfferToDriver(ctx, ord.ID, chosen.DriverID, now.Add(service.cfg.Dispatch.OfferTimeout))
	})
	if err != nil {
		return err
	}

	if escalated {
		alert := contracts.AdminAlertMessage{
			OrderID:     ord.ID,
			OrderNumber: ord.OrderNumber,
			Kind:        manualDispatchAlert,
			Detail:      "No driver accepted the order, operator assignment needed",
			Rejections:  rejections,
			Timestamp:   time.Now().UTC(),
			Envelope: contracts.Envelope{
				CorrelationID: generateCorrelationID(),
				Producer:      "dispatch-service",
				SentAt:        time.Now().UTC(),
			},
		}
		if err := service.publishAdminAlert(ctx, alert); err != nil {
			service.logger.Error(ctx, "admin_alert_publish_failed", "Failed to publish manual dispatch alert", err,
				map[string]any{"order_id": ord.ID})
		}
		return nil
	}

	if chosen == nil {
		return nil
	}

	service.pushDeliveryOffer(ctx, ord, chosen)
	return nil
}

// pushDeliveryOffer sends the offer payload to the chosen driver.
func (service *dispatchService) pushDeliveryOffer(ctx context.Context, ord *order.Order, cand *ports.Candidate) {
	expiresAt := time.Now().UTC().Add(service.cfg.Dispatch.OfferTimeout).Format(time.RFC3339)

	offer := contracts.WSDriverDeliveryOffer{
		Type:        "delivery_offer",
		OfferID:     service.genOfferID(),
		OrderID:     ord.ID,
		OrderNumber: ord.OrderNumber,
		Pickup: contracts.GeoPoint{
			Lat:     ord.PickupLatitude,
			Lng:     ord.PickupLongitude,
			Address: ord.PickupAddress,
		},
		Dropoff: contracts.GeoPoint{
			Lat:     ord.DropoffLatitude,
			Lng:     ord.DropoffLongitude,
			Address: ord.DropoffAddress,
		},
		DeliveryFee:        ord.DeliveryFee,
		CODAmount:          ord.CODAmount(),
		DistanceToPickupKm: cand.StraightLineKM,
		EstimatedTripMin: service.estimateTripMinutes(
			ord.PickupLatitude, ord.PickupLongitude,
			ord.DropoffLatitude, ord.DropoffLongitude,
		),
		ExpiresAt: expiresAt,
		Envelope: contracts.Envelope{
			CorrelationID: generateCorrelationID(),
			Producer:      "dispatch-service",
			SentAt:        time.Now().UTC(),
		},
	}

	if err := service.notifier.PushDeliveryOffer(ctx, cand.DriverID, offer); err != nil {
		service.logger.Error(ctx, "offer_push_failed", "Failed to push offer to driver", err,
			map[string]any{"driver_id": cand.DriverID, "order_id": ord.ID})
		return
	}

	service.logger.Info(ctx, "offer_sent", "Delivery offer sent to driver",
		map[string]any{
			"driver_id":   cand.DriverID,
			"order_id":    ord.ID,
			"offer_id":    offer.OfferID,
			"distance_km": cand.StraightLineKM,
			"expires_at":  expiresAt,
		})
}

// consumeDispatchRequests reacts to paid orders immediately instead of
// waiting for the next retry tick.
func (service *dispatchService) consumeDispatchRequests(ctx context.Context) {
	err := service.rabbitmq.Consume(ctx, contracts.QueueDispatchRequests, "dispatch-service-requests", 10,
		func(ctx context.Context, d amqp.Delivery) error {
			var msg contracts.DispatchRequest
			if err := json.Unmarshal(d.Body, &msg); err != nil {
				service.logger.Error(ctx, "dispatch_request_decode_failed", "Failed to decode dispatch request", err,
					map[string]any{"routing_key": d.RoutingKey, "size": len(d.Body)})
				return nil // poison message, do not requeue
			}

			service.logger.Info(ctx, "dispatch_request_received", "Processing dispatch request from MQ",
				map[string]any{"order_id": msg.OrderID, "payment_method": msg.PaymentMethod})

			if err := service.tryOffer(ctx, msg.OrderID); err != nil {
				// The retry loop picks the order up again; no requeue.
				service.logger.Error(ctx, "dispatch_request_offer_failed", "Immediate offer attempt failed", err,
					map[string]any{"order_id": msg.OrderID})
			}
			return nil
		})
	if err != nil && !errors.Is(err, context.Canceled) {
		service.logger.Error(ctx, "dispatch_request_consumer_failed", "Dispatch request consumer stopped", err, nil)
	}
}

// consumeDriverResponses handles accept/decline messages coming in over
// MQ, e.g. from a gateway that fronts driver apps without direct HTTP
// access. Stale or mismatched responses are logged and dropped.
func (service *dispatchService) consumeDriverResponses(ctx context.Context) {
	err := service.rabbitmq.Consume(ctx, contracts.QueueDriverResponses, "dispatch-service-responses", 10,
		func(ctx context.Context, d amqp.Delivery) error {
			var msg contracts.DriverOfferResponse
			if err := json.Unmarshal(d.Body, &msg); err != nil {
				service.logger.Error(ctx, "driver_response_decode_failed", "Failed to decode driver response", err,
					map[string]any{"routing_key": d.RoutingKey, "size": len(d.Body)})
				return nil
			}

			in := ports.OfferDecisionInput{
				DriverID: msg.DriverID,
				OfferID:  msg.OfferID,
				OrderID:  msg.OrderID,
				Reason:   msg.Reason,
			}

			var err error
			if msg.Accepted {
				_, err = service.AcceptOffer(ctx, in)
			} else {
				_, err = service.RejectOffer(ctx, in)
			}
			if err != nil {
				service.logger.Error(ctx, "driver_response_apply_failed", "Failed to apply driver response", err,
					map[string]any{"order_id": msg.OrderID, "driver_id": msg.DriverID, "accepted": msg.Accepted})
			}
			return nil
		})
	if err != nil && !errors.Is(err, context.Canceled) {
		service.logger.Error(ctx, "driver_response_consumer_failed", "Driver response consumer stopped", err, nil)
	}
}
