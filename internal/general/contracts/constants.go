package contracts

// Exchanges
const (
	ExchangeOrderTopic     = "order_topic"
	ExchangeDriverTopic    = "driver_topic"
	ExchangeLocationFanout = "location_fanout"
)

// Queues
const (
	QueueDispatchRequests     = "dispatch_requests"
	QueueOrderStatus          = "order_status"
	QueueDriverResponses      = "driver_responses"
	QueueDriverStatus         = "driver_status"
	QueueLocationUpdatesOrder = "location_updates_order"
	QueueAdminAlerts          = "admin_alerts"
)

// Routing patterns
const (
	RouteDispatchRequestPrefix = "order.dispatch."  // {payment_method}
	RouteOrderStatusPrefix     = "order.status."    // {status}
	RouteDriverRespPrefix      = "driver.response." // {order_id}
	RouteDriverStatusPrefix    = "driver.status."   // {driver_id}
	RouteAdminAlertPrefix      = "order.alert."     // {alert_kind}
)
