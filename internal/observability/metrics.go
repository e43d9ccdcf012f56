package observability

// RED instruments shared by use cases, HTTP and collaborator calls.
const (
	MUsecaseRequests         MetricKey = "usecase_requests_total"
	MUsecaseDuration         MetricKey = "usecase_duration_seconds"
	MHTTPRequests            MetricKey = "http_requests_total"
	MHTTPRequestDuration     MetricKey = "http_request_duration_seconds"
	MExternalRequests        MetricKey = "external_requests_total"
	MExternalRequestDuration MetricKey = "external_request_duration_seconds"
)

// Business counters.
const (
	MOrderEvents          MetricKey = "order_events_total"            // {event}
	MPaymentTransactions  MetricKey = "payment_transactions_total"    // {method,status}
	MNotificationsDrained MetricKey = "notifications_delivered_total" // {kind,outcome}
)
