package payment

// EventType is the provider independent kind of a webhook event.
type EventType string

const (
	// EventCheckoutCompleted: the customer finished the hosted checkout
	// and the first period is paid.
	EventCheckoutCompleted EventType = "checkout.completed"
	// EventInvoicePaid: a subscription invoice was paid. The first invoice
	// carries BillingReasonSubscriptionCreate.
	EventInvoicePaid EventType = "invoice.paid"
	// EventIgnored is any event the billing flows do not act on.
	EventIgnored EventType = "ignored"
)

const (
	BillingReasonSubscriptionCreate = "subscription_create"
	BillingReasonSubscriptionCycle  = "subscription_cycle"
)

// Event is a verified, normalized provider notification.
type Event struct {
	ID           string
	Provider     string
	Type         EventType
	ProviderType string

	MerchantTransactionID string
	InvoiceID             string
	BillingReason         string
	AmountPaid            int64
	Currency              string

	Raw []byte
}

// IsInitialInvoice reports an invoice that belongs to the checkout itself.
func (e *Event) IsInitialInvoice() bool {
	return e.Type == EventInvoicePaid && e.BillingReason == BillingReasonSubscriptionCreate
}
