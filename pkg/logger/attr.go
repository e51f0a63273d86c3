package logger

import (
	"log/slog"
	"time"
)

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// RequestID records the request identifier under the key "request_id".
func RequestID(id string) slog.Attr {
	return slog.String("request_id", id)
}

// OrganizationID records the tenant the log line is about.
func OrganizationID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("organization_id", id)
}

func PlanID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("plan_id", id)
}

// BatchID records a postage batch id. Empty ids are dropped.
func BatchID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("batch_id", id)
}

func Depth(d int) slog.Attr {
	return slog.Int("depth", d)
}

// Amount records a token or money amount in its string form to keep
// big integers intact.
func Amount(v any) slog.Attr {
	return slog.Any("amount", v)
}

func Provider(name string) slog.Attr {
	return slog.String("provider", name)
}

func EventType(eventType string) slog.Attr {
	return slog.String("event_type", eventType)
}

func EventID(id string) slog.Attr {
	return slog.String("event_id", id)
}

func MerchantTransactionID(id string) slog.Attr {
	return slog.String("merchant_transaction_id", id)
}

func Job(name string) slog.Attr {
	return slog.String("job", name)
}

func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}
