package models

// EventRequest injects a raw event through the HTTP API.
type EventRequest struct {
	Category  string `json:"category" validate:"required"`
	OriginID  string `json:"origin_id"`
	Timestamp int64  `json:"t"`
}

// TraceRequest fetches a chain trace by id.
type TraceRequest struct {
	ChainID string `param:"id" validate:"required"`
}

// SelectRequest asks the reinforcement selector to pick among candidate
// categories. Hour defaults to the current hour when omitted.
type SelectRequest struct {
	Categories []string `json:"categories" validate:"required,min=1"`
	Hour       *int     `json:"hour" validate:"omitempty,min=0,max=23"`
}

// ChainEventRequest appends a telemetry event to a chain.
type ChainEventRequest struct {
	ChainID      string `param:"id" validate:"required"`
	Kind         string `json:"kind" validate:"required,oneof=BOT_RESPONSE EXECUTION_EXECUTED EXECUTION_FAILED"`
	ExecutionRef string `json:"execution_ref"`
}
