package events

// Domain event topics.
const (
	TopicOrderCreated        = "order.created"
	TopicOrderNumberFallback = "order.number_fallback"
	TopicPriceFlagged        = "price.flagged"
)
