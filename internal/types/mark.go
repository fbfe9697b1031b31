package types

// SignalOutcomeOrderPlaced is the outcome of a signal that became an order.
const SignalOutcomeOrderPlaced = "order_placed"

// Mark records a signal, the bar that produced it and what the order manager did with it.
// Outcome is SignalOutcomeOrderPlaced or the reason the signal was dropped.
type Mark struct {
	Bar     MarketData `yaml:"bar" json:"bar"`
	Signal  Signal     `yaml:"signal" json:"signal"`
	Outcome string     `yaml:"outcome" json:"outcome"`
}
