package budget

// EstimateCost estimates the USD cost of a request totalling the given
// token count against the configured per-1K pricing for model.
//
// The actual completion length is unknown at planning time, so tokens are
// split between the input and output rates by the configured weight
// (70/30 by default). Unknown models price as the default budget model;
// if that is also unpriced the cost is zero rather than an error.
func (p *Planner) EstimateCost(totalTokens int, model string) float64 {
	pricing, ok := p.config.Budget.Pricing[model]
	if !ok {
		pricing, ok = p.config.Budget.Pricing[p.config.Budget.Model]
		if !ok {
			return 0
		}
	}

	inputWeight := p.config.Budget.InputCostWeight
	inputTokens := float64(totalTokens) * inputWeight
	outputTokens := float64(totalTokens) * (1 - inputWeight)

	inputCost := inputTokens / 1000 * pricing.InputPer1K
	outputCost := outputTokens / 1000 * pricing.OutputPer1K

	return inputCost + outputCost
}
