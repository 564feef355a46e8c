package intent

// Handler IDs for the specialist agents
const (
	HandlerCropDoctor = "crop_doctor"
	HandlerMarket     = "market"
	HandlerScheme     = "scheme"
	HandlerWeather    = "weather"
	HandlerSoil       = "soil"
	HandlerGeneral    = "general"
)

// routingTable maps each intent to its handler
var routingTable = map[Intent]string{
	IntentCropDisease:      HandlerCropDoctor,
	IntentMarketPrice:      HandlerMarket,
	IntentGovernmentScheme: HandlerScheme,
	IntentWeather:          HandlerWeather,
	IntentSoilHealth:       HandlerSoil,
	IntentGeneral:          HandlerGeneral,
}

// Route returns the handler IDs for a classification: the primary
// intent's handler, plus the secondary's when it differs. The result
// is never empty.
func Route(c Classification) []string {
	primary, ok := routingTable[c.Intent]
	if !ok {
		primary = HandlerGeneral
	}

	handlers := []string{primary}

	if c.Secondary != "" {
		if secondary, ok := routingTable[c.Secondary]; ok && secondary != primary {
			handlers = append(handlers, secondary)
		}
	}

	return handlers
}

// Handlers returns all known handler IDs
func Handlers() []string {
	return []string{
		HandlerCropDoctor, HandlerMarket, HandlerScheme,
		HandlerWeather, HandlerSoil, HandlerGeneral,
	}
}
