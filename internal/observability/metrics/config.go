package metrics

// Config identifies the emitting service on every metric.
type Config struct {
	ServiceName string
	Environment string
}
