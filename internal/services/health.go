package services

// Health is a provider or subsystem readiness probe result.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy builds a ready probe result.
func Healthy(name, detail string) Health {
	return Health{Name: name, Ready: true, Detail: detail}
}

// Unhealthy builds a failed probe result.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}
