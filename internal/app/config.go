package app

// Config holds the entrypoint's overrides. Zero values keep whatever the
// configuration file (or the defaults) say.
type Config struct {
	ConfigPath string // .hcl, .yaml or .yml

	LogFormat       string
	LogLevel        string
	Address         string
	HealthcheckPort int
	EvictOnComplete bool
}
