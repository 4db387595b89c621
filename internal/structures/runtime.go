package structures

import "net/http"

// CliFlags carries values parsed from the command line into the injector.
type CliFlags struct {
	ConfigPath string
	DebugMode  bool
}

type Route struct {
	Url     string
	Handler http.Handler
}
