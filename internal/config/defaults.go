package config

const (
	defaultDataDir               = "~/.local/share/folio/data"
	defaultLogDir                = "~/.local/share/folio/logs"
	defaultAPIBind               = "127.0.0.1:8000"
	defaultOCRURL                = "http://ml-pipeline:8080"
	defaultPostprocessingURL     = "http://postprocessing:8000"
	defaultCallbackBaseURL       = "http://backend:8000/api/v1"
	defaultRemotePathPrefix      = "/out/var/data"
	defaultMaxAttempts           = 6
	defaultBaseDelayMilliseconds = 500
	defaultMaxDelayMilliseconds  = 8000
	defaultConnectTimeoutSeconds = 5
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		OCR: OCR{
			URL: defaultOCRURL,
		},
		Postprocessing: Postprocessing{
			URL: defaultPostprocessingURL,
		},
		Pipeline: Pipeline{
			CallbackBaseURL:       defaultCallbackBaseURL,
			RemotePathPrefix:      defaultRemotePathPrefix,
			MaxAttempts:           defaultMaxAttempts,
			BaseDelayMilliseconds: defaultBaseDelayMilliseconds,
			MaxDelayMilliseconds:  defaultMaxDelayMilliseconds,
			ConnectTimeoutSeconds: defaultConnectTimeoutSeconds,
		},
		Ingest: Ingest{
			AllowedExtensions: []string{".jpg", ".jpeg", ".png", ".pdf"},
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
