package config

const (
	defaultConfigPath       = "~/.config/imfpack/config.toml"
	projectConfigName       = "imfpack.toml"
	defaultOutputDir        = "."
	defaultLogDir           = "~/.local/share/imfpack/logs"
	defaultCreator          = "imfpack"
	defaultIssuer           = "imfpack"
	defaultContentKind      = "episode"
	defaultEditRate         = "24/1"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultCleanupOnFailure = true
)

// ContentKinds lists the content kinds a composition may declare.
var ContentKinds = []string{"episode"}

// Default returns a Config populated with repository defaults. Creator and
// issuer stay empty so environment fallbacks can apply during normalize.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			StateDir:  defaultStateDir(),
			LogDir:    defaultLogDir,
		},
		Package: Package{
			ContentKind:      defaultContentKind,
			EditRate:         defaultEditRate,
			CleanupOnFailure: defaultCleanupOnFailure,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
