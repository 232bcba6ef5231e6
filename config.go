package ghostzola

import "github.com/goliatone/go-ghostzola/internal/runtimeconfig"

var (
	ErrTargetFlavorUnknown      = runtimeconfig.ErrTargetFlavorUnknown
	ErrTargetLayoutUnknown      = runtimeconfig.ErrTargetLayoutUnknown
	ErrTargetExtensionInvalid   = runtimeconfig.ErrTargetExtensionInvalid
	ErrPagesDirInvalid          = runtimeconfig.ErrPagesDirInvalid
	ErrBodyFallbackUnknown      = runtimeconfig.ErrBodyFallbackUnknown
	ErrDescriptionLengthInvalid = runtimeconfig.ErrDescriptionLengthInvalid
	ErrMarkdownExtensionUnknown = runtimeconfig.ErrMarkdownExtensionUnknown
	ErrDatabaseNameRequired     = runtimeconfig.ErrDatabaseNameRequired
	ErrDatabaseNameInvalid      = runtimeconfig.ErrDatabaseNameInvalid
	ErrSpoolUnknown             = runtimeconfig.ErrSpoolUnknown
	ErrMediaOutputDirInvalid    = runtimeconfig.ErrMediaOutputDirInvalid
	ErrWorkersInvalid           = runtimeconfig.ErrWorkersInvalid
	ErrManifestNameInvalid      = runtimeconfig.ErrManifestNameInvalid
	ErrLoggingProviderRequired  = runtimeconfig.ErrLoggingProviderRequired
	ErrLoggingProviderUnknown   = runtimeconfig.ErrLoggingProviderUnknown
	ErrLoggingLevelInvalid      = runtimeconfig.ErrLoggingLevelInvalid
	ErrLoggingFormatInvalid     = runtimeconfig.ErrLoggingFormatInvalid
)

type (
	Config        = runtimeconfig.Config
	TargetConfig  = runtimeconfig.TargetConfig
	ContentConfig = runtimeconfig.ContentConfig
	ArchiveConfig = runtimeconfig.ArchiveConfig
	MediaConfig   = runtimeconfig.MediaConfig
	OutputConfig  = runtimeconfig.OutputConfig
	LoggingConfig = runtimeconfig.LoggingConfig
)

const (
	FlavorZola = runtimeconfig.FlavorZola
	FlavorHugo = runtimeconfig.FlavorHugo

	LayoutDated     = runtimeconfig.LayoutDated
	LayoutFlatDated = runtimeconfig.LayoutFlatDated
	LayoutFlat      = runtimeconfig.LayoutFlat

	BodyFallbackHTML      = runtimeconfig.BodyFallbackHTML
	BodyFallbackMobiledoc = runtimeconfig.BodyFallbackMobiledoc
)

// DefaultConfig returns the Zola dated layout with HTML body fallback.
func DefaultConfig() Config {
	return runtimeconfig.DefaultConfig()
}

// LoadConfig overlays the YAML file at path on DefaultConfig.
func LoadConfig(path string) (Config, error) {
	return runtimeconfig.Load(path)
}
