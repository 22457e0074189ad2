package camera

// Preset names for common configurations
const (
	PresetDefault = "default"
	PresetFast    = "fast"
	PresetHD      = "hd"
	PresetDim     = "dim"
)

// Presets returns all available preset configurations.
func Presets() map[string]Config {
	return map[string]Config{
		PresetDefault: DefaultConfig(),
		PresetFast:    FastConfig(),
		PresetHD:      HDConfig(),
		PresetDim:     DimConfig(),
	}
}

// PresetNames returns the list of available preset names.
func PresetNames() []string {
	return []string{PresetDefault, PresetFast, PresetHD, PresetDim}
}

// GetPreset returns a preset config by name, or nil if not found.
func GetPreset(name string) *Config {
	if cfg, ok := Presets()[name]; ok {
		return &cfg
	}
	return nil
}

// FastConfig trades detail for smaller uploads on slow links.
func FastConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 320
	cfg.Height = 240
	cfg.PreviewQuality = 50
	return cfg
}

// HDConfig captures 720p for models that benefit from hand detail.
func HDConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 1280
	cfg.Height = 720
	return cfg
}

// DimConfig raises brightness for poorly lit rooms.
func DimConfig() Config {
	cfg := DefaultConfig()
	cfg.Brightness = 0.7
	return cfg
}
