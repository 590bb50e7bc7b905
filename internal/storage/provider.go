// Package storage reads the host's single-line indicator files and keeps the
// persisted "loaded" record.
package storage

// Provider is the interface for host state file access.
type Provider interface {
	// ReadIndicator returns the trimmed content of a host indicator file.
	// A missing file reads as the empty string.
	ReadIndicator(path string) string
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically replaces the file at path with content.
	Write(path string, content []byte) error
}

// IndicatorPaths names the host indicator files read on every selection.
type IndicatorPaths struct {
	FullPath    string `yaml:"full_path"`
	CurrentPath string `yaml:"current_path"`
	StartPath   string `yaml:"start_path"`
	CoreName    string `yaml:"core_name"`
}

// Indicators is one snapshot of the host indicator files.
type Indicators struct {
	FullPath    string
	CurrentPath string
	StartPath   string
	CoreName    string
}

// ReadIndicators reads all four indicator files through p.
func ReadIndicators(p Provider, paths IndicatorPaths) Indicators {
	return Indicators{
		FullPath:    p.ReadIndicator(paths.FullPath),
		CurrentPath: p.ReadIndicator(paths.CurrentPath),
		StartPath:   p.ReadIndicator(paths.StartPath),
		CoreName:    p.ReadIndicator(paths.CoreName),
	}
}
