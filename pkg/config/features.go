package config

import (
	"fmt"
	"log"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Features holds the capability flags for callbacks the fuller bot variant
// supports. Both default to enabled; the file only exists to switch them off.
type Features struct {
	EditSubmission bool `yaml:"edit_submission"`
	LineChart      bool `yaml:"line_chart"`
}

// DefaultFeatures returns the flag set used when no features file is configured.
func DefaultFeatures() *Features {
	return &Features{
		EditSubmission: true,
		LineChart:      true,
	}
}

var (
	loadedFeatures *Features
	featuresMutex  sync.RWMutex
)

// LoadFeatures reads the optional YAML feature-flag file. A missing file is
// not an error; the defaults apply.
func LoadFeatures(filePath string) error {
	if filePath == "" {
		setFeatures(DefaultFeatures())
		return nil
	}

	yamlFile, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("Features file %s not found, using defaults.", filePath)
			setFeatures(DefaultFeatures())
			return nil
		}
		return fmt.Errorf("failed to read features file '%s': %w", filePath, err)
	}

	// Start from the defaults so a file that names only one flag leaves the
	// others enabled.
	f := *DefaultFeatures()
	if err := yaml.Unmarshal(yamlFile, &f); err != nil {
		return fmt.Errorf("failed to unmarshal YAML from '%s': %w", filePath, err)
	}

	setFeatures(&f)
	log.Printf("Features loaded from %s: edit_submission=%t line_chart=%t", filePath, f.EditSubmission, f.LineChart)
	return nil
}

func setFeatures(f *Features) {
	featuresMutex.Lock()
	loadedFeatures = f
	featuresMutex.Unlock()
}

// GetFeatures returns the loaded flag set, falling back to defaults.
func GetFeatures() *Features {
	featuresMutex.RLock()
	defer featuresMutex.RUnlock()

	if loadedFeatures == nil {
		return DefaultFeatures()
	}
	return loadedFeatures
}
