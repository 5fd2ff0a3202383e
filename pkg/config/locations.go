package config

import (
	"path/filepath"

	"gopkg.in/ini.v1"
)

// LocationsConfig is the LOCATIONS section: the application, log and ALC
// directories. A relative log_dir/alc_dir is resolved against app_dir, a
// relative app_dir against the process's working directory — mirroring
// LocationsConfig._to_path. Grounded on config/locations_config.py.
type LocationsConfig struct {
	AppDir string
	LogDir string
	AlcDir string
}

func loadLocationsConfig(file *ini.File, appDir string) (LocationsConfig, error) {
	section := file.Section("LOCATIONS")

	appDir, err := toAbsolutePath(appDir, "")
	if err != nil {
		return LocationsConfig{}, err
	}

	logDir, err := toAbsolutePath(section.Key("log_dir").MustString(DefaultLocationsLogDir), appDir)
	if err != nil {
		return LocationsConfig{}, err
	}

	alcDir, err := toAbsolutePath(section.Key("alc_dir").MustString(DefaultLocationsAlcDir), appDir)
	if err != nil {
		return LocationsConfig{}, err
	}

	return LocationsConfig{AppDir: appDir, LogDir: logDir, AlcDir: alcDir}, nil
}

func toAbsolutePath(path, base string) (string, error) {
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	abs, err := filepath.Abs(filepath.Join(base, path))
	if err != nil {
		return "", err
	}
	return abs, nil
}
