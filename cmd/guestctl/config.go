package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/tbourn/go-wedding-backend/internal/invite"
)

const (
	configFileName = "guestctl"
	configFileType = "yaml"
	envPrefix      = "GUESTCTL"

	cfgKeyServer         = "server"
	cfgKeyTimeout        = "timeout"
	cfgKeyPopupThreshold = "popup_threshold"
	cfgKeyStateFile      = "state_file"
	cfgKeyLogLevel       = "log_level"

	defaultServer  = "http://localhost:8080/api/v1"
	defaultTimeout = 15 * time.Second
)

// loadConfig reads guestctl.yaml (or file when set) and GUESTCTL_* env.
// A missing config file is not an error.
func loadConfig(file string) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault(cfgKeyServer, defaultServer)
	v.SetDefault(cfgKeyTimeout, defaultTimeout)
	v.SetDefault(cfgKeyPopupThreshold, invite.DefaultPopupThreshold)
	v.SetDefault(cfgKeyStateFile, defaultStateFile())
	v.SetDefault(cfgKeyLogLevel, "warn")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(configFileName)
		v.SetConfigType(configFileType)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".guestctl"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	if t := v.GetFloat64(cfgKeyPopupThreshold); t <= 0 || t > 1 {
		return nil, errors.New("popup_threshold must be in (0,1]")
	}
	if strings.TrimSpace(v.GetString(cfgKeyServer)) == "" {
		return nil, errors.New("server must not be empty")
	}
	return v, nil
}

func defaultStateFile() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".guestctl", "state.json")
	}
	return "guestctl-state.json"
}
