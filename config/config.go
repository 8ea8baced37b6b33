package config

import (
	"io/ioutil"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"gamehall.com/server/game"
)

// ServerConfig is the optional yaml file layered on top of environment
// variables. Missing file means defaults.
type ServerConfig struct {
	RestAddr        string        `yaml:"rest-addr"`
	DefaultSettings game.Settings `yaml:"default-settings"`
}

func defaultConfig() *ServerConfig {
	return &ServerConfig{
		RestAddr: ":8080",
	}
}

func Load(filename string) (*ServerConfig, error) {
	config := defaultConfig()
	if filename == "" {
		return config, nil
	}
	data, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read config file %s", filename)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.Wrapf(err, "unable to parse config file %s", filename)
	}
	if config.RestAddr == "" {
		config.RestAddr = ":8080"
	}
	return config, nil
}
