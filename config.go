package refcheck

import (
	"io/ioutil"

	"github.com/ghodss/yaml"
)

type Configuration struct {
	Backend      string                   `json:"backend"`
	Address      string                   `json:"address,omitempty"`
	Schemata     []string                 `json:"schemata,omitempty"`
	Environments map[string]Configuration `json:"environments,omitempty"`
}

func LoadConfigFile(path string) (Configuration, error) {
	config := Configuration{}

	if data, err := ioutil.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &config); err != nil {
			return config, err
		}
	} else {
		return config, err
	}

	return config, nil
}

// Return the configuration with the values of the named environment (if any) overlaid on top of it.
func (self Configuration) ForEnv(env string) Configuration {
	config := Configuration{
		Backend:  self.Backend,
		Address:  self.Address,
		Schemata: self.Schemata,
	}

	if env == `` {
		return config
	}

	if e, ok := self.Environments[env]; ok {
		if e.Backend != `` {
			config.Backend = e.Backend
		}

		if e.Address != `` {
			config.Address = e.Address
		}

		if len(e.Schemata) > 0 {
			config.Schemata = e.Schemata
		}
	}

	return config
}
