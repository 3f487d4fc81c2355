package config

import (
	"os"
	"strings"
	"time"
)

// BlockfrostConfig describes the chain indexer endpoint. URL defaults to the
// preset of the selected network.
type BlockfrostConfig struct {
	URL          string        `yaml:"url"            validate:"omitempty,url"`
	ProjectID    string        `yaml:"project_id"`
	ProjectIDEnv string        `yaml:"project_id_env"`
	Timeout      time.Duration `yaml:"timeout"`
	RPS          int           `yaml:"rps"            validate:"min=0"`
	Burst        int           `yaml:"burst"          validate:"min=0"`
}

// finalize fills secrets from the environment and substitutes ${VAR} references.
func (c *Config) finalize() {
	bf := &c.Blockfrost
	bf.ProjectID = substituteEnvVars(bf.ProjectID)
	if bf.ProjectID == "" && bf.ProjectIDEnv != "" {
		bf.ProjectID = os.Getenv(bf.ProjectIDEnv)
	}
	if bf.URL == "" {
		bf.URL = c.ActiveNetwork().BlockfrostURL
	}
	bf.URL = strings.TrimSuffix(bf.URL, "/")

	c.Wallet.SigningKeyFile = substituteEnvVars(c.Wallet.SigningKeyFile)
	c.IPFS.NFTStorageKey = substituteEnvVars(c.IPFS.NFTStorageKey)
	c.IPFS.PinataAPIKey = substituteEnvVars(c.IPFS.PinataAPIKey)
	c.IPFS.PinataSecret = substituteEnvVars(c.IPFS.PinataSecret)
	c.Services.Nats.URL = substituteEnvVars(c.Services.Nats.URL)
	c.Services.Nats.Password = substituteEnvVars(c.Services.Nats.Password)
	c.Services.HTTP.AuthToken = substituteEnvVars(c.Services.HTTP.AuthToken)
}

func substituteEnvVars(s string) string {
	if s == "" {
		return s
	}
	for {
		start := strings.Index(s, "${")
		if start == -1 {
			break
		}
		end := strings.Index(s[start:], "}")
		if end == -1 {
			break
		}
		end += start
		varName := s[start+2 : end]
		envValue := os.Getenv(varName)
		s = strings.ReplaceAll(s, "${"+varName+"}", envValue)
	}
	return s
}
