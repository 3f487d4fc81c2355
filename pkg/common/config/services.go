package config

import (
	"net"
	"strconv"

	"github.com/fystack/identity-minter/pkg/common/enum"
)

type Services struct {
	HTTP HTTPConfig `yaml:"http"`
	Nats NatsConfig `yaml:"nats"`
	KVS  KVSConfig  `yaml:"kvstore"`
}

type HTTPConfig struct {
	// 0.0.0.0 listens on every interface
	Host string `yaml:"host"       validate:"omitempty,hostname|ip"`
	Port int    `yaml:"port"       validate:"required,min=1,max=65535"`
	// bearer token for the wallet routes; empty leaves them open
	AuthToken string `yaml:"auth_token"`
}

func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, strconv.Itoa(h.Port))
}

// Loopback reports whether the listener is reachable from this machine only.
func (h HTTPConfig) Loopback() bool {
	if h.Host == "localhost" {
		return true
	}
	ip := net.ParseIP(h.Host)
	return ip != nil && ip.IsLoopback()
}

type NatsConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
	Username      string `yaml:"username"`
	Password      string `yaml:"password"`
}

type KVSConfig struct {
	Type   enum.KVStoreType `yaml:"type"   validate:"required,oneof=badger"`
	Badger BadgerConfig     `yaml:"badger"`
}

type BadgerConfig struct {
	Directory string `yaml:"directory" validate:"required"`
	Prefix    string `yaml:"prefix"`
}
