package rpc

import "net/http"

type AuthType string

const (
	AuthTypeHeader AuthType = "header"
	AuthTypeQuery  AuthType = "query"
	AuthTypeBearer AuthType = "bearer"
)

// AuthConfig holds authentication configuration. Headers are sent in addition
// to Key/Value for services that need more than one credential header.
type AuthConfig struct {
	Type    AuthType          `json:"type"    yaml:"type"`
	Key     string            `json:"key"     yaml:"key"`
	Value   string            `json:"value"   yaml:"value"`
	Headers map[string]string `json:"headers" yaml:"headers"`
}

func (a *AuthConfig) apply(req *http.Request) {
	if a == nil {
		return
	}
	switch a.Type {
	case AuthTypeHeader:
		req.Header.Set(a.Key, a.Value)
	case AuthTypeBearer:
		req.Header.Set("Authorization", "Bearer "+a.Value)
	case AuthTypeQuery:
		q := req.URL.Query()
		q.Set(a.Key, a.Value)
		req.URL.RawQuery = q.Encode()
	}
	for k, v := range a.Headers {
		req.Header.Set(k, v)
	}
}
