package dal

import (
	"net/url"
	"strings"

	"github.com/ghetzel/go-stockutil/stringutil"
)

type ConnectionString struct {
	URI     *url.URL
	Options map[string]interface{}
}

func (self *ConnectionString) String() string {
	return self.URI.String()
}

func (self *ConnectionString) Scheme() (string, string) {
	parts := strings.SplitN(self.URI.Scheme, `+`, 2)

	if len(parts) == 1 {
		return parts[0], ``
	} else {
		return parts[0], parts[1]
	}
}

func (self *ConnectionString) Backend() string {
	backend, _ := self.Scheme()
	return backend
}

func (self *ConnectionString) Protocol() string {
	_, protocol := self.Scheme()
	return protocol
}

func (self *ConnectionString) Host() string {
	return self.URI.Host
}

func (self *ConnectionString) Dataset() string {
	return strings.TrimPrefix(self.URI.Path, `/`)
}

func (self *ConnectionString) Credentials() (string, string, bool) {
	if self.URI.User != nil {
		password, ok := self.URI.User.Password()
		return self.URI.User.Username(), password, ok
	}

	return ``, ``, false
}

func (self *ConnectionString) HasOpt(key string) bool {
	_, ok := self.Options[key]
	return ok
}

func (self *ConnectionString) OptString(key string, fallback string) string {
	if v, ok := self.Options[key]; ok {
		if vConv, err := stringutil.ConvertToString(v); err == nil {
			return vConv
		}
	}

	return fallback
}

func (self *ConnectionString) OptBool(key string, fallback bool) bool {
	if v, ok := self.Options[key]; ok {
		if vConv, err := stringutil.ConvertToBool(v); err == nil {
			return vConv
		}
	}

	return fallback
}

func (self *ConnectionString) OptInt(key string, fallback int64) int64 {
	if v, ok := self.Options[key]; ok {
		if vConv, err := stringutil.ConvertToInteger(v); err == nil {
			return vConv
		}
	}

	return fallback
}

func ParseConnectionString(conn string) (ConnectionString, error) {
	if uri, err := url.Parse(conn); err == nil {
		return ConnectionString{
			URI:     uri,
			Options: optionsFromURI(uri),
		}, nil
	} else {
		return ConnectionString{}, err
	}
}

func optionsFromURI(uri *url.URL) map[string]interface{} {
	rv := make(map[string]interface{})

	for key, values := range uri.Query() {
		if len(values) > 0 {
			if len(values) == 1 {
				rv[key] = stringutil.Autotype(values[0])
			} else {
				vI := make([]interface{}, len(values))

				for i, vv := range values {
					vI[i] = stringutil.Autotype(vv)
				}

				rv[key] = vI
			}
		}
	}

	return rv
}
