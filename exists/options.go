package exists

import (
	"strings"

	"github.com/ghetzel/go-stockutil/log"
	"github.com/ghetzel/go-stockutil/sliceutil"
	"github.com/ghetzel/go-stockutil/typeutil"
	"github.com/ghetzel/refcheck/filter"
)

var DefaultMessage = `{PATH} with id {VALUE} does not exists`
var DefaultSelect = []string{`id`}

const AutopopulateOption = `autopopulate`

// The canonical existence configuration for a single reference field.  Every field is always populated.
type Config struct {
	Exists  bool                   `json:"exists"`
	Refresh bool                   `json:"refresh"`
	Default bool                   `json:"default"`
	Select  []string               `json:"select"`
	Match   *filter.Filter         `json:"match"`
	Options map[string]interface{} `json:"options"`
	Message string                 `json:"message"`
}

// The configuration used for fields that have no (or an unrecognized) exists option.
func DefaultConfig() Config {
	return Config{
		Select:  append([]string{}, DefaultSelect...),
		Match:   filter.All(),
		Options: DefaultQueryOptions(),
		Message: DefaultMessage,
	}
}

func DefaultQueryOptions() map[string]interface{} {
	return map[string]interface{}{
		AutopopulateOption: false,
	}
}

// Options is the structured form of the exists option for callers declaring schemas in Go.  Unlike the
// map form, the zero value is enabled.
type Options struct {
	Disabled     bool
	Refresh      bool
	Default      bool
	Select       []string
	Match        interface{}
	QueryOptions map[string]interface{}
	Message      string
}

// Option is one of BooleanOption, PairOption or RecordOption.
type Option interface {
	apply(config *Config)
}

// The `true` / `false` shorthand.
type BooleanOption bool

func (self BooleanOption) apply(config *Config) {
	config.Exists = bool(self)
}

// The [enabled, message] shorthand.
type PairOption struct {
	Enabled bool
	Message string
}

func (self PairOption) apply(config *Config) {
	config.Exists = self.Enabled

	if self.Message != `` {
		config.Message = self.Message
	}
}

// The structured form; only keys present in the map override the defaults.
type RecordOption map[string]interface{}

func (self RecordOption) apply(config *Config) {
	config.Exists = true

	for key, value := range self {
		switch key {
		case `exists`:
			config.Exists = typeutil.V(value).Bool()
		case `refresh`:
			config.Refresh = typeutil.V(value).Bool()
		case `default`:
			config.Default = typeutil.V(value).Bool()
		case `select`:
			if sel := parseSelect(value); len(sel) > 0 {
				config.Select = sel
			}
		case `match`:
			if flt, ok := parseMatch(value); ok {
				config.Match = flt
			}
		case `options`:
			if opts, ok := value.(map[string]interface{}); ok {
				for k, v := range opts {
					config.Options[k] = v
				}
			}
		case `message`:
			if msg, ok := value.(string); ok && msg != `` {
				config.Message = msg
			}
		}
	}
}

// Classify a raw exists option.  The second return value is false if the input is not one of the
// recognized forms.
func ParseOption(raw interface{}) (Option, bool) {
	switch v := raw.(type) {
	case nil:
		return nil, false
	case bool:
		return BooleanOption(v), true
	case Option:
		return v, true
	case map[string]interface{}:
		return RecordOption(v), true
	case Options:
		return v.record(), true
	case *Options:
		if v != nil {
			return v.record(), true
		}

		return nil, false
	case []interface{}:
		return parsePair(v)
	case [2]interface{}:
		return parsePair(v[:])
	}

	return nil, false
}

// Normalize any raw exists option into a fully populated Config.  Unrecognized input yields the
// (disabled) default configuration.
func Normalize(raw interface{}) Config {
	switch v := raw.(type) {
	case Config:
		return v.filled()
	case *Config:
		if v != nil {
			return v.filled()
		}
	}

	config := DefaultConfig()

	if option, ok := ParseOption(raw); ok {
		option.apply(&config)
	} else if raw != nil {
		log.Debugf("exists: ignoring unrecognized option %T(%v)", raw, raw)
	}

	config.Options[AutopopulateOption] = false
	return config
}

func (self Config) filled() Config {
	defaults := DefaultConfig()

	if len(self.Select) == 0 {
		self.Select = defaults.Select
	} else {
		self.Select = append([]string{}, self.Select...)
	}

	if self.Match == nil {
		self.Match = defaults.Match
	} else {
		self.Match = self.Match.Copy()
	}

	options := defaults.Options

	for k, v := range self.Options {
		options[k] = v
	}

	options[AutopopulateOption] = false
	self.Options = options

	if self.Message == `` {
		self.Message = defaults.Message
	}

	return self
}

func (self Options) record() RecordOption {
	record := RecordOption{
		`exists`:  !self.Disabled,
		`refresh`: self.Refresh,
		`default`: self.Default,
	}

	if len(self.Select) > 0 {
		record[`select`] = self.Select
	}

	if self.Match != nil {
		record[`match`] = self.Match
	}

	if self.QueryOptions != nil {
		record[`options`] = self.QueryOptions
	}

	if self.Message != `` {
		record[`message`] = self.Message
	}

	return record
}

func parsePair(values []interface{}) (Option, bool) {
	if len(values) != 2 {
		return nil, false
	}

	pair := PairOption{}

	if enabled, ok := values[0].(bool); ok {
		pair.Enabled = enabled
	}

	if msg, ok := values[1].(string); ok {
		pair.Message = msg
	}

	return pair, true
}

func parseSelect(value interface{}) []string {
	var fields []string

	if vS, ok := value.(string); ok {
		fields = strings.FieldsFunc(vS, func(r rune) bool {
			return (r == ' ' || r == ',')
		})
	} else if typeutil.IsArray(value) {
		fields = sliceutil.Stringify(value)
	}

	out := make([]string, 0, len(fields))

	for _, field := range fields {
		if field = strings.TrimSpace(field); field == `` {
			continue
		} else if field == `_id` {
			field = `id`
		}

		if !sliceutil.ContainsString(out, field) {
			out = append(out, field)
		}
	}

	return out
}

func parseMatch(value interface{}) (*filter.Filter, bool) {
	switch v := value.(type) {
	case *filter.Filter:
		if v != nil {
			return v.Copy(), true
		}
	case filter.Filter:
		return v.Copy(), true
	case string:
		if flt, err := filter.Parse(v); err == nil {
			return flt, true
		} else {
			log.Debugf("exists: ignoring invalid match %q: %v", v, err)
		}
	case map[string]interface{}:
		if flt, err := filter.FromMap(v); err == nil {
			return flt, true
		} else {
			log.Debugf("exists: ignoring invalid match: %v", err)
		}
	}

	return nil, false
}
