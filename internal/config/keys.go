package config

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// secretKeys are masked by ListValues and the CLI.
var secretKeys = map[string]bool{
	"llm.api_key":          true,
	"telegram.token":       true,
	"google.client_secret": true,
}

// keyKinds maps every settable dot-key to the kind of its Config field.
var keyKinds = collectKeys(reflect.TypeOf(Config{}), "")

func collectKeys(t reflect.Type, prefix string) map[string]reflect.Kind {
	out := make(map[string]reflect.Kind)
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, _, _ := strings.Cut(f.Tag.Get("koanf"), ",")
		if name == "" {
			continue
		}
		key := prefix + name
		ft := f.Type
		if ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if ft.Kind() == reflect.Struct {
			for k, kind := range collectKeys(ft, key+".") {
				out[k] = kind
			}
			continue
		}
		out[key] = ft.Kind()
	}
	return out
}

// IsSecretKey reports whether key holds a credential.
func IsSecretKey(key string) bool {
	return secretKeys[key]
}

// Keys returns every configuration key in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(keyKinds))
	for k := range keyKinds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func checkKey(key string) (reflect.Kind, error) {
	kind, ok := keyKinds[key]
	if !ok {
		return reflect.Invalid, fmt.Errorf("unknown config key: %s", key)
	}
	return kind, nil
}

// coerce parses value into the type key is decoded as.
func coerce(key, value string) (any, error) {
	kind, err := checkKey(key)
	if err != nil {
		return nil, err
	}
	switch kind {
	case reflect.String:
		return value, nil
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("%s takes true or false, got %q", key, value)
		}
		return b, nil
	case reflect.Int, reflect.Int64:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("%s takes a whole number, got %q", key, value)
		}
		return n, nil
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("%s takes a number, got %q", key, value)
		}
		return f, nil
	}
	return nil, fmt.Errorf("%s cannot be set from the command line", key)
}

// mask hides all but the last four characters of a secret.
func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "***" + s
	}
	return "***" + s[len(s)-4:]
}

// MaskSecrets returns a copy of flat with secret string values masked.
func MaskSecrets(flat map[string]any) map[string]any {
	out := make(map[string]any, len(flat))
	for k, v := range flat {
		if s, ok := v.(string); ok && secretKeys[k] {
			v = mask(s)
		}
		out[k] = v
	}
	return out
}

// plain dereferences optional fields so they print as values.
func plain(v any) any {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer {
		return v
	}
	if rv.IsNil() {
		return nil
	}
	return rv.Elem().Interface()
}
