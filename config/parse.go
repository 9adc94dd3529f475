package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/anisan-cli/anidl/icon"
	"github.com/anisan-cli/anidl/key"
	"github.com/sirupsen/logrus"
)

// ErrUnknownKey is returned by Parse for keys missing from Default.
var ErrUnknownKey = errors.New("unknown key")

var validators = map[string]func(v any) error{
	key.DownloaderWorkers:    positive,
	key.DownloaderChunkSize:  positive,
	key.NetworkRetries:       positive,
	key.NetworkRetryDelay:    duration,
	key.NetworkRetryMaxDelay: duration,
	key.NetworkTimeout:       duration,
	key.LogsLevel: func(v any) error {
		_, err := logrus.ParseLevel(v.(string))
		return err
	},
	key.IconsVariant: func(v any) error {
		if !icon.Valid(v.(string)) {
			return fmt.Errorf("expected one of %s", strings.Join(icon.AvailableVariants(), ", "))
		}
		return nil
	},
}

// Parse converts raw command line values into the type of the default value of k
// and validates the result.
func Parse(k string, raw []string) (any, error) {
	field, ok := Default[k]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, k)
	}

	if len(raw) == 0 {
		return nil, fmt.Errorf("no value given for %s", k)
	}

	var (
		v   any
		err error
	)

	switch field.Value.(type) {
	case string:
		v = raw[0]
	case int:
		v, err = strconv.Atoi(raw[0])
	case bool:
		v, err = strconv.ParseBool(raw[0])
	case []string:
		v = raw
	default:
		return nil, fmt.Errorf("%s has unsupported type %s", k, field.typeName())
	}

	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q", field.typeName(), raw[0])
	}

	if validate, ok := validators[k]; ok {
		if err := validate(v); err != nil {
			return nil, fmt.Errorf("invalid value for %s: %w", k, err)
		}
	}

	return v, nil
}

func positive(v any) error {
	if v.(int) <= 0 {
		return errors.New("must be greater than zero")
	}
	return nil
}

func duration(v any) error {
	d, err := time.ParseDuration(v.(string))
	if err != nil {
		return err
	}
	if d <= 0 {
		return errors.New("must be greater than zero")
	}
	return nil
}
