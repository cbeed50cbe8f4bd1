package config

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

func (v Validation) Err() error {
	if v.OK() {
		return nil
	}
	return errors.New("config validation failed:\n- " + strings.Join(v.Errors, "\n- "))
}

var (
	validate = newValidator()
	bandRe   = regexp.MustCompile(`^BAND_\d+$`)
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// NormalizeAndValidate returns a normalized copy plus any errors and warnings.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	out := cfg
	var res Validation

	out.Source.Location = strings.TrimSpace(out.Source.Location)
	out.Store.Backend = strings.ToLower(strings.TrimSpace(out.Store.Backend))
	out.Source.PayBands = normalizeBands(out.Source.PayBands)

	if err := validate.Struct(out); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			res.addErr("%v", err)
			return out, res
		}
		for _, fe := range verrs {
			field := strings.TrimPrefix(fe.Namespace(), "Config.")
			if fe.Param() != "" {
				res.addErr("%s failed %s=%s (got %v)", field, fe.Tag(), fe.Param(), fe.Value())
			} else {
				res.addErr("%s failed %s", field, fe.Tag())
			}
		}
	}

	for _, b := range out.Source.PayBands {
		if !bandRe.MatchString(b) {
			res.addErr("source.pay_bands: %q is not of the form BAND_<n>", b)
		}
	}

	// politeness
	if out.Source.Delay < 0 {
		res.addErr("source.delay must be >= 0")
	} else if out.Source.Delay < time.Second {
		res.addWarn("source.delay is very low (%s) and may get the crawler blocked.", out.Source.Delay)
	}
	if out.Source.PageTimeout <= 0 {
		res.addErr("source.page_timeout must be > 0")
	}
	if out.Source.Location == "" {
		res.addWarn("source.location is empty; searches will cover the whole country.")
	}

	if out.Schedule.Enabled {
		if out.Schedule.Interval < time.Second {
			res.addErr("schedule.interval must be >= 1s when schedule.enabled=true")
		} else if out.Schedule.Interval < time.Minute {
			res.addWarn("schedule.interval is very low (%s).", out.Schedule.Interval)
		}
	}

	switch out.Store.Backend {
	case "postgres":
		if strings.TrimSpace(out.Store.DSN) == "" {
			res.addErr("store.dsn is required when store.backend=postgres")
		}
	case "memory":
		res.addWarn("store.backend=memory keeps nothing across restarts.")
	}

	if out.Lock.RedisURL != "" && out.Lock.TTL <= 0 {
		res.addErr("lock.ttl must be > 0 when lock.redis_url is set")
	}

	return out, res
}

// ParseBands normalizes xs the way source.pay_bands is normalized and rejects
// anything that is not BAND_<n>.
func ParseBands(xs []string) ([]string, error) {
	ys := normalizeBands(xs)
	for _, b := range ys {
		if !bandRe.MatchString(b) {
			return nil, fmt.Errorf("%q is not of the form BAND_<n>", b)
		}
	}
	return ys, nil
}

// normalizeBands upper-cases, maps "5" and "band 5" to BAND_5, and drops duplicates.
func normalizeBands(xs []string) []string {
	seen := map[string]bool{}
	var ys []string
	for _, x := range xs {
		x = strings.ToUpper(strings.TrimSpace(x))
		if x == "" {
			continue
		}
		x = strings.Join(strings.Fields(strings.ReplaceAll(x, "-", " ")), "_")
		if !strings.HasPrefix(x, "BAND_") {
			x = "BAND_" + x
		}
		if seen[x] {
			continue
		}
		seen[x] = true
		ys = append(ys, x)
	}
	return ys
}
