package session

import (
	"errors"

	"github.com/yndnr/cryptsess/internal/core/domain"
)

// Config is the operating posture of a Manager.
//
// The four posture flags mirror how identifiers travel between client and
// server. Only the secure combination (strict mode and cookies only, no
// identifiers in URLs) passes Validate.
type Config struct {
	// UseStrictMode rejects identifiers that do not name a legitimate record.
	UseStrictMode bool
	// UseCookies carries identifiers in cookies.
	UseCookies bool
	// UseOnlyCookies refuses identifiers from anywhere but cookies.
	UseOnlyCookies bool
	// UseTransSID rewrites URLs to carry identifiers.
	UseTransSID bool

	// SuppressPostureWarnings lets NewManager proceed with an insecure
	// posture. Leaving it false fails construction instead.
	SuppressPostureWarnings bool
}

// DefaultConfig returns the secure posture.
func DefaultConfig() Config {
	return Config{
		UseStrictMode:  true,
		UseCookies:     true,
		UseOnlyCookies: true,
		UseTransSID:    false,
	}
}

// Validate returns every posture violation joined together, so errors.Is
// matches each one. Returns nil for a secure posture.
func (c Config) Validate() error {
	var errs []error
	if !c.UseStrictMode {
		errs = append(errs, domain.ErrUseStrictModeDisabled)
	}
	if !c.UseCookies {
		errs = append(errs, domain.ErrUseCookiesDisabled)
	}
	if !c.UseOnlyCookies {
		errs = append(errs, domain.ErrUseOnlyCookiesDisabled)
	}
	if c.UseTransSID {
		errs = append(errs, domain.ErrUseTransSIDEnabled)
	}
	return errors.Join(errs...)
}
