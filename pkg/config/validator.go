package config

import (
	"fmt"
	"net/url"
	"strings"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate HTTP config
	if strings.TrimSpace(c.HTTP.UserAgent) == "" {
		errors = append(errors, ValidationError{
			Field:   "http.user_agent",
			Message: "user agent is required",
		})
	}

	if c.HTTP.Timeout < 0 {
		errors = append(errors, ValidationError{
			Field:   "http.timeout",
			Message: "timeout cannot be negative",
		})
	}

	if c.HTTP.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "http.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	if c.HTTP.Burst < 1 {
		errors = append(errors, ValidationError{
			Field:   "http.burst",
			Message: "burst must be positive",
		})
	}

	// Validate source endpoints
	endpoints := []struct {
		field string
		raw   string
	}{
		{"sources.tickers_url", c.Sources.TickersURL},
		{"sources.membership_url", c.Sources.MembershipURL},
		{"edgar.base_url", c.Edgar.BaseURL},
	}
	for _, e := range endpoints {
		if !isHTTPURL(e.raw) {
			errors = append(errors, ValidationError{
				Field:   e.field,
				Message: fmt.Sprintf("invalid URL: %q", e.raw),
			})
		}
	}

	// Validate EDGAR config
	if formatVerbs(c.Edgar.BrowseURL) != "dsd" {
		errors = append(errors, ValidationError{
			Field:   "edgar.browse_url",
			Message: "browse_url needs %d, %s and %d placeholders for CIK, form type and count; write literal percent signs as %%",
		})
	}

	if c.Edgar.FormType == "" || c.Edgar.FormType == c.Edgar.AmendmentType {
		errors = append(errors, ValidationError{
			Field:   "edgar.amendment_type",
			Message: "amendment_type must differ from form_type",
		})
	}

	if c.Edgar.Count < 1 || c.Edgar.Count > 100 {
		errors = append(errors, ValidationError{
			Field:   "edgar.count",
			Message: "count must be between 1 and 100",
		})
	}

	if c.Resolver.Workers < 1 || c.Resolver.Workers > 10 {
		errors = append(errors, ValidationError{
			Field:   "resolver.workers",
			Message: "workers must be between 1 and 10",
		})
	}

	if c.Output.Path == "" {
		errors = append(errors, ValidationError{
			Field:   "output.path",
			Message: "output path is required",
		})
	}

	// Validate Database config
	if c.Database.URL != "" {
		if _, err := url.Parse(c.Database.URL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "database.url",
				Message: "invalid database URL",
			})
		}
	}

	if c.Database.TableName == "" || strings.ContainsAny(c.Database.TableName, " ;\"'") {
		errors = append(errors, ValidationError{
			Field:   "database.table_name",
			Message: "table_name must be a plain identifier",
		})
	}

	if c.Cache.TTL < 0 {
		errors = append(errors, ValidationError{
			Field:   "cache.ttl",
			Message: "ttl cannot be negative",
		})
	}

	return errors
}

// formatVerbs returns the fmt verbs in a format string, in order. "%%" is a
// literal percent sign and yields nothing.
func formatVerbs(format string) string {
	var verbs strings.Builder
	for i := 0; i < len(format); i++ {
		if format[i] != '%' {
			continue
		}
		i++
		if i == len(format) {
			verbs.WriteByte('!')
			break
		}
		if format[i] != '%' {
			verbs.WriteByte(format[i])
		}
	}
	return verbs.String()
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
