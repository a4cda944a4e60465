package config

import (
	"context"

	"github.com/torosent/poi/internal/extractor"
	"github.com/torosent/poi/internal/override"
	"github.com/torosent/poi/internal/request"
)

// Profile is a named pairing of a request template and the fields to keep
// from its response.
type Profile struct {
	Name     string
	Request  *request.Profile
	Response extractor.Profile

	logger extractor.Logger
}

// WithLogger returns a copy of p that reports missing response paths to logger.
func (p *Profile) WithLogger(logger extractor.Logger) *Profile {
	clone := *p
	clone.logger = logger
	return &clone
}

// Query sends one request with set applied and extracts the response record.
func (p *Profile) Query(ctx context.Context, doer request.Doer, set override.Set) (extractor.Record, error) {
	resp, err := p.Request.Send(ctx, doer, set)
	if err != nil {
		return extractor.Record{}, err
	}
	return p.Extract(resp)
}

// Extract consumes a response sent for p and returns its record.
func (p *Profile) Extract(resp *request.Response) (extractor.Record, error) {
	return resp.Results(p.Response, p.logger)
}

// QueryRow is Query with one extra query parameter appended to a copy of set.
func (p *Profile) QueryRow(ctx context.Context, doer request.Doer, set override.Set, key, value string) (extractor.Record, error) {
	rowSet := set.Clone()
	rowSet.Add(override.KindQuery, key, value)
	return p.Query(ctx, doer, rowSet)
}

// Validate checks the request template.
func (p *Profile) Validate() error {
	if p.Request == nil {
		return &ProfileError{Name: p.Name, Err: ValidationError{issues: []string{"req is required"}}}
	}
	if err := p.Request.Validate(); err != nil {
		return &ProfileError{Name: p.Name, Err: err}
	}
	return nil
}
