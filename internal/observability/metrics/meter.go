// Copyright 2026 The OpenTrusty Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Config holds metrics configuration
type Config struct {
	Enabled bool
}

// Meter wraps OpenTelemetry meter
type Meter struct {
	meter metric.Meter
}

// New creates a new meter instance
func New(ctx context.Context, cfg Config, serviceName string) (*Meter, error) {
	if !cfg.Enabled {
		return &Meter{
			meter: otel.Meter("noop"),
		}, nil
	}

	// Get meter from global meter provider
	// In production, configure a proper meter provider with exporters
	meter := otel.Meter(serviceName)

	return &Meter{
		meter: meter,
	}, nil
}

// GetMeter returns the underlying meter
func (m *Meter) GetMeter() metric.Meter {
	return m.meter
}

// CreateCounter creates a new counter metric
func (m *Meter) CreateCounter(name, description string) (metric.Int64Counter, error) {
	counter, err := m.meter.Int64Counter(
		name,
		metric.WithDescription(description),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create counter %s: %w", name, err)
	}
	return counter, nil
}

// CreateHistogram creates a new histogram metric
func (m *Meter) CreateHistogram(name, description, unit string) (metric.Float64Histogram, error) {
	histogram, err := m.meter.Float64Histogram(
		name,
		metric.WithDescription(description),
		metric.WithUnit(unit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create histogram %s: %w", name, err)
	}
	return histogram, nil
}

// CreateUpDownCounter creates a new up/down counter metric
func (m *Meter) CreateUpDownCounter(name, description string) (metric.Int64UpDownCounter, error) {
	counter, err := m.meter.Int64UpDownCounter(
		name,
		metric.WithDescription(description),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create up/down counter %s: %w", name, err)
	}
	return counter, nil
}

// Recorder holds the engine's fixed counter vocabulary: tokens issued,
// authorizations denied, and resource-protection denials. Built once at
// startup from a Meter and threaded into the HTTP transport layer.
type Recorder struct {
	tokensIssued         metric.Int64Counter
	authorizationsDenied metric.Int64Counter
	resourceDenials      metric.Int64Counter
}

// NewRecorder creates the engine's counters against m.
func NewRecorder(m *Meter) (*Recorder, error) {
	tokensIssued, err := m.CreateCounter("oauth2_tokens_issued_total", "Access/refresh tokens issued, by grant type")
	if err != nil {
		return nil, err
	}
	authorizationsDenied, err := m.CreateCounter("oauth2_authorizations_denied_total", "Authorization requests denied before redirect")
	if err != nil {
		return nil, err
	}
	resourceDenials, err := m.CreateCounter("oauth2_resource_denials_total", "Bearer token requests rejected by the resource flow")
	if err != nil {
		return nil, err
	}
	return &Recorder{
		tokensIssued:         tokensIssued,
		authorizationsDenied: authorizationsDenied,
		resourceDenials:      resourceDenials,
	}, nil
}

// TokenIssued records a successful token-endpoint response.
func (r *Recorder) TokenIssued(ctx context.Context, grantType string) {
	if r == nil {
		return
	}
	r.tokensIssued.Add(ctx, 1, metric.WithAttributes(attribute.String("grant_type", grantType)))
}

// AuthorizationDenied records a redirect-reportable or silent authorization denial.
func (r *Recorder) AuthorizationDenied(ctx context.Context) {
	if r == nil {
		return
	}
	r.authorizationsDenied.Add(ctx, 1)
}

// ResourceDenied records a 401/403 from the resource-protection flow.
func (r *Recorder) ResourceDenied(ctx context.Context, reason string) {
	if r == nil {
		return
	}
	r.resourceDenials.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}
