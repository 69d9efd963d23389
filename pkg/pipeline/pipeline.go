// Package pipeline provides the core engraving pipeline: load a score,
// compute its layout plan, and audit the result, with plan caching.
//
// This package implements the complete load → layout → audit flow used by
// the CLI and any embedding service. Centralizing it keeps behavior
// consistent across entry points and avoids duplicating caching logic.
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{ScorePath: "prelude.json"}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	data, _ := result.Plan.Marshal()
//
// Run individual stages:
//
//	s, err := runner.Load(ctx, opts)
//	plan, err := runner.ComputePlan(ctx, s, opts)
//	report := runner.Audit(ctx, plan)
package pipeline

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/0xfe/vf-musicxml-sub003/pkg/engrave"
	"github.com/0xfe/vf-musicxml-sub003/pkg/engrave/audit"
	"github.com/0xfe/vf-musicxml-sub003/pkg/errors"
	"github.com/0xfe/vf-musicxml-sub003/pkg/score"
)

// Options contains all configuration for one pipeline run.
// This struct supports JSON serialization for service requests.
type Options struct {
	// Input. Score takes precedence over ScorePath when both are set.
	ScorePath string       `json:"score_path,omitempty"`
	Score     *score.Score `json:"-"`

	// Engraving coefficients. Config takes precedence over ConfigPath;
	// with neither set the documented defaults apply.
	ConfigPath string          `json:"config_path,omitempty"`
	Config     *engrave.Config `json:"config,omitempty"`

	// NoAudit skips the collision audit stage.
	NoAudit bool `json:"no_audit,omitempty"`

	// Refresh bypasses the plan cache and recomputes.
	Refresh bool `json:"refresh,omitempty"`

	// AuditOptions tunes inspection thresholds; zero value means defaults.
	AuditOptions audit.Options `json:"audit_options,omitempty"`

	// Runtime options (not serialized).
	Logger *log.Logger `json:"-"`
}

// ValidateAndSetDefaults checks the options and fills in defaults.
func (o *Options) ValidateAndSetDefaults() error {
	if o.Score == nil && o.ScorePath == "" {
		return errors.New(errors.ErrCodeInvalidScore, "no score given: set Score or ScorePath")
	}
	if o.Config == nil && o.ConfigPath == "" {
		cfg := engrave.DefaultConfig()
		o.Config = &cfg
	}
	if o.AuditOptions == (audit.Options{}) {
		o.AuditOptions = audit.DefaultOptions()
	}
	return nil
}

// Stats records per-stage timing and output sizes.
type Stats struct {
	Measures   int           `json:"measures"`
	Systems    int           `json:"systems"`
	Pages      int           `json:"pages"`
	LoadTime   time.Duration `json:"load_time"`
	LayoutTime time.Duration `json:"layout_time"`
	AuditTime  time.Duration `json:"audit_time"`
}

// CacheInfo records which stages were served from cache.
type CacheInfo struct {
	PlanHit bool `json:"plan_hit"`
}

// Result is the complete pipeline output.
type Result struct {
	// RunID uniquely identifies this execution for log correlation.
	RunID string `json:"run_id"`

	Plan   *engrave.Plan `json:"plan"`
	Report *audit.Report `json:"report,omitempty"` // nil when the audit was skipped

	// ScoreHash is the content hash of the serialized input score.
	ScoreHash string `json:"score_hash"`

	Stats     Stats     `json:"stats"`
	CacheInfo CacheInfo `json:"cache_info"`
}

// newRunID generates the correlation id for one execution.
func newRunID() string {
	return uuid.NewString()
}
