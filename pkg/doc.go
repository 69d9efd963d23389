// Package pkg provides the core libraries for the engrave layout engine.
//
// # Overview
//
// Engrave turns a timed, clef-resolved score model into a deterministic
// page layout plan that a renderer draws without further decisions. The
// pkg directory is organized into four main areas:
//
//  1. [score] - The canonical input model and its validation
//  2. [engrave] - The layout engine (widths, systems, pages, lanes, spanners)
//  3. [pipeline] - Orchestration (load → layout → audit) with caching
//  4. [cache], [observability], [errors], [buildinfo] - Shared infrastructure
//
// # Architecture
//
// The typical data flow:
//
//	Score file (JSON/YAML)
//	         ↓
//	score.ReadFile → score.Validate
//	         ↓
//	engrave.Layout (measure widths → system breaks → justification →
//	                system assembly → page stacking → spanner routing)
//	         ↓
//	engrave.Plan (absolute glyph boxes, text lanes, spanner paths)
//	         ↓
//	audit.Inspect (collision findings)
//
// Every stage is deterministic: identical inputs produce byte-identical
// serialized plans, which is what makes plan caching by content hash safe.
package pkg
