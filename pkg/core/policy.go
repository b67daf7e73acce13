package core

import (
	"fmt"
	"strings"
)

// DedupPolicy controls how exact duplicate staging rows are handled.
type DedupPolicy int

// DedupPolicy constants.
const (
	AllowDuplicates DedupPolicy = iota
	FilterDuplicates
	FailOnDuplicates
)

// String returns the policy name used in job files.
func (p DedupPolicy) String() string {
	switch p {
	case AllowDuplicates:
		return "allow_duplicates"
	case FilterDuplicates:
		return "filter_duplicates"
	case FailOnDuplicates:
		return "fail_on_duplicates"
	default:
		return fmt.Sprintf("DedupPolicy(%d)", int(p))
	}
}

// ParseDedupPolicy resolves a dedup policy name; the empty string allows duplicates.
func ParseDedupPolicy(s string) (DedupPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "allow_duplicates", "allow":
		return AllowDuplicates, nil
	case "filter_duplicates", "filter":
		return FilterDuplicates, nil
	case "fail_on_duplicates", "fail":
		return FailOnDuplicates, nil
	default:
		return 0, fmt.Errorf("unknown dedup policy %q", s)
	}
}

// VersioningKind selects a versioning policy.
type VersioningKind int

// VersioningKind constants.
const (
	NoVersioning VersioningKind = iota
	MaxVersion
	AllVersion
)

// String returns the kind name used in job files.
func (k VersioningKind) String() string {
	switch k {
	case NoVersioning:
		return "none"
	case MaxVersion:
		return "max_version"
	case AllVersion:
		return "all_version"
	default:
		return fmt.Sprintf("VersioningKind(%d)", int(k))
	}
}

// ParseVersioningKind resolves a versioning kind; the empty string is NoVersioning.
func ParseVersioningKind(s string) (VersioningKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return NoVersioning, nil
	case "max_version", "max":
		return MaxVersion, nil
	case "all_version", "all":
		return AllVersion, nil
	default:
		return 0, fmt.Errorf("unknown versioning %q", s)
	}
}

// VersionResolver decides when a staging row supersedes the main row.
type VersionResolver int

// VersionResolver constants.
const (
	// ResolveGreaterThan: stage.version > sink.version
	ResolveGreaterThan VersionResolver = iota
	// ResolveGreaterThanOrEqual: stage.version >= sink.version (equal-version overwrite)
	ResolveGreaterThanOrEqual
	// ResolveDigest: ignore versions, compare digests
	ResolveDigest
)

// String returns the resolver name used in job files.
func (r VersionResolver) String() string {
	switch r {
	case ResolveGreaterThan:
		return "greater_than"
	case ResolveGreaterThanOrEqual:
		return "greater_than_equal_to"
	case ResolveDigest:
		return "digest_based"
	default:
		return fmt.Sprintf("VersionResolver(%d)", int(r))
	}
}

// ParseVersionResolver resolves a resolver name; the empty string is ResolveGreaterThan.
func ParseVersionResolver(s string) (VersionResolver, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "greater_than", "gt":
		return ResolveGreaterThan, nil
	case "greater_than_equal_to", "gte":
		return ResolveGreaterThanOrEqual, nil
	case "digest_based", "digest":
		return ResolveDigest, nil
	default:
		return 0, fmt.Errorf("unknown version resolver %q", s)
	}
}

// VersioningPolicy selects rows by a version column.
type VersioningPolicy struct {
	Kind                   VersioningKind
	Field                  string
	PerformStageVersioning bool // MaxVersion only: keep just the max version per key in temp staging
	Resolver               VersionResolver
}

// NoVersion is the zero policy.
func NoVersion() VersioningPolicy {
	return VersioningPolicy{}
}

// MaxVersionOf keeps the highest version per primary key.
func MaxVersionOf(field string, performStageVersioning bool) VersioningPolicy {
	return VersioningPolicy{Kind: MaxVersion, Field: field, PerformStageVersioning: performStageVersioning}
}

// AllVersionOf processes every version, one data split per version rank.
func AllVersionOf(field string) VersioningPolicy {
	return VersioningPolicy{Kind: AllVersion, Field: field, PerformStageVersioning: true}
}

// StageVersioned reports whether the policy ranks rows in temp staging.
func (v VersioningPolicy) StageVersioned() bool {
	return v.Kind == AllVersion || (v.Kind == MaxVersion && v.PerformStageVersioning)
}

// EmptyBatchHandling selects what happens when staging holds no rows.
type EmptyBatchHandling int

// EmptyBatchHandling constants.
const (
	// EmptyBatchUnspecified must be resolved by the caller before an empty batch is compiled.
	EmptyBatchUnspecified EmptyBatchHandling = iota
	EmptyBatchNoOp
	EmptyBatchDeleteTargetData
	EmptyBatchFail
)

// String returns the handling name used in job files.
func (h EmptyBatchHandling) String() string {
	switch h {
	case EmptyBatchUnspecified:
		return "unspecified"
	case EmptyBatchNoOp:
		return "no_op"
	case EmptyBatchDeleteTargetData:
		return "delete_target_data"
	case EmptyBatchFail:
		return "fail"
	default:
		return fmt.Sprintf("EmptyBatchHandling(%d)", int(h))
	}
}

// ParseEmptyBatchHandling resolves a handling name.
func ParseEmptyBatchHandling(s string) (EmptyBatchHandling, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return EmptyBatchUnspecified, nil
	case "no_op", "noop":
		return EmptyBatchNoOp, nil
	case "delete_target_data":
		return EmptyBatchDeleteTargetData, nil
	case "fail":
		return EmptyBatchFail, nil
	default:
		return 0, fmt.Errorf("unknown empty batch handling %q", s)
	}
}
