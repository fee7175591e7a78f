package api

import (
	"errors"
	"time"

	"github.com/Masterminds/semver/v3"
)

type (
	// VersionStatus is the lifecycle state of a flow version
	VersionStatus string

	// FlowVersion is one saved snapshot of a flow's graph. Draft versions
	// are mutable targets of autosave; published versions are immutable
	FlowVersion struct {
		CreatedAt  time.Time       `json:"created_at"`
		UpdatedAt  time.Time       `json:"updated_at"`
		Definition *FlowDefinition `json:"definition"`
		FlowID     FlowID          `json:"flow_id"`
		Version    string          `json:"version"`
		Status     VersionStatus   `json:"status"`
	}
)

const (
	VersionDraft      VersionStatus = "draft"
	VersionPublished  VersionStatus = "published"
	VersionDeprecated VersionStatus = "deprecated"
)

var ErrInvalidVersionLabel = errors.New("invalid version label")

// ValidateVersionLabel checks that a user-supplied version label is a
// well-formed semantic version string
func ValidateVersionLabel(label string) error {
	if _, err := semver.StrictNewVersion(label); err != nil {
		return ErrInvalidVersionLabel
	}
	return nil
}

// Clone returns a deep copy of the version record
func (v *FlowVersion) Clone() *FlowVersion {
	res := *v
	if v.Definition != nil {
		res.Definition = v.Definition.Clone()
	}
	return &res
}

// IsDraft returns true while the version can still be modified
func (v *FlowVersion) IsDraft() bool {
	return v.Status == VersionDraft
}
