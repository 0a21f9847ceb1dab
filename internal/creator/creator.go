// Package creator resolves heterogeneous creator references (known
// platform ids alongside full new-creator descriptors) into the
// normalized {id, role} pairs the platform's video creation accepts.
package creator

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

type Role string

const (
	RolePerformer Role = "performer"
	RoleProducer  Role = "producer"
)

func (role Role) Valid() bool {
	return role == RolePerformer || role == RoleProducer
}

type (
	// Existing references a creator the platform already knows.
	// The id is passed through unchecked; the platform is the
	// source of truth and rejects invalid ids at video creation.
	Existing struct {
		ID   string
		Role Role
	}

	// New describes a creator to be upserted by username before
	// the video referencing it can be created.
	New struct {
		Username    string
		DisplayName string `mapstructure:"display_name"`
		Aliases     []string
		Image       string
		Birthday    string
		Links       []string
		Role        Role
	}

	// Reference is the two-variant union of the above. Exactly one
	// variant must be set; Validate enforces this at the boundary
	// so downstream code never re-checks.
	Reference struct {
		Existing *Existing
		New      *New
	}

	// Resolved is the only creator form accepted by video
	// creation.
	Resolved struct {
		ID   string
		Role Role
	}

	ValidationError struct {
		reason string
	}
)

func (err *ValidationError) Error() string {
	return fmt.Sprintf("invalid creator reference: %s", err.reason)
}

// ExistingRef builds the known-id variant of a Reference.
func ExistingRef(id string, role Role) Reference {
	return Reference{Existing: &Existing{ID: id, Role: role}}
}

// NewRef builds the new-creator variant of a Reference.
func NewRef(descriptor New) Reference {
	return Reference{New: &descriptor}
}

// Role returns the role of whichever variant is populated.
func (ref Reference) Role() Role {
	if ref.Existing != nil {
		return ref.Existing.Role
	} else if ref.New != nil {
		return ref.New.Role
	}

	return ""
}

// Validate checks the union's shape: exactly one variant populated,
// carrying a non-empty id or username, with a recognised role.
func (ref Reference) Validate() error {
	switch {
	case ref.Existing == nil && ref.New == nil:
		return &ValidationError{"neither id nor username provided"}
	case ref.Existing != nil && ref.New != nil:
		return &ValidationError{"both id and username provided; exactly one is allowed"}
	case ref.Existing != nil && ref.Existing.ID == "":
		return &ValidationError{"id must not be empty"}
	case ref.New != nil && ref.New.Username == "":
		return &ValidationError{"username must not be empty"}
	}

	if role := ref.Role(); !role.Valid() {
		return &ValidationError{fmt.Sprintf("role %q must be one of performer, producer", role)}
	}

	return nil
}

// rawReference is the loosely-typed shape creator entries take in
// upload descriptor files before the union variant is known.
type rawReference struct {
	ID          string
	Username    string
	DisplayName string `mapstructure:"display_name"`
	Aliases     []string
	Image       string
	Birthday    string
	Links       []string
	Role        Role
}

// FromMap decodes a descriptor-file creator entry into a Reference,
// picking the union variant from which of id/username is present.
// Shape errors are deferred to Validate; this only fails on entries
// that cannot be decoded at all.
func FromMap(entry map[string]interface{}) (Reference, error) {
	var raw rawReference
	if err := mapstructure.WeakDecode(entry, &raw); err != nil {
		return Reference{}, &ValidationError{fmt.Sprintf("malformed creator entry: %s", err.Error())}
	}

	if raw.ID == "" && raw.Username == "" {
		// Variantless; Validate reports the missing id/username.
		return Reference{}, nil
	}

	if raw.ID != "" && raw.Username != "" {
		// Both variants; Validate rejects the ambiguity.
		return Reference{
			Existing: &Existing{ID: raw.ID, Role: raw.Role},
			New:      &New{Username: raw.Username, Role: raw.Role},
		}, nil
	}

	if raw.ID != "" {
		return ExistingRef(raw.ID, raw.Role), nil
	}

	return NewRef(New{
		Username:    raw.Username,
		DisplayName: raw.DisplayName,
		Aliases:     raw.Aliases,
		Image:       raw.Image,
		Birthday:    raw.Birthday,
		Links:       raw.Links,
		Role:        raw.Role,
	}), nil
}
