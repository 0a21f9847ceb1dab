package creator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/videohaven/ingest/internal/creator"
)

func TestFromMap(t *testing.T) {
	t.Run("existing creator", func(t *testing.T) {
		ref, err := creator.FromMap(map[string]interface{}{"id": "c2", "role": "producer"})
		require.NoError(t, err)

		require.NotNil(t, ref.Existing)
		assert.Nil(t, ref.New)
		assert.Equal(t, "c2", ref.Existing.ID)
		assert.Equal(t, creator.RoleProducer, ref.Existing.Role)
		assert.NoError(t, ref.Validate())
	})

	t.Run("new creator with full descriptor", func(t *testing.T) {
		ref, err := creator.FromMap(map[string]interface{}{
			"username":     "alice",
			"display_name": "Alice",
			"aliases":      []interface{}{"al", "alicia"},
			"image":        "https://cdn/avatar.png",
			"birthday":     "1990-04-01",
			"links":        []interface{}{"https://example.com/alice"},
			"role":         "performer",
		})
		require.NoError(t, err)

		require.NotNil(t, ref.New)
		assert.Nil(t, ref.Existing)
		assert.Equal(t, "alice", ref.New.Username)
		assert.Equal(t, "Alice", ref.New.DisplayName)
		assert.Equal(t, []string{"al", "alicia"}, ref.New.Aliases)
		assert.Equal(t, creator.RolePerformer, ref.New.Role)
		assert.NoError(t, ref.Validate())
	})

	t.Run("neither id nor username", func(t *testing.T) {
		ref, err := creator.FromMap(map[string]interface{}{"role": "performer"})
		require.NoError(t, err)

		var validationErr *creator.ValidationError
		assert.ErrorAs(t, ref.Validate(), &validationErr)
	})

	t.Run("both id and username", func(t *testing.T) {
		ref, err := creator.FromMap(map[string]interface{}{"id": "c1", "username": "alice", "role": "performer"})
		require.NoError(t, err)

		var validationErr *creator.ValidationError
		assert.ErrorAs(t, ref.Validate(), &validationErr)
	})
}

func TestReferenceValidate(t *testing.T) {
	tests := []struct {
		name  string
		ref   creator.Reference
		valid bool
	}{
		{"existing performer", creator.ExistingRef("c1", creator.RolePerformer), true},
		{"existing producer", creator.ExistingRef("c1", creator.RoleProducer), true},
		{"new performer", creator.NewRef(creator.New{Username: "alice", Role: creator.RolePerformer}), true},
		{"empty union", creator.Reference{}, false},
		{"existing with empty id", creator.ExistingRef("", creator.RolePerformer), false},
		{"new with empty username", creator.NewRef(creator.New{Role: creator.RolePerformer}), false},
		{"missing role", creator.ExistingRef("c1", ""), false},
		{"unknown role", creator.ExistingRef("c1", "director"), false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := test.ref.Validate()
			if test.valid {
				assert.NoError(t, err)
			} else {
				var validationErr *creator.ValidationError
				assert.ErrorAs(t, err, &validationErr)
			}
		})
	}
}
