package ormgraph_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chmenegatti/ormgraph"
	"github.com/chmenegatti/ormgraph/metadata"
)

// --- Test Functions ---

func TestNewInstance_DefaultsAndValidation(t *testing.T) {
	reg := campus(t)
	student := model(t, reg, "Student")

	inst, err := ormgraph.NewInstance(student, map[string]any{"name": "Anna"})
	require.NoError(t, err)
	assert.Nil(t, inst.PK(), "autoincrement key stays unset until saved")

	active, ok := inst.Get("active")
	require.True(t, ok)
	assert.Equal(t, true, active)
	assert.False(t, inst.IsLoaded("classroom"))
	assert.Nil(t, inst.Related("courses"))

	_, err = ormgraph.NewInstance(student, map[string]any{"name": "Anna", "grade": 3})
	assert.ErrorContains(t, err, `Student has no field "grade"`)

	_, err = ormgraph.NewInstance(student, map[string]any{"name": 12})
	var ve *metadata.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "name", ve.Field)

	_, err = ormgraph.NewInstance(student, map[string]any{"name": "Anna", "courses": []int{1}})
	assert.ErrorContains(t, err, "many-to-many relations are set with AddRelated")
}

func TestInstance_SetForeignKey(t *testing.T) {
	reg := campus(t)

	room, err := ormgraph.NewInstance(model(t, reg, "Classroom"), map[string]any{"id": 4, "name": "Lab"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), room.PK(), "integers are widened")

	anna, err := ormgraph.NewInstance(model(t, reg, "Student"), map[string]any{"name": "Anna", "classroom": room})
	require.NoError(t, err)

	fk, _ := anna.Get("classroom")
	assert.Equal(t, int64(4), fk)
	assert.Same(t, room, anna.One("classroom"))

	require.NoError(t, anna.Set("classroom", 4))
	assert.Same(t, room, anna.One("classroom"), "same key keeps the link")

	require.NoError(t, anna.Set("classroom", 9))
	assert.Nil(t, anna.One("classroom"), "different key drops a stale link")

	course, err := ormgraph.NewInstance(model(t, reg, "Course"), map[string]any{"id": 1, "title": "Go"})
	require.NoError(t, err)
	assert.ErrorContains(t, anna.Set("classroom", course), "expects Classroom, got Course")
}

func TestInstance_String(t *testing.T) {
	reg := campus(t)
	room, err := ormgraph.NewInstance(model(t, reg, "Classroom"), map[string]any{"id": 1, "name": "Lab"})
	require.NoError(t, err)
	assert.Equal(t, "Classroom(id=1, name=Lab)", room.String())
}
