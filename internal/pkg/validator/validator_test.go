package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	Name  string  `binding:"required"`
	Price float64 `binding:"gte=0"`
}

func TestValidate(t *testing.T) {
	assert.Nil(t, Validate(sample{Name: "Room", Price: 10}))

	errs := Validate(sample{Price: -1})
	assert.Equal(t, "required", errs["Name"])
	assert.Equal(t, "gte", errs["Price"])
}

func TestFields(t *testing.T) {
	assert.Nil(t, Fields(nil))

	errs := Fields(validate.Struct(sample{Name: "Room", Price: -5}))
	assert.Equal(t, map[string]string{"Price": "gte"}, errs)

	errs = Fields(errors.New("unexpected EOF"))
	assert.Equal(t, "unexpected EOF", errs["_"])
}
