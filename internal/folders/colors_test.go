package folders

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColorRegistry(t *testing.T) {
	reg := NewColorRegistry()

	assert.Equal(t, DefaultAccountColor, reg.Get(1), "unknown accounts use the default")

	reg.Add(1, "#112233")
	assert.Equal(t, "#112233", reg.Get(1))

	reg.Add(2, "")
	assert.Equal(t, DefaultAccountColor, reg.Get(2), "empty colors are not stored")

	reg.Update(1, "#445566")
	assert.Equal(t, "#445566", reg.Get(1))

	reg.Remove(1)
	assert.Equal(t, DefaultAccountColor, reg.Get(1))
}

func TestColorRegistryAllReturnsCopy(t *testing.T) {
	reg := NewColorRegistry()
	reg.Add(1, "#112233")

	all := reg.All()
	all[1] = "#mutated"

	assert.Equal(t, "#112233", reg.Get(1))
}
