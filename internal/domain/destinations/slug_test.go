package destinations

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMakeSlug(t *testing.T) {
	assert.Equal(t, "lake-bled-tour", MakeSlug("  Lake Bled Tour "))
	assert.Equal(t, "caf-del-mar", MakeSlug("Café -- del   Mar!"))
	assert.Equal(t, "destination", MakeSlug("???"))
}
