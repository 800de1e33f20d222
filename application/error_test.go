package application

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Error_StartsWithNoMessages(t *testing.T) {
	e := NewError("tcp://127.0.0.1:5992", nil)
	assert.Empty(t, e.GetMessages())
}
