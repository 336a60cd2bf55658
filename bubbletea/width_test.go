package bubbletea_test

import (
	"testing"

	"github.com/fwojciec/differ/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestDisplayWidth(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, bubbletea.DisplayWidth(""))
	assert.Equal(t, 5, bubbletea.DisplayWidth("hello"))
	assert.Equal(t, 8, bubbletea.DisplayWidth("\t"))
	assert.Equal(t, 8, bubbletea.DisplayWidth("ab\t"))
	assert.Equal(t, 16, bubbletea.DisplayWidth("\tx\t"))
	assert.Equal(t, 14, bubbletea.DisplayWidth("\tif x {"), "tab then text")
}

func TestExpandTabs(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", bubbletea.ExpandTabs(""))
	assert.Equal(t, "no tabs", bubbletea.ExpandTabs("no tabs"))
	assert.Equal(t, "        x", bubbletea.ExpandTabs("\tx"))
	assert.Equal(t, "ab      cd", bubbletea.ExpandTabs("ab\tcd"))
	assert.Equal(t, "        if x {", bubbletea.ExpandTabs("\tif x {"))
}
