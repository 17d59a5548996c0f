package browser

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pxfollow/pkg/automation"
)

func TestToggleViewState(t *testing.T) {
	attr := func(s string) *string { return &s }

	tests := []struct {
		name string
		view toggleView
		want automation.ControlState
	}{
		{"clickable toggle", toggleView{Rendered: true, AriaDisabled: attr("false"), Menu: true}, automation.Enabled},
		{"toggle disabled by page", toggleView{Rendered: true, AriaDisabled: attr("true"), Menu: true}, automation.Absent},
		{"toggle without aria-disabled", toggleView{Rendered: true, Menu: true}, automation.Disabled},
		{"toggle with unexpected value", toggleView{Rendered: true, AriaDisabled: attr("")}, automation.Disabled},
		{"collapsed menu", toggleView{Menu: true}, automation.Disabled},
		{"nothing rendered", toggleView{}, automation.Absent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.view.state())
		})
	}
}

func TestToggleViewDecodesNullAttribute(t *testing.T) {
	var view toggleView
	require.NoError(t, json.Unmarshal([]byte(`{"rendered":true,"ariaDisabled":null,"menu":false}`), &view))
	assert.Nil(t, view.AriaDisabled)
	assert.Equal(t, automation.Disabled, view.state())
}

func TestScriptsUseSelectors(t *testing.T) {
	assert.Contains(t, leadingEntityScript, LeadingEntitySelector)
	assert.Contains(t, toggleStateScript, ToggleSelector)
	assert.Contains(t, toggleStateScript, MenuTriggerSelector)
	assert.Contains(t, toggleStateScript, "ariaDisabled")
	assert.Contains(t, openMenuScript, "nextElementSibling.firstChild")
	assert.Contains(t, clickToggleScript, `aria-disabled`)
	assert.Contains(t, followCountScript, FollowCountSelector)
}
