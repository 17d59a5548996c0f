package browser

import "pxfollow/pkg/automation"

// Selectors for the parts of the following page the automation touches
const (
	LeadingEntitySelector = `section a[data-gtm-value]:only-child`
	ToggleSelector        = `div.gtm-profile-user-menu-restrict-changing[role=button]`
	MenuTriggerSelector   = `button[data-click-label="follow"]`
	FollowCountSelector   = `h2[font-size="20"][color="text2"]`
)

const leadingEntityScript = `(() => {
	const a = document.querySelector('` + LeadingEntitySelector + `');
	return a ? {name: a.textContent, found: true} : {name: "", found: false};
})()`

// the menu button is the first child of the follow button's sibling
const menuButtonExpr = `(() => {
	const t = document.querySelector('` + MenuTriggerSelector + `');
	return t && t.nextElementSibling ? t.nextElementSibling.firstChild : null;
})()`

const toggleStateScript = `(() => {
	const b = document.querySelector('` + ToggleSelector + `');
	return {
		rendered: !!b,
		ariaDisabled: b ? b.getAttribute('aria-disabled') : null,
		menu: !!` + menuButtonExpr + `,
	};
})()`

const menuPresentScript = `!!` + menuButtonExpr

const openMenuScript = `(() => {
	const m = ` + menuButtonExpr + `;
	if (!m) return false;
	m.click();
	return true;
})()`

const clickToggleScript = `(() => {
	const b = document.querySelector('` + ToggleSelector + `');
	if (!b || b.getAttribute('aria-disabled') !== 'false') return false;
	b.click();
	return true;
})()`

const followCountScript = `(() => {
	const h = document.querySelector('` + FollowCountSelector + `');
	if (!h || !h.parentElement || !h.parentElement.lastChild || !h.parentElement.lastChild.firstChild) return -1;
	const n = parseInt(h.parentElement.lastChild.firstChild.textContent.replace(/[^0-9]/g, ''), 10);
	return isNaN(n) ? -1 : n;
})()`

// toggleView is what toggleStateScript reports about the visibility toggle
type toggleView struct {
	Rendered     bool    `json:"rendered"`
	AriaDisabled *string `json:"ariaDisabled"`
	Menu         bool    `json:"menu"`
}

// state maps the view to a ControlState. Only aria-disabled="false" is
// clickable and aria-disabled="true" is polled again; a toggle without the
// attribute, or no toggle next to a menu button, means the menu has to be
// opened.
func (v toggleView) state() automation.ControlState {
	if v.Rendered && v.AriaDisabled != nil {
		switch *v.AriaDisabled {
		case "false":
			return automation.Enabled
		case "true":
			return automation.Absent
		}
	}
	if v.Rendered || v.Menu {
		return automation.Disabled
	}
	return automation.Absent
}
