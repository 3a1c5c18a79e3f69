package browser

import (
	"encoding/json"
	"fmt"
	"strings"
)

// The chromedp driver does all element work inside the page: a query runs
// one script that collects matching elements and snapshots their state, and
// actions re-run the same collection and index into it. Re-collecting keeps
// handles usable after small DOM mutations as long as the match set is
// stable.

const jsCollect = `
	const collect = (sel) => {
		let els;
		try {
			els = Array.from(document.querySelectorAll(sel.css || '*'));
		} catch (e) {
			return [];
		}
		if (sel.role) {
			els = els.filter(el => (el.getAttribute('role') || '').toLowerCase() === sel.role);
		}
		if (sel.text) {
			els = els.filter(el => {
				const text = ((el.innerText || '') + ' ' + (el.value || '')).toLowerCase();
				return text.includes(sel.text);
			});
		}
		return els;
	};
`

const jsSnapshotBody = `
	return collect(sel).map((el, i) => {
		const style = window.getComputedStyle(el);
		const rect = el.getBoundingClientRect();
		return {
			index: i,
			tag: el.tagName.toLowerCase(),
			text: ((el.innerText || el.value || '') + '').trim(),
			value: (el.value || '') + '',
			visible: rect.width > 0 && rect.height > 0 &&
				style.visibility !== 'hidden' && style.display !== 'none',
			enabled: !el.disabled,
			checked: !!el.checked ||
				el.getAttribute('aria-checked') === 'true' ||
				el.getAttribute('aria-selected') === 'true',
			options: el.options ? el.options.length : 0,
			attrs: {
				id: el.getAttribute('id') || '',
				name: el.getAttribute('name') || '',
				type: (el.getAttribute('type') || '').toLowerCase(),
				class: el.getAttribute('class') || '',
				placeholder: el.getAttribute('placeholder') || '',
				role: (el.getAttribute('role') || '').toLowerCase(),
				for: el.getAttribute('for') || '',
				src: el.getAttribute('src') || '',
				autocomplete: el.getAttribute('autocomplete') || ''
			}
		};
	});
`

const jsActionBody = `
	const els = collect(sel);
	const el = els[arg.index];
	if (!el) {
		return false;
	}
	switch (arg.action) {
	case 'click':
		el.scrollIntoView({block: 'center'});
		el.click();
		return true;
	case 'fill':
		el.focus();
		el.value = arg.value;
		el.dispatchEvent(new Event('input', {bubbles: true}));
		el.dispatchEvent(new Event('change', {bubbles: true}));
		el.blur();
		return true;
	case 'select':
		if (!el.options || el.options.length <= arg.optionIndex) {
			return false;
		}
		el.selectedIndex = arg.optionIndex;
		el.dispatchEvent(new Event('change', {bubbles: true}));
		return true;
	}
	return false;
`

const jsHeadings = `
	(() => {
		return Array.from(document.querySelectorAll('h1, h2'))
			.map(el => (el.innerText || '').trim())
			.filter(t => t.length > 0);
	})()
`

const jsBodyText = `
	(() => document.body ? document.body.innerText : '')()
`

type selectorArg struct {
	CSS  string `json:"css"`
	Role string `json:"role"`
	Text string `json:"text"`
}

type actionArg struct {
	Index       int    `json:"index"`
	Action      string `json:"action"`
	Value       string `json:"value,omitempty"`
	OptionIndex int    `json:"optionIndex,omitempty"`
}

type elementSnapshot struct {
	Index   int               `json:"index"`
	Tag     string            `json:"tag"`
	Text    string            `json:"text"`
	Value   string            `json:"value"`
	Visible bool              `json:"visible"`
	Enabled bool              `json:"enabled"`
	Checked bool              `json:"checked"`
	Options int               `json:"options"`
	Attrs   map[string]string `json:"attrs"`
}

func marshalSelector(sel Selector) string {
	raw, _ := json.Marshal(selectorArg{
		CSS:  sel.CSS,
		Role: strings.ToLower(sel.Role),
		Text: strings.ToLower(sel.Text),
	})
	return string(raw)
}

// jsQuery builds the snapshot script for a selector.
func jsQuery(sel Selector) string {
	return fmt.Sprintf(`(() => {
		const sel = %s;
		%s
		%s
	})()`, marshalSelector(sel), jsCollect, jsSnapshotBody)
}

// jsAction builds an action script addressing one element of a query by
// index.
func jsAction(sel Selector, arg actionArg) string {
	rawArg, _ := json.Marshal(arg)
	return fmt.Sprintf(`(() => {
		const sel = %s;
		const arg = %s;
		%s
		%s
	})()`, marshalSelector(sel), string(rawArg), jsCollect, jsActionBody)
}
