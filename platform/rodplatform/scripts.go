package rodplatform

const probeJS = `() => {
	let webkit = false, rich = false;
	try {
		webkit = !!(window.top.webkit && window.top.webkit.messageHandlers &&
			window.top.webkit.messageHandlers.RichDocumentsMobileInterface);
	} catch (e) {}
	try {
		rich = !!(window.top.RichDocumentsMobileInterface &&
			window.top.RichDocumentsMobileInterface.paste);
	} catch (e) {}
	return {
		events: typeof ClipboardEvent !== 'undefined',
		legacy: !!window.clipboardData,
		mobile: /Mobi|Android/i.test(navigator.userAgent),
		webkit: webkit,
		rich: rich,
	};
}`

const createSurfaceJS = `(id, html) => {
	let div = document.getElementById(id);
	if (!div) div = document.createElement('div');
	div.setAttribute('id', id);
	div.setAttribute('contenteditable', 'true');
	div.setAttribute('style', '-webkit-user-select: text !important; user-select: text !important');
	div.style.opacity = '0';
	div.innerHTML = html;
	window.__clipbridgeActive = document.activeElement;
	document.body.appendChild(div);
	return true;
}`

const selectSurfaceJS = `(id) => {
	const div = document.getElementById(id);
	const sel = document.getSelection();
	if (!div || !sel) return false;
	sel.removeAllRanges();
	const range = document.createRange();
	range.selectNodeContents(div);
	sel.addRange(range);
	div.focus();
	return !document.getSelection().isCollapsed;
}`

const removeSurfaceJS = `(id) => {
	const div = document.getElementById(id);
	if (div && div.parentNode) div.parentNode.removeChild(div);
	const active = window.__clipbridgeActive;
	window.__clipbridgeActive = null;
	if (active && active !== document.activeElement && active.focus) active.focus();
	return true;
}`

const postMessageJS = `(op) => {
	try {
		const h = window.top.webkit && window.top.webkit.messageHandlers &&
			window.top.webkit.messageHandlers.RichDocumentsMobileInterface;
		if (!h) return false;
		h.postMessage(op);
		return true;
	} catch (e) {
		return false;
	}
}`

const directPasteJS = `() => {
	try {
		const r = window.top.RichDocumentsMobileInterface;
		if (!r || !r.paste) return false;
		r.paste();
		return true;
	} catch (e) {
		return false;
	}
}`
