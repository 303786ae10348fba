package browser

import (
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/journalsync/internal/export"
)

// hookScript runs before any page script on every document. It records
// object URLs created from blobs and anchors with a download attribute, so
// exports delivered without a native download can still be collected.
const hookScript = `(() => {
  if (window.__jsync) return;
  window.__jsync = { blobs: [], links: [] };
  try { Object.defineProperty(navigator, 'webdriver', { get: () => undefined }); } catch (e) {}

  const record = (a) => {
    if (!a || a.dataset.jsyncSeen) return;
    a.dataset.jsyncSeen = '1';
    window.__jsync.links.push({ href: a.href, filename: a.getAttribute('download') || '' });
  };

  const createObjectURL = URL.createObjectURL;
  URL.createObjectURL = function (obj) {
    const url = createObjectURL.apply(this, arguments);
    try {
      if (obj instanceof Blob) window.__jsync.blobs.push({ url: url, size: obj.size, type: obj.type || '' });
    } catch (e) {}
    return url;
  };

  const click = HTMLElement.prototype.click;
  HTMLElement.prototype.click = function () {
    if (this.tagName === 'A' && this.hasAttribute('download')) record(this);
    return click.apply(this, arguments);
  };

  const watch = () => new MutationObserver((ms) => ms.forEach((m) => m.addedNodes.forEach((n) => {
    if (n.nodeType === 1 && n.matches('a[download]')) record(n);
  }))).observe(document.documentElement, { childList: true, subtree: true });
  if (document.documentElement) watch(); else document.addEventListener('DOMContentLoaded', watch);
})();`

// findFunc returns the first visible element for a locator. Text matches
// prefer the element with the shortest text, which is the innermost one.
const findFunc = `function (by, query, texts) {
  const visible = (el) => !!(el.offsetWidth || el.offsetHeight || el.getClientRects().length);
  if (by === 'xpath') {
    const r = document.evaluate(query, document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
    for (let i = 0; i < r.snapshotLength; i++) {
      const n = r.snapshotItem(i);
      if (n.nodeType === 1 && visible(n)) return n;
    }
    return null;
  }
  const els = Array.from(document.querySelectorAll(query)).filter(visible);
  if (by === 'css') return els[0] || null;
  const label = (el) => (el.innerText || el.textContent || '').trim();
  const hits = els.filter((el) => (texts || []).some((t) => label(el).includes(t)));
  hits.sort((a, b) => label(a).length - label(b).length);
  return hits[0] || null;
}`

const (
	existsBody  = `return !!el;`
	clickBody   = `if (!el) return false; el.scrollIntoView({ block: 'center' }); el.click(); return true;`
	enabledBody = `if (!el) return { found: false, enabled: false };
  const disabled = el.disabled === true || el.getAttribute('aria-disabled') === 'true';
  return { found: true, enabled: !disabled };`

	bodyTextExpr = `document.body ? document.body.innerText : ''`

	drainBlobsExpr = `(window.__jsync ? window.__jsync.blobs.splice(0) : [])`
	drainLinksExpr = `(() => {
  const out = window.__jsync ? window.__jsync.links.splice(0) : [];
  document.querySelectorAll('a[download]').forEach((a) => {
    if (a.dataset.jsyncSeen) return;
    a.dataset.jsyncSeen = '1';
    out.push({ href: a.href, filename: a.getAttribute('download') || '' });
  });
  return out;
})()`
)

// onElement builds an expression that locates loc and runs body with the
// element bound to el (null when nothing matched).
func onElement(loc export.Locator, body string) string {
	by := "css"
	switch loc.By {
	case export.ByXPath:
		by = "xpath"
	case export.ByText:
		by = "text"
	}
	texts := loc.Text
	if texts == nil {
		texts = []string{}
	}
	args, _ := json.Marshal([]any{by, loc.Query, texts})
	return fmt.Sprintf("(() => { const el = (%s).apply(null, %s); %s })()", findFunc, args, body)
}

// fetchBlobExpr reads an object URL and resolves to its base64 content.
func fetchBlobExpr(url string) string {
	u, _ := json.Marshal(url)
	return fmt.Sprintf(`fetch(%s)
  .then((r) => r.blob())
  .then((b) => new Promise((resolve, reject) => {
    const fr = new FileReader();
    fr.onload = () => resolve(String(fr.result).split(',')[1] || '');
    fr.onerror = () => reject(fr.error);
    fr.readAsDataURL(b);
  }))`, u)
}
