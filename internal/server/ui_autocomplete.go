package server

import "net/http"

const uiAutocompleteJS = `(function () {
  const script = document.currentScript;
  const base = (script && script.dataset.base) || '/';
  const input = document.getElementById('pkg-select');
  const list = document.getElementById('pkg-suggestions');
  if (!input || !list) return;
  let timer = null;
  let seq = 0;
  input.addEventListener('input', function () {
    clearTimeout(timer);
    const q = input.value.trim();
    if (q.length < 2) return;
    timer = setTimeout(function () {
      const mine = ++seq;
      fetch(base + 'autocomplete?q=' + encodeURIComponent(q), { cache: 'no-store' })
        .then(function (res) { return res.ok ? res.json() : { results: [] }; })
        .then(function (data) {
          if (mine !== seq) return;
          list.innerHTML = '';
          (data.results || []).forEach(function (r) {
            const opt = document.createElement('option');
            opt.value = r.id;
            opt.textContent = r.text;
            list.appendChild(opt);
          });
        })
        .catch(function () {});
    }, 200);
  });
})();
`

func autocompleteScriptHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write([]byte(uiAutocompleteJS))
}
