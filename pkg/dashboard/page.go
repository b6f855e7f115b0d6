package dashboard

import "net/http"

func (h *Handler) index(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexHTML))
}

const indexHTML = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Churn risk dashboard</title>
<style>
body{font-family:system-ui,sans-serif;margin:2rem;color:#222}
.kpis{display:flex;gap:1rem;flex-wrap:wrap;margin:1rem 0}
.kpi{border:1px solid #ddd;border-radius:8px;padding:.8rem 1.2rem;min-width:8rem}
.kpi b{display:block;font-size:1.5rem}
table{border-collapse:collapse;font-size:.85rem}
td,th{border:1px solid #ddd;padding:.25rem .5rem}
fieldset{display:inline-block;margin-right:1rem}
</style>
</head>
<body>
<h1>Churn risk dashboard</h1>
<form id="filters">
  <fieldset><legend>Segment</legend>
    <label><input type="checkbox" name="segment" value="Low" checked> Low</label>
    <label><input type="checkbox" name="segment" value="Medium" checked> Medium</label>
    <label><input type="checkbox" name="segment" value="High" checked> High</label>
  </fieldset>
  <fieldset><legend>Churn</legend>
    <label><input type="checkbox" name="churn" value="0" checked> Active</label>
    <label><input type="checkbox" name="churn" value="1" checked> Churned</label>
  </fieldset>
  <a id="export" href="/api/export.csv">Download CSV</a>
</form>
<div class="kpis" id="kpis"></div>
<table id="customers"></table>
<script>
const form = document.getElementById('filters');
function query() { return new URLSearchParams(new FormData(form)).toString(); }
function kpi(label, value) { return '<div class="kpi">' + label + '<b>' + value + '</b></div>'; }
function esc(s) { const d = document.createElement('div'); d.textContent = s; return d.innerHTML; }
async function refresh() {
  const q = query();
  document.getElementById('export').href = '/api/export.csv?' + q;
  const s = (await (await fetch('/api/summary?' + q)).json()).data;
  const k = s.kpis;
  document.getElementById('kpis').innerHTML =
    kpi('Customers', s.filtered + ' / ' + s.total) + kpi('Active', k.active) + kpi('Churned', k.churned) +
    kpi('High risk', k.high_risk) + kpi('Mean P(churn)', k.mean_probability.toFixed(3)) +
    k.by_churn.map(g => kpi('Churn=' + g.churn + ' tenure / cashback',
      g.mean_tenure.toFixed(1) + ' / ' + g.mean_cashback.toFixed(1))).join('');
  const page = (await (await fetch('/api/customers?' + q)).json()).data;
  document.getElementById('customers').innerHTML =
    '<tr>' + page.columns.map(c => '<th>' + esc(c) + '</th>').join('') + '</tr>' +
    page.rows.map(r => '<tr>' + r.map(v => '<td>' + esc(v) + '</td>').join('') + '</tr>').join('');
}
form.addEventListener('change', refresh);
refresh();
</script>
</body>
</html>
`
