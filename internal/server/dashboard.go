package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) serveDashboard(c *gin.Context) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK, dashboardHTML)
}

// dashboardHTML is the single-page dashboard. It talks to the JSON API
// with fetch() so the binary stays self-contained.
const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>CredLens - Provider Data Quality</title>
<style>
  * { box-sizing: border-box; margin: 0; padding: 0; }
  body { font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; background: #0f1419; color: #e6e6e6; }
  header { padding: 20px 30px; border-bottom: 1px solid #2a3038; display: flex; align-items: baseline; gap: 14px; }
  header h1 { font-size: 20px; color: #4fc3f7; }
  header span { color: #8a939e; font-size: 13px; }
  main { padding: 24px 30px; max-width: 1100px; margin: 0 auto; }
  .cards { display: grid; grid-template-columns: repeat(auto-fit, minmax(160px, 1fr)); gap: 14px; margin-bottom: 26px; }
  .card { background: #1a2027; border: 1px solid #2a3038; border-radius: 8px; padding: 16px; }
  .card .label { font-size: 12px; color: #8a939e; text-transform: uppercase; letter-spacing: 0.5px; }
  .card .value { font-size: 26px; font-weight: 600; margin-top: 6px; }
  .card .sub { font-size: 12px; color: #8a939e; margin-top: 2px; }
  .good { color: #66bb6a; } .warn { color: #ffb74d; } .bad { color: #ef5350; }
  section { margin-bottom: 28px; }
  section h2 { font-size: 15px; color: #b0bac4; margin-bottom: 10px; }
  table { width: 100%; border-collapse: collapse; font-size: 13px; }
  th, td { text-align: left; padding: 7px 10px; border-bottom: 1px solid #242a31; }
  th { color: #8a939e; font-weight: 500; }
  #ask { display: flex; gap: 10px; margin-bottom: 12px; }
  #question { flex: 1; padding: 10px 12px; background: #1a2027; border: 1px solid #2a3038;
              border-radius: 6px; color: #e6e6e6; font-size: 14px; }
  #ask button { padding: 10px 18px; background: #1565c0; color: #fff; border: 0;
                border-radius: 6px; cursor: pointer; font-size: 14px; }
  #ask button:hover { background: #1976d2; }
  #answer { background: #1a2027; border: 1px solid #2a3038; border-radius: 8px;
            padding: 14px 16px; white-space: pre-wrap; min-height: 20px; }
  #trace { font-size: 12px; color: #8a939e; margin-top: 6px; }
  .chips { margin-top: 10px; display: flex; flex-wrap: wrap; gap: 8px; }
  .chips button { padding: 5px 12px; background: transparent; border: 1px solid #2a3038;
                  border-radius: 14px; color: #8a939e; cursor: pointer; font-size: 12px; }
  .chips button:hover { border-color: #4fc3f7; color: #4fc3f7; }
  #error { color: #ef5350; padding: 10px 0; }
</style>
</head>
<body>
<header><h1>CredLens</h1><span>provider roster data quality</span></header>
<main>
  <div id="error"></div>
  <div class="cards" id="cards"></div>

  <section>
    <h2>Ask a question</h2>
    <div id="ask">
      <input id="question" placeholder="e.g. How many providers have expired licenses?"
             onkeydown="if(event.key==='Enter')runQuery()">
      <button onclick="runQuery()">Ask</button>
    </div>
    <div id="answer">Ask about license expirations, NPI validation, duplicates, or quality scores.</div>
    <div id="trace"></div>
    <div class="chips" id="chips"></div>
  </section>

  <section>
    <h2>Issues by state</h2>
    <table id="states"><thead><tr>
      <th>State</th><th>Providers</th><th>Expired</th><th>Missing NPI</th>
      <th>Phone</th><th>Duplicates</th><th>Total issues</th>
    </tr></thead><tbody></tbody></table>
  </section>

  <section>
    <h2>Issues by specialty</h2>
    <table id="specialties"><thead><tr>
      <th>Specialty</th><th>Providers</th><th>Expired</th><th>Missing NPI</th>
      <th>Phone</th><th>Total issues</th>
    </tr></thead><tbody></tbody></table>
  </section>
</main>
<script>
function scoreClass(v) { return v >= 80 ? 'good' : v >= 60 ? 'warn' : 'bad'; }

function card(label, value, cls, sub) {
  return '<div class="card"><div class="label">' + label + '</div>' +
         '<div class="value ' + (cls || '') + '">' + value + '</div>' +
         (sub ? '<div class="sub">' + sub + '</div>' : '') + '</div>';
}

async function getJSON(path) {
  const res = await fetch(path);
  if (!res.ok) throw new Error(path + ': ' + res.status);
  return res.json();
}

async function loadSummary() {
  const s = await getJSON('/api/summary');
  const el = document.getElementById('cards');
  el.innerHTML =
    card('Quality score', s.score.toFixed(1), scoreClass(s.score), 'weighted 0-100') +
    card('Providers', s.total_providers) +
    card('Expired licenses', s.expired_licenses.count,
         s.expired_licenses.count > 0 ? 'bad' : 'good',
         s.expired_licenses.percentage.toFixed(1) + '%') +
    card('Missing NPI', s.missing_npi.count,
         s.missing_npi.count > 0 ? 'warn' : 'good',
         s.missing_npi.percentage.toFixed(1) + '%') +
    card('Phone issues', s.phone_issues.count,
         s.phone_issues.count > 0 ? 'warn' : 'good',
         s.phone_issues.percentage.toFixed(1) + '%') +
    card('Duplicate suspects', s.duplicates.count,
         s.duplicates.count > 0 ? 'warn' : 'good',
         s.duplicates.percentage.toFixed(1) + '%');
}

async function loadStates() {
  const rows = await getJSON('/api/issues/by-state');
  const body = document.querySelector('#states tbody');
  body.innerHTML = rows.map(r =>
    '<tr><td>' + r.state + '</td><td>' + r.total_records + '</td><td>' + r.expired_licenses +
    '</td><td>' + r.missing_npi + '</td><td>' + r.phone_issues + '</td><td>' +
    r.duplicates + '</td><td>' + (r.expired_licenses + r.missing_npi + r.phone_issues + r.duplicates) +
    '</td></tr>').join('');
}

async function loadSpecialties() {
  const rows = await getJSON('/api/issues/by-specialty');
  const body = document.querySelector('#specialties tbody');
  body.innerHTML = rows.map(r =>
    '<tr><td>' + r.specialty + '</td><td>' + r.total_records + '</td><td>' + r.expired_licenses +
    '</td><td>' + r.missing_npi + '</td><td>' + r.phone_issues + '</td><td>' +
    (r.expired_licenses + r.missing_npi + r.phone_issues) + '</td></tr>').join('');
}

async function runQuery(q) {
  const input = document.getElementById('question');
  const question = q || input.value.trim();
  if (!question) return;
  if (q) input.value = q;
  document.getElementById('answer').textContent = 'Thinking...';
  document.getElementById('trace').textContent = '';
  try {
    const res = await fetch('/api/query', {
      method: 'POST',
      headers: { 'Content-Type': 'application/json' },
      body: JSON.stringify({ question })
    });
    const data = await res.json();
    if (!res.ok) throw new Error(data.error || res.status);
    document.getElementById('answer').textContent = data.answer.text;
    document.getElementById('trace').textContent =
      'intent: ' + data.resolution.intent + ' (' + data.resolution.method + ')';
    const chips = document.getElementById('chips');
    chips.innerHTML = (data.answer.follow_ups || []).map(f =>
      '<button onclick="runQuery(this.textContent)">' + f + '</button>').join('');
  } catch (err) {
    document.getElementById('answer').textContent = 'Query failed: ' + err.message;
  }
}

(async function init() {
  try {
    await Promise.all([loadSummary(), loadStates(), loadSpecialties()]);
  } catch (err) {
    document.getElementById('error').textContent =
      'Dashboard unavailable: ' + err.message + ' (is a roster loaded?)';
  }
})();
</script>
</body>
</html>
`
