package server

import (
	"html/template"
	"log/slog"
	"net/http"

	"github.com/timemachinetv/timemachine/internal/httputil"
	"github.com/timemachinetv/timemachine/internal/request"
	"github.com/timemachinetv/timemachine/internal/validate"
)

type pageData struct {
	Nonce           string
	SessionID       string
	Form            request.Params
	PreviewURL      string
	MediaProbe      bool
	MaxPromptLength int
	MaxKeyLength    int
	Qualities       []request.Quality
}

// handlePage renders the widget. Every page load gets a fresh session, so a
// reload starts from the defaults.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Create()
	snap := sess.Snapshot()

	data := pageData{
		Nonce:           httputil.NonceFromContext(r.Context()),
		SessionID:       snap.ID,
		Form:            snap.Form,
		PreviewURL:      request.Build(s.sessions.BaseURL(), snap.Form),
		MediaProbe:      s.mediaProbe,
		MaxPromptLength: validate.MaxPromptLength,
		MaxKeyLength:    validate.MaxKeyLength,
		Qualities:       []request.Quality{request.QualityHigh, request.QualityMedium, request.QualityLow},
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := pageTemplate.Execute(w, data); err != nil {
		slog.Error("page: template execution failed", "error", err)
	}
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>TimeMachine TV</title>
    <style nonce="{{.Nonce}}">
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            background: linear-gradient(135deg, #0f172a, #312e81 50%, #1e293b);
            color: #f1f5f9;
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
            min-height: 100vh;
            display: flex;
            align-items: center;
            justify-content: center;
            padding: 1.5rem;
        }
        .card {
            width: 100%;
            max-width: 960px;
            background: rgba(255,255,255,0.05);
            border-radius: 16px;
            padding: 1.5rem;
        }
        header { display: flex; justify-content: space-between; align-items: center; margin-bottom: 1.5rem; }
        h1 { font-size: 1.875rem; font-weight: 800; }
        .sub { color: #cbd5e1; margin-top: 0.25rem; }
        .presets button { padding: 0.25rem 0.75rem; border-radius: 8px; border: 0; background: rgba(255,255,255,0.05); color: #e2e8f0; cursor: pointer; }
        .presets button.active[data-preset="tv-plus"] { background: #4f46e5; color: #fff; }
        .presets button.active[data-preset="tv-pro"] { background: #e11d48; color: #fff; }
        .presets small { display: block; font-size: 0.75rem; }
        main { display: grid; grid-template-columns: 1fr 2fr; gap: 1.5rem; }
        @media (max-width: 768px) { main { grid-template-columns: 1fr; } }
        label { color: #e2e8f0; }
        textarea, input[type=text], select {
            width: 100%; border-radius: 8px; padding: 0.5rem; border: 0;
            background: rgba(255,255,255,0.05); color: #f1f5f9;
        }
        form > * + * { margin-top: 0.75rem; }
        .flags { display: flex; gap: 0.75rem; flex-wrap: wrap; color: #cbd5e1; }
        .actions { display: flex; gap: 0.5rem; }
        .actions button { padding: 0.5rem 1rem; border-radius: 8px; border: 0; cursor: pointer; color: #fff; background: rgba(255,255,255,0.05); }
        .actions button.primary { flex: 1; background: linear-gradient(90deg, #6366f1, #f43f5e); font-weight: 600; }
        .hint { font-size: 0.75rem; color: #94a3b8; }
        .error { font-size: 0.875rem; color: #fb7185; }
        .error:empty { display: none; }
        #preview-url { font-size: 0.75rem; }
        .stage {
            border-radius: 16px; background: rgba(0,0,0,0.4); padding: 1rem;
            min-height: 320px; display: flex; align-items: center; justify-content: center;
        }
        .stage video { width: 100%; max-height: 560px; border-radius: 12px; }
        .toolbar { display: flex; justify-content: space-between; align-items: center; margin-bottom: 1rem; }
        .toolbar a, .toolbar button { padding: 0.25rem 0.75rem; border-radius: 6px; background: rgba(255,255,255,0.05); color: #f1f5f9; border: 0; text-decoration: none; cursor: pointer; }
        [hidden] { display: none !important; }
        footer { margin-top: 1.5rem; font-size: 0.875rem; color: #94a3b8; display: flex; justify-content: space-between; }
    </style>
</head>
<body data-session="{{.SessionID}}" data-probe="{{.MediaProbe}}">
<div class="card">
    <header>
        <div>
            <h1>TimeMachine TV</h1>
            <p class="sub">Simple, beautiful video generator: TV Plus &amp; TV Pro.</p>
        </div>
        <div class="presets">
            <div class="hint">Model</div>
            <button type="button" data-preset="tv-plus"{{if eq .Form.Preset.String "tv-plus"}} class="active"{{end}}>TV Plus<small>seedance</small></button>
            <button type="button" data-preset="tv-pro"{{if eq .Form.Preset.String "tv-pro"}} class="active"{{end}}>TV Pro<small>veo</small></button>
        </div>
    </header>

    <main>
        <form id="generate-form">
            <label for="prompt">Prompt</label>
            <textarea id="prompt" name="prompt" rows="6" maxlength="{{.MaxPromptLength}}" placeholder="Describe the scene you want the model to generate...">{{.Form.Prompt}}</textarea>

            <label for="key">Key (editable)</label>
            <input id="key" name="key" type="text" maxlength="{{.MaxKeyLength}}" value="{{.Form.Key}}" autocomplete="off">

            <div class="flags">
                <label><input id="private" type="checkbox"{{if .Form.Private}} checked{{end}}> private</label>
                <label><input id="enhance" type="checkbox"{{if .Form.Enhance}} checked{{end}}> enhance</label>
                <label><input id="nologo" type="checkbox"{{if .Form.NoLogo}} checked{{end}}> nologo</label>
            </div>

            <label for="quality">Quality</label>
            <select id="quality">
                {{range .Qualities}}<option value="{{.}}"{{if eq . $.Form.Quality}} selected{{end}}>{{.}}</option>{{end}}
            </select>

            <div class="actions">
                <button type="submit" class="primary">Generate</button>
                <button type="button" id="reset">Reset</button>
            </div>

            <p class="hint">This UI constructs a Pollinations generation URL and tries to load the returned media directly. If the endpoint returns HTML or requires server-side handling the preview will fail.</p>
            <p class="error" id="error"></p>

            <p class="hint">Constructed URL (read-only)</p>
            <input id="preview-url" type="text" readonly value="{{.PreviewURL}}">
        </form>

        <section>
            <div class="toolbar">
                <div>
                    <h2>Preview</h2>
                    <p class="hint">Video will appear here after you click Generate.</p>
                </div>
                <div>
                    <a id="open-link" href="/api/sessions/{{.SessionID}}/open" target="_blank" rel="noreferrer">Open link</a>
                    <button type="button" id="download" disabled>Download</button>
                </div>
            </div>
            <div class="stage">
                <div id="loading" hidden>Loading...</div>
                <div id="empty">No video yet. Enter a prompt and click Generate.</div>
                <video id="player" controls hidden></video>
            </div>
            <p class="hint">Tip: if the preview does not load, click "Open link" to open the generated URL in a new tab.</p>
        </section>
    </main>

    <footer>
        <div>TimeMachine TV</div>
        <div>Models: TV Plus (seedance) &middot; TV Pro (veo)</div>
    </footer>
</div>
<script nonce="{{.Nonce}}">
(function () {
    var body = document.body;
    var sessionID = body.dataset.session;
    var probe = body.dataset.probe === "true";
    var api = "/api/sessions/" + sessionID;
    var preset = document.querySelector(".presets .active").dataset.preset;

    var el = function (id) { return document.getElementById(id); };
    var player = el("player");
    var current = { token: 0, status: "idle" };
    var pending = null;

    function form() {
        return {
            prompt: el("prompt").value,
            preset: preset,
            private: el("private").checked,
            enhance: el("enhance").checked,
            nologo: el("nologo").checked,
            quality: el("quality").value,
            key: el("key").value
        };
    }

    function refreshPreview() {
        if (current.requestUrl) { return; }
        var f = form();
        var q = new URLSearchParams();
        Object.keys(f).forEach(function (k) { q.set(k, String(f[k])); });
        fetch("/api/preview?" + q.toString())
            .then(function (r) { return r.json(); })
            .then(function (data) { if (data.url) { el("preview-url").value = data.url; } });
    }

    function render(snap) {
        var a = snap.attempt;
        if (a.token < current.token) { return; }
        var previous = current;
        current = a;

        el("error").textContent = a.errorMessage || "";
        el("loading").hidden = a.status !== "loading";
        el("empty").hidden = a.status === "loading" || !!a.requestUrl;
        el("download").disabled = !a.requestUrl;
        if (a.requestUrl) { el("preview-url").value = a.requestUrl; }

        if (!a.requestUrl) {
            player.hidden = true;
            player.pause();
            player.removeAttribute("src");
            pending = null;
            if (snap.form && snap.form.prompt === "") { el("prompt").value = ""; }
            refreshPreview();
            return;
        }

        player.hidden = false;
        if (a.status === "loading" && previous.token !== a.token) {
            pending = a.token;
            player.pause();
            player.src = a.requestUrl;
            player.load();
        }
    }

    function report(event) {
        if (probe || pending === null) { return; }
        var token = pending;
        pending = null;
        fetch(api + "/media", {
            method: "POST",
            headers: { "Content-Type": "application/json" },
            body: JSON.stringify({ token: token, event: event })
        }).then(function (r) { return r.json(); }).then(render);
    }

    function post(path, payload) {
        return fetch(api + path, {
            method: "POST",
            headers: { "Content-Type": "application/json" },
            body: payload ? JSON.stringify(payload) : "{}"
        }).then(function (r) {
            return r.json().then(function (data) {
                if (!r.ok) { el("error").textContent = data.error || "Request failed."; return; }
                render(data);
            });
        });
    }

    player.addEventListener("loadeddata", function () { report("loaded"); });
    player.addEventListener("error", function () { report("error"); });

    el("generate-form").addEventListener("submit", function (e) {
        e.preventDefault();
        post("/submit", form());
    });
    el("reset").addEventListener("click", function () { post("/reset"); });
    el("download").addEventListener("click", function () {
        fetch(api + "/download").then(function (r) { return r.ok ? r.json() : null; }).then(function (d) {
            if (!d) { return; }
            var link = document.createElement("a");
            link.href = d.url;
            link.download = d.filename;
            link.target = "_blank";
            document.body.appendChild(link);
            link.click();
            link.remove();
        });
    });
    document.querySelectorAll(".presets button").forEach(function (b) {
        b.addEventListener("click", function () {
            preset = b.dataset.preset;
            document.querySelectorAll(".presets button").forEach(function (o) { o.classList.toggle("active", o === b); });
            refreshPreview();
        });
    });
    ["prompt", "key", "private", "enhance", "nologo", "quality"].forEach(function (id) {
        el(id).addEventListener("input", refreshPreview);
        el(id).addEventListener("change", refreshPreview);
    });

    var scheme = location.protocol === "https:" ? "wss://" : "ws://";
    var socket = new WebSocket(scheme + location.host + api + "/events");
    socket.addEventListener("message", function (m) { render(JSON.parse(m.data)); });
}());
</script>
</body>
</html>
`))
