package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RegisterPages serves the Mini App shell for page paths. The edge guard must
// run in front of it; the shell itself asks /api/v1/session what to render.
func RegisterPages(r *gin.Engine) {
	for _, p := range []string{"/", "/onboarding", "/blocked"} {
		r.GET(p, shell)
	}
	r.NoRoute(func(c *gin.Context) {
		if c.Request.Method != http.MethodGet || strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		shell(c)
	})
}

func shell(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(shellHTML))
}

const shellHTML = `<!doctype html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Marketplace</title>
<script src="https://telegram.org/js/telegram-web-app.js"></script>
</head>
<body>
<div id="app" data-view="loading">Loading…</div>
<script>
(async function () {
  const app = document.getElementById("app");
  const show = (view, text) => { app.dataset.view = view; app.textContent = text; };
  try {
    const res = await fetch("/api/v1/session", {
      method: "POST",
      headers: { "X-Telegram-Init-Data": window.Telegram.WebApp.initData },
    });
    const s = await res.json();
    switch (s.view) {
      case "allowed": show("allowed", "Marketplace"); break;
      case "onboarding": show("onboarding", "Tell us where to deliver"); break;
      case "blocked": show("blocked", "Your account has been blocked"); break;
      default: show("error", "Couldn't load your session, retry");
    }
  } catch (e) {
    show("error", "Couldn't load your session, retry");
  }
})();
</script>
</body>
</html>
`

const loginHTML = `<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>Sign in</title>
<script src="https://telegram.org/js/telegram-web-app.js"></script>
</head>
<body>
<p id="status">Signing in…</p>
<script>
(async function () {
  const body = new URLSearchParams({ init_data: window.Telegram.WebApp.initData });
  const res = await fetch(location.pathname, { method: "POST", body, credentials: "include" });
  if (res.ok) {
    location.replace("/");
  } else {
    document.getElementById("status").textContent = "Open this page from the Telegram bot";
  }
})();
</script>
</body>
</html>
`
