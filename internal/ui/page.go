package ui

import "html/template"

var page = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Article Summarizer</title>
<style>
body { font-family: sans-serif; max-width: 52rem; margin: 2rem auto; padding: 0 1rem; }
input[type=text], textarea { width: 100%; box-sizing: border-box; margin-bottom: .75rem; }
.summary { background: #f4f6f8; padding: 1rem; white-space: pre-wrap; }
.error { background: #fdecea; color: #8a1c1c; padding: 1rem; }
</style>
</head>
<body>
<h1>Article Summarizer</h1>
<form method="post" action="/">
<label for="url">Article URL</label>
<input type="text" id="url" name="url" value="{{.Input}}" placeholder="https://www.asiaone.com/...">
<label for="prompt">Instruction (optional)</label>
<textarea id="prompt" name="prompt" rows="3">{{.Instruction}}</textarea>
<button type="submit">Summarize</button>
</form>
{{if not .Ready}}<p class="error">Model is not ready ({{.ModelState}}). Summaries will fail until it loads.</p>{{end}}
{{with .Error}}<div class="error"><strong>{{.Kind}}</strong>: {{.Message}}</div>{{end}}
{{with .Result}}
<h2>{{if .Title}}{{.Title}}{{else}}Summary{{end}}</h2>
<p><a href="{{.URL}}">{{.URL}}</a></p>
<div class="summary">{{.Summary}}</div>
<details>
<summary>Source text</summary>
<p>{{.SourceText}}</p>
</details>
{{end}}
</body>
</html>
`))
