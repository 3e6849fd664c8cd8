package server

import "html/template"

var pageTemplates = template.Must(template.New("pages").Parse(`
{{define "layout_top"}}<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
{{end}}

{{define "layout_bottom"}}</body>
</html>
{{end}}

{{define "page.html"}}{{template "layout_top" .}}
<p>{{.Message}}</p>
{{if .SignedIn}}<form method="post" action="/sign-out"><button type="submit">Sign out</button></form>{{end}}
{{template "layout_bottom" .}}{{end}}

{{define "sign-in.html"}}{{template "layout_top" .}}
<form method="post" action="/sign-in">
  <label>Email <input type="email" name="email" value="{{.Email}}" required></label>
  <label>Password <input type="password" name="password" required></label>
  <button type="submit">Sign in</button>
</form>
<p><a href="/sign-up">Create an account</a></p>
{{template "layout_bottom" .}}{{end}}

{{define "sign-up.html"}}{{template "layout_top" .}}
<form method="post" action="/sign-up">
  <label>Name <input type="text" name="name" value="{{.Name}}" required></label>
  <label>Email <input type="email" name="email" value="{{.Email}}" required></label>
  <label>Password <input type="password" name="password" minlength="8" required></label>
  <button type="submit">Sign up</button>
</form>
<p><a href="/sign-in">Already have an account?</a></p>
{{template "layout_bottom" .}}{{end}}
`))

// pageData is rendered by every page template
type pageData struct {
	Title    string
	Message  string
	Error    string
	Email    string
	Name     string
	SignedIn bool
}
