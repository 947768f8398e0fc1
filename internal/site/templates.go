package site

import "html/template"

// styleCSS is the shared stylesheet, with light/dark themes driven by the
// data-theme attribute toggled in themeScript.
const styleCSS = `:root {
    --bg-color: #f4f4f4;
    --container-bg: #fff;
    --text-color: #333;
    --heading-color: #2c3e50;
    --link-color: #3498db;
    --nav-border: #eee;
    --chapter-link-bg: #f9f9f9;
    --chapter-link-hover: #e9e9e9;
}

[data-theme="dark"] {
    --bg-color: #1a1a1a;
    --container-bg: #2d2d2d;
    --text-color: #e0e0e0;
    --heading-color: #ecf0f1;
    --link-color: #5dade2;
    --nav-border: #444;
    --chapter-link-bg: #3d3d3d;
    --chapter-link-hover: #4d4d4d;
}

body {
    font-family: 'Merriweather', Georgia, serif;
    line-height: 1.8;
    max-width: 800px;
    margin: 0 auto;
    padding: 20px;
    background-color: var(--bg-color);
    color: var(--text-color);
    transition: background-color 0.3s, color 0.3s;
}
.container {
    background-color: var(--container-bg);
    padding: 30px;
    border-radius: 8px;
    box-shadow: 0 2px 5px rgba(0,0,0,0.1);
    transition: background-color 0.3s;
}
h1 {
    text-align: center;
    color: var(--heading-color);
    margin-bottom: 30px;
}
p {
    margin-bottom: 1.5em;
}
.nav {
    display: flex;
    justify-content: space-between;
    margin-top: 40px;
    padding-top: 20px;
    border-top: 1px solid var(--nav-border);
}
.nav a {
    text-decoration: none;
    color: var(--link-color);
    font-weight: bold;
}
.nav a:hover {
    text-decoration: underline;
}
.chapter-list {
    list-style: none;
    padding: 0;
}
.chapter-list li {
    margin-bottom: 10px;
}
.chapter-list a {
    text-decoration: none;
    color: var(--text-color);
    display: block;
    padding: 10px;
    background: var(--chapter-link-bg);
    border-radius: 4px;
    transition: background 0.2s;
}
.chapter-list a:hover {
    background: var(--chapter-link-hover);
}
.theme-toggle {
    position: fixed;
    top: 20px;
    right: 20px;
    padding: 10px;
    border-radius: 50%;
    background: var(--container-bg);
    border: 1px solid var(--nav-border);
    cursor: pointer;
    box-shadow: 0 2px 5px rgba(0,0,0,0.1);
    font-size: 1.2em;
    z-index: 100;
}
`

// themeScript persists the reader's theme choice in localStorage.
const themeScript = `<script>
    const toggleButton = document.getElementById('theme-toggle');
    const currentTheme = localStorage.getItem('theme');

    if (currentTheme) {
        document.documentElement.setAttribute('data-theme', currentTheme);
        toggleButton.textContent = currentTheme === 'dark' ? '☀️' : '🌙';
    }

    toggleButton.addEventListener('click', () => {
        let theme = document.documentElement.getAttribute('data-theme');
        if (theme === 'dark') {
            document.documentElement.setAttribute('data-theme', 'light');
            localStorage.setItem('theme', 'light');
            toggleButton.textContent = '🌙';
        } else {
            document.documentElement.setAttribute('data-theme', 'dark');
            localStorage.setItem('theme', 'dark');
            toggleButton.textContent = '☀️';
        }
    });
</script>`

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <link rel="stylesheet" href="style.css">
</head>
<body>
    <button id="theme-toggle" class="theme-toggle">&#127769;</button>
    <div class="container">
        <h1>{{.Heading}}</h1>
        <ul class="chapter-list">
{{- range .Entries}}
            <li><a href="{{.Href}}">{{.Title}}</a></li>
{{- end}}
        </ul>
    </div>
    {{.Script}}
</body>
</html>
`))

var chapterTemplate = template.Must(template.New("chapter").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <link rel="stylesheet" href="style.css">
    <link href="https://fonts.googleapis.com/css2?family=Merriweather:wght@300;400;700&display=swap" rel="stylesheet">
</head>
<body>
    <button id="theme-toggle" class="theme-toggle">&#127769;</button>
    <div class="container">
        <div class="nav">
            <a href="index.html">Home</a>
        </div>
        {{.Content}}
        <div class="nav">
            <a href="{{if .Prev}}{{.Prev}}{{else}}#{{end}}" style="visibility: {{if .Prev}}visible{{else}}hidden{{end}}">&larr; Previous</a>
            <a href="{{if .Next}}{{.Next}}{{else}}#{{end}}" style="visibility: {{if .Next}}visible{{else}}hidden{{end}}">Next &rarr;</a>
        </div>
    </div>
    {{.Script}}
</body>
</html>
`))

type indexEntry struct {
	Href  string
	Title string
}

type indexData struct {
	Title   string
	Heading string
	Entries []indexEntry
	Script  template.HTML
}

type chapterData struct {
	Title   string
	Content template.HTML
	Prev    string
	Next    string
	Script  template.HTML
}
