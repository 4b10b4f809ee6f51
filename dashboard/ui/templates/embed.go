// Package templates holds the embedded HTML of the dispatch dashboard.
package templates

import "embed"

//go:embed *.html partials/*.html
var FS embed.FS
