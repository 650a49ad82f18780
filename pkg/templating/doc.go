/*
Package templating renders plain-text reports from filesystem-based Go
templates whose fields are laid out with fieldfmt directives.

Templates live in a "templates" directory: files ending in .tmpl are full
templates that can be executed by name, files ending in .part only contribute
{{define}} blocks. Both are reloaded by Refresh without restarting.

The function map adds field formatting to text/template:

	{{ .Name  | field "l=20" }}
	{{ .Price | field "l=10&t=_&a=1&f=#,##0.00" }}
	{{ .Due   | asDate | field "l=12&a=1&f=dd MMM yyyy" }}
	{{ .Total | preset "money" }}

Safety limits in TemplateConfig bound the field length and repeat counts a
template may request.
*/
package templating
