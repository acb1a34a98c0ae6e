// Package textutil provides filename sanitization and display-title
// helpers shared by the operation managers and the CLI.
package textutil
