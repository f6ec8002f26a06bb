// Package tui is a terminal front end for a single console.
//
// The Editor is the console's surface; the UI draws it with tcell, maps
// keys to console operations and shows pending suggestions as a unified
// diff:
//
//	Ctrl-Z / Ctrl-Y   undo / redo
//	Ctrl-S            persist
//	Ctrl-R / Ctrl-G   prompt the script / language-model producer
//	Ctrl-A / Esc      accept / reject the pending suggestion
//	Ctrl-Q            quit
package tui
