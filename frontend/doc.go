// Package frontend provides the graphical display, keypad and tone
// generator for the interpreter.
//
// Building with the 'headless' tag replaces the window with a stub that
// refuses to run and the tone generator with a silent one.
package frontend
