// Package security validates command lines before they reach a shell.
//
// A Validator applies a glob-based block list, an optional allow list and a
// length limit, and grades what it lets through by risk. Each pattern is
// matched against the whole command line and, per ; | & separated segment,
// against the segment text, its executable and the executable's basename.
// So "shutdown" blocks "/sbin/shutdown -h now" and "ls; shutdown".
package security
