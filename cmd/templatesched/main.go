// Command templatesched is the invocable runner named in spec §6: it
// loads a pattern through pkg/store, drives a solve through pkg/solve,
// and writes the resulting schedule to disk or stdout.
package main

import "os"

func main() {
	os.Exit(Execute())
}
