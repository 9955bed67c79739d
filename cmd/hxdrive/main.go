package main

import (
	"fmt"
	"os"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "drive":
		err = runDrive(os.Args[2:])
	case "demo":
		err = runDemo(os.Args[2:])
	case "version":
		fmt.Println("hxdrive", version)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`hxdrive - headless driver for hx-* annotated pages

Usage:
  hxdrive drive -script <file.yaml>   run a scripted interaction against a live page
  hxdrive demo [-addr :8080]          serve the demo application
  hxdrive version                     print the version

A drive script opens a page, fires DOM events, and prints selected
fragments of the resulting document. See the repository README for the
script format.`)
}
