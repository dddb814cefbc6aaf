package main

import (
	"fmt"
	"os"

	"cairn.systems/objectstate/object"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: addr_cid <0xhex-address>")
		os.Exit(2)
	}
	addr, err := object.Parse(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse: %v\n", err)
		os.Exit(1)
	}
	c, err := addr.CID()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cid: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(c.String())
}
