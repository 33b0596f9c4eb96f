// Command bloomctl creates, inspects and combines bloom filter files and
// runs the membership service.
package main

import "github.com/jcalabro/bloomset/cmd/bloomctl/cli"

func main() {
	cli.Execute()
}
