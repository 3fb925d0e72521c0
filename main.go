// ABOUTME: Entry point for the nuconnect CRM backend
// ABOUTME: Delegates to the cobra command tree
package main

import (
	"nuconnect/cmd"
)

func main() {
	cmd.Execute()
}
