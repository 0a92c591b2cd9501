// Command crawl-console runs the crawl backend's operator console.
package main

import "github.com/JakeFAU/crawl-console/cmd"

func main() {
	cmd.Execute()
}
