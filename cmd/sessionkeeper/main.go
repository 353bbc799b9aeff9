// Command sessionkeeper watches a browser session for authentication expiry
// and logs it back in.
package main

func main() {
	Execute()
}
