// The scopetrace command converts recorded call-stack samples into Chrome
// trace documents and ships a small demo of the scoped-timer API.
package main

import "github.com/joho/godotenv"

func main() {
	// A .env file can set defaults such as SCOPETRACE_OUT.
	_ = godotenv.Load()

	Execute()
}
