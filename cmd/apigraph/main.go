package main

import "github.com/mvp-joe/apigraph/internal/cli"

func main() {
	cli.Execute()
}
