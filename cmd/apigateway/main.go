// cmd/apigateway/main.go
package main

import "apigateway/cmd/apigateway/cmd"

func main() {
	cmd.Execute()
}
